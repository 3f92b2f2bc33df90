package proto

import (
	"strings"
	"testing"
)

func TestChunksSplitsOversizePayload(t *testing.T) {
	payload := strings.Repeat("a", 3*MaxMsgSize+10)

	chunks := Chunks(payload, MaxMsgSize)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > MaxMsgSize {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(chunk))
		}
	}
	if got := strings.Join(chunks, ""); got != payload {
		t.Errorf("chunks do not reassemble to the original payload")
	}
	if len(chunks[3]) != 10 {
		t.Errorf("expected final remainder of 10 bytes, got %d", len(chunks[3]))
	}
}

func TestChunksShortPayload(t *testing.T) {
	chunks := Chunks("hello", MaxMsgSize)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestChunksEmptyPayload(t *testing.T) {
	chunks := Chunks("", MaxMsgSize)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestValidChannelName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"hash sigil", "#general", true},
		{"ampersand sigil", "&local", true},
		{"missing sigil", "general", false},
		{"sigil only", "#", false},
		{"embedded comma", "#this,that", false},
		{"embedded space", "#two words", false},
		{"embedded tab", "#two\twords", false},
		{"embedded bel", "#ding\x07", false},
		{"max length", "#" + strings.Repeat("a", MaxChannelNameLen-1), true},
		{"over max length", "#" + strings.Repeat("a", MaxChannelNameLen), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidChannelName(tt.input); got != tt.want {
				t.Errorf("ValidChannelName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
