package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

var errWrite = errors.New("broken pipe")

// fakePeer records every line written to it.
type fakePeer struct {
	mu       sync.Mutex
	lines    []string
	ip       string
	closed   bool
	shutdown bool
	writeErr error
}

func newFakePeer() *fakePeer {
	return &fakePeer{ip: "127.0.0.1"}
}

func (p *fakePeer) WriteString(s string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.lines = append(p.lines, s)
	return len(s), nil
}

func (p *fakePeer) RemoteIP() string { return p.ip }

func (p *fakePeer) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.lines))
	copy(out, p.lines)
	return out
}

func (p *fakePeer) lastLine(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lines) == 0 {
		t.Fatalf("no lines sent to peer")
	}
	return p.lines[len(p.lines)-1]
}

func newTestDispatcher(record RecordFunc) (*Dispatcher, *Registry) {
	logger := zerolog.Nop()
	reg := NewRegistry()
	return NewDispatcher(reg, &logger, record), reg
}
