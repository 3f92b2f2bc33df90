package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/core"
)

type nopPeer struct{}

func (nopPeer) WriteString(s string) (int, error) { return len(s), nil }
func (nopPeer) RemoteIP() string                  { return "127.0.0.1" }
func (nopPeer) Shutdown() error                   { return nil }
func (nopPeer) Close() error                      { return nil }

func newTestServer(t *testing.T) (*core.Registry, *httptest.Server) {
	t.Helper()
	logger := zerolog.Nop()
	reg := core.NewRegistry()
	cfg := config.Default()
	cfg.HTTPAddr = "127.0.0.1:0"

	srv := NewServer(reg, cfg, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return reg, ts
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	reg, ts := newTestServer(t)

	a := reg.AddSession(nopPeer{})
	b := reg.AddSession(nopPeer{})
	if _, err := reg.JoinChannel(a, "#general"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := reg.JoinChannel(b, "#general"); err != nil {
		t.Fatalf("join: %v", err)
	}

	resp, err := ts.Client().Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Sessions != 2 {
		t.Errorf("expected 2 sessions, got %d", got.Sessions)
	}
	if len(got.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(got.Channels))
	}
	ch := got.Channels[0]
	if ch.Name != "#general" || ch.Admin != "Client_1" || ch.Members != 2 {
		t.Errorf("unexpected channel stat: %+v", ch)
	}
}
