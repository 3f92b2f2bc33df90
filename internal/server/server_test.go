package server

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/client"
	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/core"
)

type recordingUI struct {
	mu    sync.Mutex
	lines []string
}

func (u *recordingUI) Chat(line string) { u.add(line) }
func (u *recordingUI) Info(line string) { u.add(line) }

func (u *recordingUI) UpdatePrompt(client.Identity) {}
func (u *recordingUI) RequestClose(string)          {}

func (u *recordingUI) add(line string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lines = append(u.lines, line)
}

func (u *recordingUI) contains(substr string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, line := range u.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = "0"
	cfg.PollInterval = 50 * time.Millisecond
	cfg.ConnectTimeout = 2 * time.Second
	return cfg
}

func startTestServer(t *testing.T) (*Server, config.Config) {
	t.Helper()
	logger := zerolog.Nop()
	cfg := testConfig()
	srv := New(cfg, core.NewRegistry(), nil, &logger)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(srv.Stop)

	port, err := srv.Port()
	if err != nil {
		t.Fatalf("server port: %v", err)
	}
	cfg.Port = port
	return srv, cfg
}

func connectTestClient(t *testing.T, cfg config.Config) (*client.Client, *recordingUI) {
	t.Helper()
	ui := &recordingUI{}
	logger := zerolog.Nop()
	cl := client.New(ui, cfg, &logger)
	if err := cl.Connect("127.0.0.1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(cl.Stop)
	return cl, ui
}

func TestEndToEndChat(t *testing.T) {
	srv, cfg := startTestServer(t)

	a, _ := connectTestClient(t, cfg)
	b, uiB := connectTestClient(t, cfg)

	waitFor(t, "both nicknames", func() bool {
		return a.Identity().Nickname != "" && b.Identity().Nickname != ""
	})
	nickA := a.Identity().Nickname

	// A creates the channel and becomes admin; B joins as a plain member.
	if err := a.SendCommand("/join #room"); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "A admin", func() bool {
		id := a.Identity()
		return id.Channel == "#room" && id.IsAdmin
	})
	if err := b.SendCommand("/join #room"); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "B member", func() bool {
		id := b.Identity()
		return id.Channel == "#room" && !id.IsAdmin
	})

	// Chat relays to B with the sender's nickname.
	if err := a.SendChat("hello room"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	waitFor(t, "B receives chat", func() bool {
		return uiB.contains(nickA + ": hello room")
	})

	// A mutes B; B's next chat attempt fails locally, before the wire.
	if err := a.SendCommand("/mute " + b.Identity().Nickname); err != nil {
		t.Fatalf("mute: %v", err)
	}
	waitFor(t, "B muted", func() bool {
		return b.Identity().IsMuted
	})
	if err := b.SendChat("can you hear me"); !errors.Is(err, client.ErrMuted) {
		t.Fatalf("expected ErrMuted, got %v", err)
	}

	if got := srv.Registry().Len(); got != 2 {
		t.Fatalf("expected 2 sessions, got %d", got)
	}
}

func TestEndToEndRenameAndWhoami(t *testing.T) {
	_, cfg := startTestServer(t)

	a, uiA := connectTestClient(t, cfg)
	waitFor(t, "nickname", func() bool { return a.Identity().Nickname != "" })

	if err := a.SendCommand("/nickname alice"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	waitFor(t, "rename applied", func() bool {
		return a.Identity().Nickname == "alice"
	})

	b, uiB := connectTestClient(t, cfg)
	waitFor(t, "second nickname", func() bool { return b.Identity().Nickname != "" })

	if err := b.SendCommand("/nickname alice"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	waitFor(t, "collision reply", func() bool {
		return uiB.contains("Nickname: alice already taken!")
	})
	if b.Identity().Nickname == "alice" {
		t.Fatalf("collision changed the nickname")
	}

	if err := a.SendCommand("/ping"); err != nil {
		t.Fatalf("ping: %v", err)
	}
	waitFor(t, "pong", func() bool { return uiA.contains("pong") })
}

func TestEndToEndKick(t *testing.T) {
	_, cfg := startTestServer(t)

	a, _ := connectTestClient(t, cfg)
	b, uiB := connectTestClient(t, cfg)
	waitFor(t, "nicknames", func() bool {
		return a.Identity().Nickname != "" && b.Identity().Nickname != ""
	})

	if err := a.SendCommand("/join #room"); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "A admin", func() bool { return a.Identity().IsAdmin })
	if err := b.SendCommand("/join #room"); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "B member", func() bool { return b.Identity().Channel == "#room" })

	if err := a.SendCommand("/kick " + b.Identity().Nickname); err != nil {
		t.Fatalf("kick: %v", err)
	}
	waitFor(t, "B kicked", func() bool {
		id := b.Identity()
		return id.Channel == "" && !id.IsAdmin && !id.IsMuted
	})
	if !uiB.contains("You have been kicked") {
		t.Fatalf("kick notice missing")
	}
}

func TestServerStopDisconnectsClients(t *testing.T) {
	srv, cfg := startTestServer(t)

	a, _ := connectTestClient(t, cfg)
	waitFor(t, "nickname", func() bool { return a.Identity().Nickname != "" })

	srv.Stop()
	waitFor(t, "client observes close", func() bool {
		return !a.Identity().Connected
	})
}
