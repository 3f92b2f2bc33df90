package core

import (
	"strings"
	"testing"

	"github.com/vovakirdan/ircwire/internal/proto"
)

func TestDispatchWhoami(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	peer := newFakePeer()
	s := reg.AddSession(peer)

	d.Handle(s, "/whoami")
	if got := peer.lastLine(t); got != "/youare Client_1" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatchPing(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	peer := newFakePeer()
	s := reg.AddSession(peer)

	d.Handle(s, "/ping")
	if got := peer.lastLine(t); got != "pong" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatchDropsUnknownAndGarbage(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	peer := newFakePeer()
	s := reg.AddSession(peer)

	for _, line := range []string{"/frobnicate now", "/whoami extra", "/join", "hello there", "   "} {
		d.Handle(s, line)
	}
	if got := peer.sent(); len(got) != 0 {
		t.Fatalf("dropped input produced replies: %v", got)
	}
	if reg.Len() != 1 {
		t.Fatalf("session count changed: %d", reg.Len())
	}
}

func TestDispatchEmptyLineDisconnects(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	peer := newFakePeer()
	s := reg.AddSession(peer)

	d.Handle(s, "")
	if reg.Len() != 0 {
		t.Fatalf("session not removed")
	}
	if !peer.closed || !peer.shutdown {
		t.Fatalf("connection not shut down and closed")
	}
	// The listen loop keys off this to avoid re-reading the closed fd later
	// in the same round.
	if reg.Has(s) {
		t.Fatalf("disconnected session still reported present")
	}
}

func TestDispatchNickname(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	alice := newFakePeer()
	bob := newFakePeer()
	a := reg.AddSession(alice)
	b := reg.AddSession(bob)

	d.Handle(a, "/nickname alice")
	if got := alice.lastLine(t); got != "/youare alice" {
		t.Fatalf("unexpected reply: %q", got)
	}

	d.Handle(b, "/nickname alice")
	if got := bob.lastLine(t); got != "Nickname: alice already taken!" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if b.Nickname != "Client_2" {
		t.Fatalf("collision changed nickname: %q", b.Nickname)
	}
}

func TestDispatchJoinValidation(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	peer := newFakePeer()
	s := reg.AddSession(peer)

	d.Handle(s, "/join general")
	if got := peer.lastLine(t); got != "Invalid channel name according with RFC 1459!" {
		t.Fatalf("unexpected reply: %q", got)
	}
	d.Handle(s, "/join #this,that")
	if got := peer.lastLine(t); got != "Invalid channel name according with RFC 1459!" {
		t.Fatalf("unexpected reply: %q", got)
	}
	d.Handle(s, "/join #general")
	if got := peer.lastLine(t); got != "/joined #general admin" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatchMuteFlow(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	admin := newFakePeer()
	member := newFakePeer()
	a := reg.AddSession(admin)
	b := reg.AddSession(member)
	d.Handle(a, "/join #room")
	d.Handle(b, "/join #room")

	d.Handle(a, "/mute Client_2")
	if got := member.lastLine(t); got != "/muted" {
		t.Fatalf("target not notified: %q", got)
	}
	if got := admin.lastLine(t); got != "Client_2 is now muted!" {
		t.Fatalf("caller not confirmed: %q", got)
	}

	// Muted member cannot chat.
	d.Handle(b, "/m hello")
	if got := member.lastLine(t); got != "You can't send messages while muted!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	d.Handle(a, "/mute Client_2")
	if got := admin.lastLine(t); got != "Client_2 is already muted!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	d.Handle(a, "/unmute Client_2")
	if got := member.lastLine(t); got != "/unmuted" {
		t.Fatalf("target not notified: %q", got)
	}
}

func TestDispatchKickFlow(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	admin := newFakePeer()
	member := newFakePeer()
	a := reg.AddSession(admin)
	b := reg.AddSession(member)
	d.Handle(a, "/join #room")
	d.Handle(b, "/join #room")

	d.Handle(a, "/kick Client_2")
	if got := member.lastLine(t); got != "/kicked" {
		t.Fatalf("target not notified: %q", got)
	}
	if got := admin.lastLine(t); got != "Client_2 is now kicked!" {
		t.Fatalf("caller not confirmed: %q", got)
	}
	if b.Channel != "" {
		t.Fatalf("kicked session still in channel %q", b.Channel)
	}
	if reg.Len() != 2 {
		t.Fatalf("kick should not disconnect the target")
	}
}

func TestDispatchWhois(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	admin := newFakePeer()
	member := newFakePeer()
	member.ip = "10.0.0.7"
	a := reg.AddSession(admin)
	b := reg.AddSession(member)
	d.Handle(a, "/join #room")
	d.Handle(b, "/join #room")

	d.Handle(a, "/whois Client_2")
	if got := admin.lastLine(t); got != "Client_2 is connected from 10.0.0.7!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	d.Handle(b, "/whois Client_1")
	if got := member.lastLine(t); got != "You must be a channel admin to whois someone!" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatchChatMulticastsAndRecords(t *testing.T) {
	var recorded []string
	record := func(channel, nickname, body string) {
		recorded = append(recorded, channel+"|"+nickname+"|"+body)
	}
	d, reg := newTestDispatcher(record)
	admin := newFakePeer()
	member := newFakePeer()
	a := reg.AddSession(admin)
	b := reg.AddSession(member)
	d.Handle(a, "/join #room")
	d.Handle(b, "/join #room")

	d.Handle(a, "/m hi everyone")
	if got := member.lastLine(t); got != "/msg Client_1 hi everyone" {
		t.Fatalf("member did not receive chat: %q", got)
	}
	// The sender is a member too and receives its own message.
	if got := admin.lastLine(t); got != "/msg Client_1 hi everyone" {
		t.Fatalf("sender did not receive chat: %q", got)
	}
	if len(recorded) != 1 || recorded[0] != "#room|Client_1|hi everyone" {
		t.Fatalf("history record missing or wrong: %v", recorded)
	}
}

func TestDispatchChatPreconditions(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	peer := newFakePeer()
	s := reg.AddSession(peer)

	d.Handle(s, "/m hello")
	if got := peer.lastLine(t); got != "You must be in a channel to send messages!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	d.Handle(s, "/join #room")
	d.Handle(s, "/m "+strings.Repeat("a", proto.ReadLimit+1))
	if got := peer.lastLine(t); got != "Message is too long!" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatchWriteFailureDropsSession(t *testing.T) {
	d, reg := newTestDispatcher(nil)
	peer := newFakePeer()
	peer.writeErr = errWrite
	s := reg.AddSession(peer)

	d.Handle(s, "/ping")
	if reg.Len() != 0 {
		t.Fatalf("failing session not dropped")
	}
	if !peer.closed {
		t.Fatalf("failing connection not closed")
	}
}
