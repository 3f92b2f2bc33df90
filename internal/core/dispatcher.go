package core

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/proto"
)

// RecordFunc receives every relayed chat line for asynchronous history
// persistence. Implementations must not block.
type RecordFunc func(channel, nickname, body string)

// Dispatcher interprets each inbound line from a session as a command or
// drops it, validates preconditions, mutates the registry, and emits the
// replies and notifications. Dispatch is fully sequential within a listen
// round, so two sessions never race inside a handler.
type Dispatcher struct {
	reg    *Registry
	log    *zerolog.Logger
	record RecordFunc
}

// NewDispatcher builds a dispatcher. record may be nil when history
// persistence is disabled.
func NewDispatcher(reg *Registry, logger *zerolog.Logger, record RecordFunc) *Dispatcher {
	return &Dispatcher{reg: reg, log: logger, record: record}
}

type handler struct {
	name string
	// arity 0 commands match the whole line; arity 1 commands require a
	// non-empty argument after the keyword.
	arity int
	fn    func(d *Dispatcher, s *Session, arg string)
}

// Precedence-ordered command table; the first match wins.
var handlers = []handler{
	{proto.CmdWhoami, 0, (*Dispatcher).whoami},
	{proto.CmdPing, 0, (*Dispatcher).ping},
	{proto.CmdNickname, 1, (*Dispatcher).nickname},
	{proto.CmdJoin, 1, (*Dispatcher).join},
	{proto.CmdMute, 1, (*Dispatcher).mute},
	{proto.CmdUnmute, 1, (*Dispatcher).unmute},
	{proto.CmdWhois, 1, (*Dispatcher).whois},
	{proto.CmdKick, 1, (*Dispatcher).kick},
	{proto.CmdMsg, 1, (*Dispatcher).chat},
}

// Handle processes one inbound line from s. An empty line means the peer
// disconnected; lines that are neither a known command nor a disconnect are
// dropped without a reply.
func (d *Dispatcher) Handle(s *Session, line string) {
	if line == "" {
		d.Disconnect(s)
		return
	}
	if !strings.HasPrefix(line, "/") {
		d.log.Debug().Str("nick", s.Nickname).Msg("garbage input dropped")
		return
	}
	for _, h := range handlers {
		if h.arity == 0 {
			if line == h.name {
				h.fn(d, s, "")
				return
			}
			continue
		}
		if arg, ok := argument(line, h.name); ok {
			h.fn(d, s, arg)
			return
		}
	}
	d.log.Debug().Str("nick", s.Nickname).Msg("unrecognized command dropped")
}

// argument extracts the argument of "<name> <rest>". rest must be non-empty
// for the command to match at all.
func argument(line, name string) (string, bool) {
	rest, found := strings.CutPrefix(line, name+" ")
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}

// Disconnect removes the session from the registry and closes its
// connection. Used for peer-initiated closes and for sessions whose writes
// start failing.
func (d *Dispatcher) Disconnect(s *Session) {
	d.reg.RemoveSession(s.Nickname)
	_ = s.Peer().Shutdown()
	_ = s.Peer().Close()
	d.log.Info().
		Str("nick", s.Nickname).
		Int("clients", d.reg.Len()).
		Msg("client disconnected")
}

// send delivers one line to s. A failed write degrades to a forced
// disconnect of that session only.
func (d *Dispatcher) send(s *Session, line string) {
	if err := s.Send(line); err != nil {
		d.log.Warn().Err(err).Str("nick", s.Nickname).Msg("write failed, dropping session")
		d.Disconnect(s)
	}
}

func (d *Dispatcher) whoami(s *Session, _ string) {
	d.send(s, proto.NotifyYouAre+" "+s.Nickname)
}

func (d *Dispatcher) ping(s *Session, _ string) {
	d.send(s, proto.ReplyPong)
	d.log.Info().Str("nick", s.Nickname).Msg("ping")
}

func (d *Dispatcher) nickname(s *Session, newNick string) {
	old := s.Nickname
	if err := d.reg.RenameSession(s, newNick); err != nil {
		d.log.Info().Str("nick", old).Str("reason", err.Code).Msg("rename refused")
		d.send(s, err.Message)
		return
	}
	d.log.Info().Str("old", old).Str("new", newNick).Msg("nickname changed")
	d.send(s, proto.NotifyYouAre+" "+newNick)
}

func (d *Dispatcher) join(s *Session, name string) {
	if _, err := d.reg.JoinChannel(s, name); err != nil {
		d.log.Info().Str("nick", s.Nickname).Str("reason", err.Code).Msg("join refused")
		d.send(s, err.Message)
		return
	}
	role := proto.RoleUser
	if s.IsAdmin {
		role = proto.RoleAdmin
	}
	d.log.Info().
		Str("nick", s.Nickname).
		Str("channel", name).
		Str("role", role).
		Msg("joined channel")
	d.send(s, proto.NotifyJoined+" "+name+" "+role)
}

func (d *Dispatcher) mute(s *Session, target string) {
	t, err := d.reg.MuteUser(s, target)
	if err != nil {
		d.log.Info().Str("nick", s.Nickname).Str("reason", err.Code).Msg("mute refused")
		d.send(s, err.Message)
		return
	}
	d.send(t, proto.NotifyMuted)
	d.log.Info().Str("nick", s.Nickname).Str("target", target).Msg("muted")
	d.send(s, target+" is now muted!")
}

func (d *Dispatcher) unmute(s *Session, target string) {
	t, err := d.reg.UnmuteUser(s, target)
	if err != nil {
		d.log.Info().Str("nick", s.Nickname).Str("reason", err.Code).Msg("unmute refused")
		d.send(s, err.Message)
		return
	}
	d.send(t, proto.NotifyUnmuted)
	d.log.Info().Str("nick", s.Nickname).Str("target", target).Msg("unmuted")
	d.send(s, target+" is now unmuted!")
}

func (d *Dispatcher) whois(s *Session, target string) {
	t, err := d.reg.WhoisUser(s, target)
	if err != nil {
		d.log.Info().Str("nick", s.Nickname).Str("reason", err.Code).Msg("whois refused")
		d.send(s, err.Message)
		return
	}
	d.log.Info().Str("nick", s.Nickname).Str("target", target).Msg("whois")
	d.send(s, target+" is connected from "+t.Peer().RemoteIP()+"!")
}

func (d *Dispatcher) kick(s *Session, target string) {
	t, err := d.reg.KickUser(s, target)
	if err != nil {
		d.log.Info().Str("nick", s.Nickname).Str("reason", err.Code).Msg("kick refused")
		d.send(s, err.Message)
		return
	}
	d.send(t, proto.NotifyKicked)
	d.log.Info().Str("nick", s.Nickname).Str("target", target).Msg("kicked")
	d.send(s, target+" is now kicked!")
}

func (d *Dispatcher) chat(s *Session, body string) {
	if len(body) > proto.ReadLimit {
		d.send(s, "Message is too long!")
		return
	}
	if s.Channel == "" {
		d.send(s, "You must be in a channel to send messages!")
		return
	}
	if s.IsMuted {
		d.send(s, "You can't send messages while muted!")
		return
	}
	d.log.Info().
		Str("nick", s.Nickname).
		Str("channel", s.Channel).
		Int("bytes", len(body)).
		Msg("chat")
	d.reg.Multicast(body, s.Channel, proto.NotifyMsg+" "+s.Nickname+" ")
	if d.record != nil {
		d.record(s.Channel, s.Nickname, body)
	}
}
