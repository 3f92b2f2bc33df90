package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/ircwire/internal/proto"
)

// Registry owns every connected session and every channel, keyed by nickname
// and channel name. It is the only structure mutated from more than one
// goroutine (the accept loop adds, the listen loop mutates and removes), so
// every structural change is serialized by a single mutex held for the full
// method, including all error returns.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	channels    map[string]*Channel
	nickCounter int
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		channels:    make(map[string]*Channel),
		nickCounter: 1,
	}
}

// AddSession admits a connection under a fresh Client_<n> nickname, probing
// increasing integers against current occupancy.
func (r *Registry) AddSession(peer Peer) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := NewSession(peer)
	s.Nickname = r.nextNickname()
	r.sessions[s.Nickname] = s
	return s
}

func (r *Registry) nextNickname() string {
	for {
		nick := fmt.Sprintf("Client_%d", r.nickCounter)
		r.nickCounter++
		if _, taken := r.sessions[nick]; !taken {
			return nick
		}
	}
}

// RemoveSession erases the session and, if it was in a channel, its
// membership there. It returns the removed session, or nil if the nickname
// is unknown.
func (r *Registry) RemoveSession(nickname string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[nickname]
	if !ok {
		return nil
	}
	delete(r.sessions, nickname)
	if s.Channel != "" {
		if ch := r.channels[s.Channel]; ch != nil {
			delete(ch.Users, nickname)
		}
		s.Channel = ""
		s.IsAdmin = false
		s.IsMuted = false
	}
	return s
}

// RenameSession moves the session to newNick. A collision leaves both
// sessions untouched; if the session administrates its channel the channel's
// admin field follows the rename.
func (r *Registry) RenameSession(s *Session, newNick string) *Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.sessions[newNick]; taken {
		return newError(ErrCodeNicknameTaken, "Nickname: "+newNick+" already taken!")
	}
	if len(newNick) > proto.MaxNicknameLen {
		return newError(ErrCodeNicknameTooLong, "Nickname too long!")
	}

	if s.Channel != "" {
		if ch := r.channels[s.Channel]; ch != nil {
			delete(ch.Users, s.Nickname)
			ch.Users[newNick] = s
			if s.IsAdmin {
				ch.Admin = newNick
			}
		}
	}
	delete(r.sessions, s.Nickname)
	s.Nickname = newNick
	r.sessions[newNick] = s
	return nil
}

// JoinChannel attaches the session to name, creating the channel and
// granting admin if it did not exist. A session administrating its current
// channel cannot join another one.
func (r *Registry) JoinChannel(s *Session, name string) (*Channel, *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !proto.ValidChannelName(name) {
		return nil, newError(ErrCodeInvalidChannelName,
			"Invalid channel name according with RFC 1459!")
	}
	if s.IsAdmin {
		return nil, newError(ErrCodeAdminLocked,
			"You can't leave a channel you administrate!")
	}

	if s.Channel != "" {
		if prev := r.channels[s.Channel]; prev != nil {
			delete(prev.Users, s.Nickname)
		}
		s.IsAdmin = false
		s.IsMuted = false
	}

	ch, ok := r.channels[name]
	if !ok {
		ch = newChannel(name, s.Nickname)
		r.channels[name] = ch
		s.IsAdmin = true
	}
	ch.Users[s.Nickname] = s
	s.Channel = name
	return ch, nil
}

// channelTarget validates the shared moderation preconditions: not the
// caller itself, caller administrates its channel, target is a member.
// Callers must hold r.mu.
func (r *Registry) channelTarget(caller *Session, target, verb string) (*Session, *Error) {
	if target == caller.Nickname {
		return nil, newError(ErrCodeSelfTarget, "Cannot "+verb+" yourself!")
	}
	if !caller.IsAdmin {
		return nil, newError(ErrCodeNotAdmin,
			"You must be a channel admin to "+verb+" someone!")
	}
	ch := r.channels[caller.Channel]
	if ch == nil {
		return nil, newError(ErrCodeNotInChannel,
			"You must be in a channel to use this command!")
	}
	t, ok := ch.Users[target]
	if !ok {
		return nil, newError(ErrCodeTargetNotInChannel, target+" is not in the channel!")
	}
	return t, nil
}

// MuteUser marks target muted within the caller's channel and returns the
// target session so the caller can notify it.
func (r *Registry) MuteUser(caller *Session, target string) (*Session, *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.channelTarget(caller, target, "mute")
	if err != nil {
		return nil, err
	}
	if t.IsMuted {
		return nil, newError(ErrCodeAlreadyMuted, target+" is already muted!")
	}
	t.IsMuted = true
	return t, nil
}

// UnmuteUser clears target's mute within the caller's channel.
func (r *Registry) UnmuteUser(caller *Session, target string) (*Session, *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.channelTarget(caller, target, "unmute")
	if err != nil {
		return nil, err
	}
	if !t.IsMuted {
		return nil, newError(ErrCodeAlreadyUnmuted, target+" is already unmuted!")
	}
	t.IsMuted = false
	return t, nil
}

// KickUser removes target from the caller's channel and resets its channel
// state. The target stays connected under its nickname.
func (r *Registry) KickUser(caller *Session, target string) (*Session, *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.channelTarget(caller, target, "kick")
	if err != nil {
		return nil, err
	}
	if ch := r.channels[caller.Channel]; ch != nil {
		delete(ch.Users, target)
	}
	t.Channel = ""
	t.IsAdmin = false
	t.IsMuted = false
	return t, nil
}

// WhoisUser resolves target inside the caller's channel for an address
// lookup.
func (r *Registry) WhoisUser(caller *Session, target string) (*Session, *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channelTarget(caller, target, "whois")
}

// Multicast delivers prefix+message to every member of channel, splitting
// oversize payloads into MaxMsgSize fragments per wire line. An unknown
// channel is a no-op. Write failures are left for the listen loop to
// observe on the failing session's next read.
func (r *Registry) Multicast(message, channel, prefix string) {
	r.mu.Lock()
	ch := r.channels[channel]
	if ch == nil {
		r.mu.Unlock()
		return
	}
	members := make([]*Session, 0, len(ch.Users))
	for _, s := range ch.Users {
		members = append(members, s)
	}
	r.mu.Unlock()

	for _, s := range members {
		for _, part := range proto.Chunks(message, proto.MaxMsgSize) {
			_ = s.Send(prefix + part)
		}
	}
}

// Sessions returns a point-in-time snapshot of the connected sessions; the
// listen loop polls these each round.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Has reports whether s is still registered. A session disconnected earlier
// in a listen round fails this check, so the round must not touch its
// descriptor again: the fd may already belong to a freshly accepted
// connection.
func (r *Registry) Has(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[s.Nickname] == s
}

// Len reports the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ChannelStat describes one channel in a Stats snapshot.
type ChannelStat struct {
	Name    string
	Admin   string
	Members int
}

// Stats is a point-in-time summary for the operational HTTP surface.
type Stats struct {
	Sessions int
	Channels []ChannelStat
}

// Snapshot summarizes the registry, channels sorted by name.
func (r *Registry) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		Sessions: len(r.sessions),
		Channels: make([]ChannelStat, 0, len(r.channels)),
	}
	for _, ch := range r.channels {
		stats.Channels = append(stats.Channels, ChannelStat{
			Name:    ch.Name,
			Admin:   ch.Admin,
			Members: len(ch.Users),
		})
	}
	sort.Slice(stats.Channels, func(i, j int) bool {
		return stats.Channels[i].Name < stats.Channels[j].Name
	})
	return stats
}
