package core

import "github.com/google/uuid"

// Peer is the transport-side view of a connected session. netx.Conn
// satisfies it; tests substitute in-memory fakes.
type Peer interface {
	WriteString(s string) (int, error)
	RemoteIP() string
	Shutdown() error
	Close() error
}

// Session binds one connection to its nickname, channel, and role state.
// IsAdmin and IsMuted are meaningful only while Channel is non-empty; both
// reset to false whenever the session leaves or is removed from its channel.
//
// Structural fields are written only under the Registry mutex. Reads inside
// a dispatch call need no lock because dispatch is sequential per round.
type Session struct {
	ID       string
	Nickname string
	Channel  string
	IsAdmin  bool
	IsMuted  bool

	peer Peer
}

// NewSession wraps a peer connection. The nickname is assigned by the
// Registry on admission.
func NewSession(peer Peer) *Session {
	return &Session{
		ID:   uuid.NewString(),
		peer: peer,
	}
}

// Send writes one wire line to the session's peer.
func (s *Session) Send(line string) error {
	_, err := s.peer.WriteString(line)
	return err
}

// Peer exposes the underlying connection to the loops that own its
// lifecycle.
func (s *Session) Peer() Peer {
	return s.peer
}
