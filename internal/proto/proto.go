// Package proto defines the line-based wire protocol shared by the server
// and the client.
//
// Every wire line is a single write on the stream socket: a command
// ("/join #general"), a notification ("/youare Client_1"), or a plain text
// status reply. There is no framing beyond the write boundary, and an empty
// read means the peer closed the connection.
package proto

import "unicode"

const (
	// DefaultPort squats on the well-known IRC-over-TLS port; the protocol
	// itself is plaintext.
	DefaultPort = "6697"

	// MaxMsgSize caps the chat payload of a single wire line. Longer
	// messages are split by the sender; receivers never reassemble.
	MaxMsgSize = 4096

	// ReadLimit leaves room for command framing on top of a full payload.
	ReadLimit = MaxMsgSize + 100

	// MaxNicknameLen bounds renames; allocated Client_<n> names never get
	// close to it.
	MaxNicknameLen = 50

	// MaxChannelNameLen bounds channel names, sigil included.
	MaxChannelNameLen = 200
)

// Client to server commands, in dispatch precedence order.
const (
	CmdWhoami   = "/whoami"
	CmdPing     = "/ping"
	CmdNickname = "/nickname"
	CmdJoin     = "/join"
	CmdMute     = "/mute"
	CmdUnmute   = "/unmute"
	CmdWhois    = "/whois"
	CmdKick     = "/kick"
	CmdMsg      = "/m"
)

// Server to client notifications.
const (
	NotifyYouAre  = "/youare"
	NotifyJoined  = "/joined"
	NotifyKicked  = "/kicked"
	NotifyMuted   = "/muted"
	NotifyUnmuted = "/unmuted"
	NotifyMsg     = "/msg"

	ReplyPong = "pong"
)

// Join confirmation roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Chunks splits payload into consecutive fragments of at most max bytes.
// The final remainder is always emitted, even when empty.
func Chunks(payload string, max int) []string {
	var out []string
	for len(payload) > max {
		out = append(out, payload[:max])
		payload = payload[max:]
	}
	return append(out, payload)
}

// ValidChannelName reports whether name satisfies the RFC 1459 subset the
// server accepts: a '#' or '&' sigil followed by at least one character,
// with no BEL, comma, or whitespace, at most MaxChannelNameLen bytes total.
func ValidChannelName(name string) bool {
	if len(name) < 2 || len(name) > MaxChannelNameLen {
		return false
	}
	if name[0] != '#' && name[0] != '&' {
		return false
	}
	for _, r := range name[1:] {
		if r == 0x07 || r == ',' || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
