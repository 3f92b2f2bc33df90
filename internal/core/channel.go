package core

// Channel is a named group of sessions with exactly one admin and a mute
// scope. Membership implies the member session's Channel field equals Name.
//
// Channels are created lazily on the first join of an unseen name and never
// torn down: an emptied channel stays in the registry with its admin intact.
type Channel struct {
	Name  string
	Admin string
	Users map[string]*Session
}

func newChannel(name, admin string) *Channel {
	return &Channel{
		Name:  name,
		Admin: admin,
		Users: make(map[string]*Session),
	}
}
