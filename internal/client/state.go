package client

import "sync"

// Identity is the client's advisory mirror of its server-side session. It
// has no authority of its own: it changes only when a server push is
// parsed, never from local user input.
type Identity struct {
	Nickname  string
	Channel   string
	IsAdmin   bool
	IsMuted   bool
	Connected bool
}

// state guards the Identity for access from the listen goroutine and the
// UI thread.
type state struct {
	mu sync.Mutex
	id Identity
}

func (st *state) snapshot() Identity {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.id
}

func (st *state) update(fn func(*Identity)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.id)
}
