package netx

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Select blocks until at least one connection across the interest sets is
// ready or timeout elapses. Each non-nil set is reduced in place to its
// ready members; the return value counts ready connections across all sets.
//
// A connection in the read set is considered ready when it has data, or when
// the peer hung up or the descriptor errored, so a subsequent Read observes
// the close instead of blocking. A connection in the write set is ready when
// a write would not block, which for an in-flight non-blocking connect also
// covers the failure outcome (resolved by the caller via SO_ERROR).
func Select(read, write, except *[]*Conn, timeout time.Duration) (int, error) {
	var fds []unix.PollFd
	index := make(map[int]int)

	add := func(set *[]*Conn, events int16) {
		if set == nil {
			return
		}
		for _, c := range *set {
			i, seen := index[c.fd]
			if !seen {
				i = len(fds)
				index[c.fd] = i
				fds = append(fds, unix.PollFd{Fd: int32(c.fd)})
			}
			fds[i].Events |= events
		}
	}
	add(read, unix.POLLIN)
	add(write, unix.POLLOUT)
	add(except, unix.POLLPRI)

	ms := int(timeout / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	for {
		// Polling an empty set still sleeps for the timeout, matching
		// select(2) with no descriptors.
		_, err := unix.Poll(fds, ms)
		if err == nil {
			break
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return 0, fmt.Errorf("poll: %w", err)
	}

	ready := func(c *Conn, want int16) bool {
		i, seen := index[c.fd]
		if !seen {
			return false
		}
		return fds[i].Revents&(want|unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0
	}

	count := 0
	filter := func(set *[]*Conn, want int16) {
		if set == nil {
			return
		}
		kept := (*set)[:0]
		for _, c := range *set {
			if ready(c, want) {
				kept = append(kept, c)
				count++
			}
		}
		*set = kept
	}
	filter(read, unix.POLLIN)
	filter(write, unix.POLLOUT)
	filter(except, unix.POLLPRI)
	return count, nil
}
