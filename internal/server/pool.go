package server

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/store"
)

// historyPool persists relayed chat lines in the background so the dispatch
// path is never blocked by disk I/O.
type historyPool struct {
	jobs chan *store.Message
	wg   sync.WaitGroup
}

func newHistoryPool(n int, st store.Store, logger *zerolog.Logger) *historyPool {
	if n < 1 {
		n = 1
	}
	p := &historyPool{
		jobs: make(chan *store.Message, 1024),
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for m := range p.jobs {
				if err := st.SaveMessage(context.Background(), m); err != nil {
					logger.Warn().Err(err).Str("channel", m.Channel).Msg("history save failed")
				}
			}
		}()
	}
	return p
}

// submit is non-blocking; history is dropped when the queue is full.
func (p *historyPool) submit(m *store.Message) {
	select {
	case p.jobs <- m:
	default:
	}
}

func (p *historyPool) stop() {
	close(p.jobs)
	p.wg.Wait()
}
