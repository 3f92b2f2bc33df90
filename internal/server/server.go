// Package server runs the chat service: a listening socket, an accept loop,
// and a listen loop feeding the protocol dispatcher.
//
// Scheduling is a small fixed number of goroutines, not one per connection.
// The accept loop polls only the listening socket each round; the listen
// loop snapshots the current sessions, polls them all at once, and
// dispatches every ready one sequentially. Both loops check a cooperative
// shutdown flag at the top of each iteration, so stopping waits at most one
// poll interval per loop.
package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/core"
	"github.com/vovakirdan/ircwire/internal/netx"
	"github.com/vovakirdan/ircwire/internal/proto"
	"github.com/vovakirdan/ircwire/internal/store"
)

// Server owns the listening socket and the two long-running loops.
type Server struct {
	cfg  config.Config
	log  *zerolog.Logger
	reg  *core.Registry
	disp *core.Dispatcher
	pool *historyPool

	ln *netx.Conn

	accepting atomic.Bool
	listening atomic.Bool
	stopped   atomic.Bool
	wg        sync.WaitGroup
}

// New wires the server to its registry and optional history store.
func New(cfg config.Config, reg *core.Registry, st store.Store, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg: cfg,
		log: logger,
		reg: reg,
	}

	var record core.RecordFunc
	if st != nil {
		s.pool = newHistoryPool(cfg.HistoryWorkers, st, logger)
		record = func(channel, nickname, body string) {
			s.pool.submit(&store.Message{
				Channel:   channel,
				Nickname:  nickname,
				Body:      body,
				CreatedAt: time.Now().UTC(),
			})
		}
	}
	s.disp = core.NewDispatcher(reg, logger, record)
	return s
}

// Start binds the listening socket and launches the accept and listen
// loops. Socket creation, bind, and listen failures are the only fatal
// outcomes; everything past this point degrades per session.
func (s *Server) Start() error {
	ln, err := netx.NewTCP()
	if err != nil {
		return err
	}
	if err := ln.SetReuseAddr(); err != nil {
		_ = ln.Close()
		return err
	}
	if err := ln.Bind(s.cfg.Host, s.cfg.Port); err != nil {
		_ = ln.Close()
		return err
	}
	if err := ln.Listen(); err != nil {
		_ = ln.Close()
		return err
	}
	s.ln = ln

	port, err := ln.LocalPort()
	if err != nil {
		port = s.cfg.Port
	}
	s.log.Info().Str("host", s.cfg.Host).Str("port", port).Msg("server started")

	s.accepting.Store(true)
	s.listening.Store(true)
	s.wg.Add(2)
	go s.acceptLoop()
	go s.listenLoop()
	return nil
}

// Stop flips the loop flags, waits for both loops to observe them, then
// closes every client connection and the listener. No registry access
// happens after Stop returns.
func (s *Server) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	s.accepting.Store(false)
	s.listening.Store(false)
	s.wg.Wait()

	for _, sess := range s.reg.Sessions() {
		s.reg.RemoveSession(sess.Nickname)
		_ = sess.Peer().Close()
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	if s.pool != nil {
		s.pool.stop()
	}
	s.log.Info().Msg("server stopped")
}

// Port reports the bound listening port. Useful when configured with port 0.
func (s *Server) Port() (string, error) {
	return s.ln.LocalPort()
}

// Registry exposes the session registry to the operational HTTP surface.
func (s *Server) Registry() *core.Registry {
	return s.reg
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.accepting.Load() {
		reads := []*netx.Conn{s.ln}
		n, err := netx.Select(&reads, nil, nil, s.cfg.PollInterval)
		if err != nil {
			s.log.Error().Err(err).Msg("accept poll failed")
			return
		}
		if n == 0 {
			continue
		}

		conn, err := s.ln.Accept()
		if err != nil {
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		sess := s.reg.AddSession(conn)
		s.log.Info().
			Str("nick", sess.Nickname).
			Str("addr", conn.RemoteIP()).
			Int("clients", s.reg.Len()).
			Msg("client connected")
	}
}

func (s *Server) listenLoop() {
	defer s.wg.Done()

	for s.listening.Load() {
		sessions := s.reg.Sessions()
		if len(sessions) == 0 {
			time.Sleep(s.cfg.PollInterval)
			continue
		}

		conns := make([]*netx.Conn, 0, len(sessions))
		bySession := make(map[*netx.Conn]*core.Session, len(sessions))
		for _, sess := range sessions {
			conn, ok := sess.Peer().(*netx.Conn)
			if !ok {
				continue
			}
			conns = append(conns, conn)
			bySession[conn] = sess
		}

		n, err := netx.Select(&conns, nil, nil, s.cfg.PollInterval)
		if err != nil {
			s.log.Error().Err(err).Msg("listen poll failed")
			return
		}
		if n == 0 {
			continue
		}

		// Dispatch is fully sequential within a round: two sessions
		// never race inside the dispatcher.
		for _, conn := range conns {
			sess := bySession[conn]
			// A handler earlier in this round may have disconnected the
			// session; its fd is closed and could have been reused by the
			// accept loop by now.
			if !s.reg.Has(sess) {
				continue
			}
			line, err := conn.Read(proto.ReadLimit)
			if err != nil {
				s.log.Warn().Err(err).Str("nick", sess.Nickname).Msg("read failed, dropping session")
				s.reg.RemoveSession(sess.Nickname)
				_ = conn.Close()
				continue
			}
			s.disp.Handle(sess, line)
		}
	}
}
