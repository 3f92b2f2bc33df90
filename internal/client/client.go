// Package client implements the chat client core: the connection, the
// listen loop that parses server pushes, and the mirrored session state.
//
// The terminal front end is an external collaborator behind the UI
// interface; the client only pushes displayable lines and prompt refreshes
// through it.
package client

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/netx"
	"github.com/vovakirdan/ircwire/internal/proto"
)

// UI is the terminal front end boundary.
type UI interface {
	// Chat renders a delivered chat line.
	Chat(line string)
	// Info renders a human-readable status line.
	Info(line string)
	// UpdatePrompt refreshes the prompt after an identity change.
	UpdatePrompt(id Identity)
	// RequestClose asks the front end to shut down.
	RequestClose(reason string)
}

// Local precondition failures for the free-text path. The UI reports them
// without any fragment reaching the wire.
var (
	ErrNotConnected = errors.New("not connected")
	ErrNoChannel    = errors.New("not in a channel")
	ErrMuted        = errors.New("muted")
)

// Client is the chat client core.
type Client struct {
	cfg config.Config
	log *zerolog.Logger
	ui  UI

	conn  *netx.Conn
	state state

	listening atomic.Bool
	wg        sync.WaitGroup
}

// New builds a disconnected client.
func New(ui UI, cfg config.Config, logger *zerolog.Logger) *Client {
	return &Client{cfg: cfg, log: logger, ui: ui}
}

// Connect dials host on the configured port. The connect itself is
// non-blocking with a bounded resolution window; the outcome is nil,
// netx.ErrRefused, netx.ErrConnectTimeout, or netx.ErrResolve, and the
// caller may retry. On success the listen loop starts and a /whoami is sent
// so the prompt picks up the allocated nickname.
func (c *Client) Connect(host string) error {
	conn, err := netx.NewTCP()
	if err != nil {
		return err
	}
	if err := conn.SetBlocking(false); err != nil {
		_ = conn.Close()
		return err
	}
	if err := conn.Connect(host, c.cfg.Port, c.cfg.ConnectTimeout); err != nil {
		_ = conn.Close()
		return err
	}
	if err := conn.SetBlocking(true); err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.state.update(func(id *Identity) { id.Connected = true })

	if err := c.sendLine(proto.CmdWhoami); err != nil {
		c.Stop()
		return err
	}

	c.listening.Store(true)
	c.wg.Add(1)
	go c.listenLoop()

	c.log.Info().Str("host", host).Str("port", c.cfg.Port).Msg("connected")
	c.ui.Info("Connected to " + host + ":" + c.cfg.Port + "!")
	return nil
}

// Stop ends the listen loop, waits for it, and closes the connection.
func (c *Client) Stop() {
	c.listening.Store(false)
	c.wg.Wait()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state.update(func(id *Identity) { *id = Identity{} })
}

// Identity reports the current mirrored session state.
func (c *Client) Identity() Identity {
	return c.state.snapshot()
}

// SendCommand writes one raw protocol line; the front end's command table
// builds them.
func (c *Client) SendCommand(line string) error {
	if !c.state.snapshot().Connected {
		return ErrNotConnected
	}
	return c.sendLine(line)
}

// SendChat relays free text, splitting oversize payloads into consecutive
// /m fragments of at most MaxMsgSize bytes. Preconditions are checked
// locally: a disconnected, channel-less, or muted client never emits a
// fragment.
func (c *Client) SendChat(text string) error {
	id := c.state.snapshot()
	switch {
	case !id.Connected:
		return ErrNotConnected
	case id.Channel == "":
		return ErrNoChannel
	case id.IsMuted:
		return ErrMuted
	}
	for _, part := range proto.Chunks(text, proto.MaxMsgSize) {
		if err := c.sendLine(proto.CmdMsg + " " + part); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendLine(line string) error {
	_, err := c.conn.WriteString(line)
	return err
}

func (c *Client) listenLoop() {
	defer c.wg.Done()

	for c.listening.Load() {
		line, err := c.conn.SafeRead(proto.ReadLimit, c.cfg.PollInterval)
		if errors.Is(err, netx.ErrNoData) {
			continue
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("read failed")
			c.listening.Store(false)
			c.state.update(func(id *Identity) { *id = Identity{} })
			c.ui.RequestClose("Connection lost!")
			return
		}
		c.handleLine(line)
	}
}

// handleLine updates the mirrored state from one pushed server line.
// Unknown slash-prefixed lines are ignored; anything else is a chat payload.
func (c *Client) handleLine(line string) {
	if line == "" {
		c.listening.Store(false)
		c.state.update(func(id *Identity) { *id = Identity{} })
		c.ui.Info("Server disconnected!")
		c.ui.RequestClose("Press enter to exit...")
		return
	}
	if !strings.HasPrefix(line, "/") {
		c.ui.Chat(line)
		return
	}

	switch {
	case strings.HasPrefix(line, proto.NotifyYouAre+" "):
		nick := line[len(proto.NotifyYouAre)+1:]
		c.state.update(func(id *Identity) { id.Nickname = nick })
		c.ui.UpdatePrompt(c.state.snapshot())

	case strings.HasPrefix(line, proto.NotifyJoined+" "):
		rest := line[len(proto.NotifyJoined)+1:]
		channel, role, ok := strings.Cut(rest, " ")
		if !ok {
			return
		}
		c.state.update(func(id *Identity) {
			id.Channel = channel
			id.IsAdmin = role == proto.RoleAdmin
		})
		c.ui.UpdatePrompt(c.state.snapshot())
		c.ui.Info("Joined channel " + channel + " as " + role + " successfully!")

	case line == proto.NotifyKicked:
		c.state.update(func(id *Identity) {
			id.Channel = ""
			id.IsAdmin = false
			id.IsMuted = false
		})
		c.ui.UpdatePrompt(c.state.snapshot())
		c.ui.Info("You have been kicked from your current channel!")

	case line == proto.NotifyMuted:
		c.state.update(func(id *Identity) { id.IsMuted = true })
		c.ui.Info("You have been muted!")

	case line == proto.NotifyUnmuted:
		c.state.update(func(id *Identity) { id.IsMuted = false })
		c.ui.Info("You have been unmuted!")

	case strings.HasPrefix(line, proto.NotifyMsg+" "):
		rest := line[len(proto.NotifyMsg)+1:]
		from, text, ok := strings.Cut(rest, " ")
		if !ok {
			return
		}
		c.ui.Chat(from + ": " + text)
	}
}
