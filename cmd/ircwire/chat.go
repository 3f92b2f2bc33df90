package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/client"
	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/proto"
)

// termUI is a minimal stdout front end behind the client.UI boundary. A
// richer line-editing front end can replace it without touching the client
// core.
type termUI struct {
	mu     sync.Mutex
	prompt string
	closed atomic.Bool
}

func newTermUI() *termUI {
	return &termUI{prompt: "> "}
}

func (u *termUI) Chat(line string) { u.println(line) }
func (u *termUI) Info(line string) { u.println("* " + line) }

func (u *termUI) UpdatePrompt(id client.Identity) {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch {
	case id.Nickname == "":
		u.prompt = "> "
	case id.Channel == "":
		u.prompt = id.Nickname + "> "
	default:
		u.prompt = id.Nickname + "@" + id.Channel + "> "
	}
}

func (u *termUI) RequestClose(reason string) {
	u.println("* " + reason)
	u.closed.Store(true)
}

func (u *termUI) println(line string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Println(line)
}

func (u *termUI) printPrompt() {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Print(u.prompt)
}

// command maps one slash command of the front end to an outbound protocol
// line, with usage and precondition checks applied before touching the wire.
type command struct {
	usage       string
	needChannel bool
	run         func(cl *client.Client, arg string) error
}

var commands = map[string]command{
	"/ping": {usage: "/ping", run: func(cl *client.Client, _ string) error {
		return cl.SendCommand(proto.CmdPing)
	}},
	"/nickname": {usage: "/nickname <nickname>", run: func(cl *client.Client, arg string) error {
		return cl.SendCommand(proto.CmdNickname + " " + arg)
	}},
	"/join": {usage: "/join <channel>", run: func(cl *client.Client, arg string) error {
		return cl.SendCommand(proto.CmdJoin + " " + arg)
	}},
	"/mute": {usage: "/mute <nickname>", needChannel: true, run: func(cl *client.Client, arg string) error {
		return cl.SendCommand(proto.CmdMute + " " + arg)
	}},
	"/unmute": {usage: "/unmute <nickname>", needChannel: true, run: func(cl *client.Client, arg string) error {
		return cl.SendCommand(proto.CmdUnmute + " " + arg)
	}},
	"/whois": {usage: "/whois <nickname>", needChannel: true, run: func(cl *client.Client, arg string) error {
		return cl.SendCommand(proto.CmdWhois + " " + arg)
	}},
	"/kick": {usage: "/kick <nickname>", needChannel: true, run: func(cl *client.Client, arg string) error {
		return cl.SendCommand(proto.CmdKick + " " + arg)
	}},
}

func runChat(ctx context.Context, host string, cfg config.Config, logger *zerolog.Logger) error {
	ui := newTermUI()
	cl := client.New(ui, cfg, logger)
	defer cl.Stop()

	ui.Info("Type /connect <address> to connect, /quit to exit.")
	if host != "" {
		if err := cl.Connect(host); err != nil {
			ui.Info("Error connecting to " + host + ": " + err.Error())
		}
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		ui.printPrompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || ui.closed.Load() {
				return nil
			}
			if done := handleInput(ui, cl, strings.TrimSpace(line)); done {
				return nil
			}
		}
	}
}

func handleInput(ui *termUI, cl *client.Client, line string) bool {
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		switch err := cl.SendChat(line); err {
		case nil:
		case client.ErrNotConnected:
			ui.Info("You must be connected to send messages!")
		case client.ErrNoChannel:
			ui.Info("You must be in a channel to send messages!")
		case client.ErrMuted:
			ui.Info("You are muted in this channel!")
		default:
			ui.Info("Error sending message: " + err.Error())
		}
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/connect":
		if arg == "" {
			ui.Info("Usage: /connect <address>")
			return false
		}
		if err := cl.Connect(arg); err != nil {
			ui.Info("Error connecting to " + arg + ": " + err.Error())
		}
		return false
	}

	cmd, ok := commands[name]
	if !ok {
		ui.Info("Unknown command: " + name)
		return false
	}
	if cmd.usage != name && arg == "" {
		ui.Info("Usage: " + cmd.usage)
		return false
	}

	id := cl.Identity()
	if !id.Connected {
		ui.Info("You must be connected to use this command!")
		return false
	}
	if cmd.needChannel && id.Channel == "" {
		ui.Info("You must be in a channel to use this command!")
		return false
	}
	if err := cmd.run(cl, arg); err != nil {
		ui.Info("Error: " + err.Error())
	}
	return false
}
