package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/vovakirdan/ircwire/internal/netx"
	"github.com/vovakirdan/ircwire/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("tcp_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	host := flag.String("host", "localhost", "server host")
	port := flag.String("port", proto.DefaultPort, "server port")
	room := flag.String("room", "#smoke", "channel to join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	conn, err := netx.NewTCP()
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	defer conn.Close()

	if err := conn.SetBlocking(false); err != nil {
		return err
	}
	if err := conn.Connect(*host, *port, *timeout); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := conn.SetBlocking(true); err != nil {
		return err
	}
	fmt.Printf("Connected to %s:%s\n", *host, *port)

	deadline := time.Now().Add(*timeout)
	expect := func(cmd, prefix string) (string, error) {
		if _, err := conn.WriteString(cmd); err != nil {
			return "", fmt.Errorf("send %s: %w", cmd, err)
		}
		for time.Now().Before(deadline) {
			line, err := conn.SafeRead(proto.ReadLimit, 200*time.Millisecond)
			if errors.Is(err, netx.ErrNoData) {
				continue
			}
			if err != nil {
				return "", fmt.Errorf("read after %s: %w", cmd, err)
			}
			if line == "" {
				return "", fmt.Errorf("server closed the connection after %s", cmd)
			}
			fmt.Printf("Received: %s\n", line)
			if strings.HasPrefix(line, prefix) {
				return line, nil
			}
		}
		return "", fmt.Errorf("timed out waiting for %q after %s", prefix, cmd)
	}

	if _, err := expect(proto.CmdWhoami, proto.NotifyYouAre); err != nil {
		return err
	}
	if _, err := expect(proto.CmdPing, proto.ReplyPong); err != nil {
		return err
	}
	if _, err := expect(proto.CmdJoin+" "+*room, proto.NotifyJoined); err != nil {
		return err
	}
	if _, err := conn.WriteString(proto.CmdMsg + " " + *text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	fmt.Println("Smoke test passed")
	return nil
}
