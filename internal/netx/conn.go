// Package netx implements the raw stream-socket endpoint and the readiness
// multiplexer the chat loops are built on.
//
// The server polls many connections from a single goroutine per role (one
// accepting, one listening), so connections expose select-style readiness
// through Select and a bounded-timeout SafeRead instead of relying on one
// blocked goroutine per peer.
package netx

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// ListenBacklog is the pending-connection queue depth for listening sockets.
const ListenBacklog = 10

var (
	// ErrResolve reports a failed host name resolution; callers may retry
	// with a different address.
	ErrResolve = errors.New("address resolution failed")

	// ErrRefused reports that the peer actively refused the connection.
	ErrRefused = errors.New("connection refused")

	// ErrConnectTimeout reports that the bounded connect window elapsed
	// before the peer answered.
	ErrConnectTimeout = errors.New("connect timed out")

	// ErrNoData is returned by SafeRead when nothing was readable within
	// the timeout. It is distinct from an empty read, which means the peer
	// closed the connection.
	ErrNoData = errors.New("no data within timeout")

	// ErrUnusable is returned by WriteString when the descriptor is
	// already in an error state.
	ErrUnusable = errors.New("socket in error state")
)

// Conn is a single bidirectional stream endpoint owning one socket
// descriptor. A Conn is never shared: each session or client holds exactly
// one, and its owner closes it.
type Conn struct {
	fd       int
	peerIP   string
	peerPort int
}

// NewTCP opens an unconnected IPv4 stream socket.
func NewTCP() (*Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)
	return &Conn{fd: fd}, nil
}

func resolve(host, port string) (*unix.SockaddrInet4, error) {
	if host == "*" {
		host = ""
	}
	addr, err := net.ResolveTCPAddr("tcp4", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%s", ErrResolve, host, port)
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip := addr.IP.To4(); ip != nil {
		copy(sa.Addr[:], ip)
	}
	return sa, nil
}

// SetReuseAddr marks the local address reusable; set before Bind.
func (c *Conn) SetReuseAddr() error {
	if err := unix.SetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("setsockopt: %w", err)
	}
	return nil
}

// SetBlocking toggles the descriptor between blocking and non-blocking mode.
func (c *Conn) SetBlocking(blocking bool) error {
	if err := unix.SetNonblock(c.fd, !blocking); err != nil {
		return fmt.Errorf("set blocking mode: %w", err)
	}
	return nil
}

// Bind attaches the socket to host:port. The host "*" binds all interfaces.
func (c *Conn) Bind(host, port string) error {
	sa, err := resolve(host, port)
	if err != nil {
		return err
	}
	if err := unix.Bind(c.fd, sa); err != nil {
		return fmt.Errorf("bind %s:%s: %w", host, port, err)
	}
	return nil
}

// Listen marks the socket as accepting with the package backlog.
func (c *Conn) Listen() error {
	if err := unix.Listen(c.fd, ListenBacklog); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Accept takes one pending connection off the listen queue and returns it
// with its peer address resolved.
func (c *Conn) Accept() (*Conn, error) {
	nfd, sa, err := unix.Accept(c.fd)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	unix.CloseOnExec(nfd)
	conn := &Conn{fd: nfd}
	if inet, ok := sa.(*unix.SockaddrInet4); ok {
		conn.peerIP = net.IP(inet.Addr[:]).String()
		conn.peerPort = inet.Port
	}
	return conn, nil
}

// Connect dials host:port. When the socket is in non-blocking mode the
// in-progress connect is resolved through a bounded write-readiness poll:
// the outcome is nil, ErrRefused, ErrConnectTimeout, or a fatal error.
func (c *Conn) Connect(host, port string, timeout time.Duration) error {
	sa, err := resolve(host, port)
	if err != nil {
		return err
	}

	err = unix.Connect(c.fd, sa)
	switch {
	case err == nil:
	case errors.Is(err, unix.EINPROGRESS):
		writes := []*Conn{c}
		n, selErr := Select(nil, &writes, nil, timeout)
		if selErr != nil {
			return selErr
		}
		if n == 0 {
			return ErrConnectTimeout
		}
		soerr, optErr := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if optErr != nil {
			return fmt.Errorf("getsockopt: %w", optErr)
		}
		switch {
		case soerr == 0:
		case soerr == int(unix.ECONNREFUSED):
			return ErrRefused
		default:
			return fmt.Errorf("connect: %w", unix.Errno(soerr))
		}
	case errors.Is(err, unix.ECONNREFUSED):
		return ErrRefused
	default:
		return fmt.Errorf("connect: %w", err)
	}

	c.peerIP = net.IP(sa.Addr[:]).String()
	c.peerPort = sa.Port
	return nil
}

// WriteString sends one wire line. If the descriptor is already in an error
// state it returns ErrUnusable without attempting the send.
func (c *Conn) WriteString(s string) (int, error) {
	soerr, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || soerr != 0 {
		return 0, ErrUnusable
	}
	n, err := unix.Write(c.fd, []byte(s))
	if err != nil {
		return n, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

// Read performs one blocking receive bounded to maxLen bytes. It returns an
// empty string with a nil error when the peer closed the connection.
func (c *Conn) Read(maxLen int) (string, error) {
	buf := make([]byte, maxLen)
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if n == 0 {
		return "", nil
	}
	return strings.TrimRight(string(buf[:n]), "\r\n\x00"), nil
}

// SafeRead polls for readability first and returns ErrNoData if nothing is
// ready within timeout; otherwise it behaves like Read. The bounded poll is
// what keeps the listen loops responsive to their shutdown flags.
func (c *Conn) SafeRead(maxLen int, timeout time.Duration) (string, error) {
	reads := []*Conn{c}
	n, err := Select(&reads, nil, nil, timeout)
	if err != nil {
		return "", err
	}
	if n < 1 {
		return "", ErrNoData
	}
	return c.Read(maxLen)
}

// RemoteIP reports the resolved peer address of a connected or accepted
// socket.
func (c *Conn) RemoteIP() string {
	return c.peerIP
}

// LocalPort reports the bound local port, which is only known after Bind
// (or the kernel's pick when bound to port 0).
func (c *Conn) LocalPort() (string, error) {
	sa, err := unix.Getsockname(c.fd)
	if err != nil {
		return "", fmt.Errorf("getsockname: %w", err)
	}
	inet, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", fmt.Errorf("getsockname: unexpected address family")
	}
	return strconv.Itoa(inet.Port), nil
}

// Shutdown disables further sends and receives on the connection.
func (c *Conn) Shutdown() error {
	if err := unix.Shutdown(c.fd, unix.SHUT_RDWR); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the descriptor.
func (c *Conn) Close() error {
	if err := unix.Close(c.fd); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
