package datasync

import (
	"fmt"
	"net"
	"syscall"

	"github.com/sirupsen/logrus"
)

// DefaultBufferSize bounds the size of a received datagram.
const DefaultBufferSize = 1024

// Server receives datagrams on a UDP socket and decodes them with a fixed
// format. Reads never block: Messages drains whatever has arrived since the
// last call and returns immediately.
type Server struct {
	conn    *net.UDPConn
	raw     syscall.RawConn
	format  *Format
	bufSize int
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithBufferSize overrides the receive buffer size (default 1024).
func WithBufferSize(n int) ServerOption {
	return func(s *Server) {
		s.bufSize = n
	}
}

// NewServer binds a UDP socket at addr (host:port, usually on localhost)
// decoding datagrams with the given format string.
func NewServer(addr, format string, opts ...ServerOption) (*Server, error) {
	f, err := Compile(format)
	if err != nil {
		return nil, err
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("datasync: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("datasync: listen %s: %w", addr, err)
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("datasync: raw socket: %w", err)
	}
	s := &Server{conn: conn, raw: raw, format: f, bufSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(s)
	}
	logrus.Debugf("datasync: listening on %s with format %q", conn.LocalAddr(), format)
	return s, nil
}

// Addr returns the bound local address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Format returns the server's compiled message format.
func (s *Server) Format() *Format {
	return s.format
}

// Messages returns every message received since the last call, decoded with
// the server's format. Datagrams whose size does not match the format are
// logged and skipped. Never blocks: reads bypass the runtime poller with
// MSG_DONTWAIT so queued datagrams are drained even when no new one arrives.
func (s *Server) Messages() ([][]any, error) {
	var msgs [][]any
	buf := make([]byte, s.bufSize)
	for {
		n, from, drained, err := recvFromNonblock(s.raw, buf)
		if err != nil {
			return msgs, fmt.Errorf("datasync: read: %w", err)
		}
		if drained {
			return msgs, nil
		}
		vals, err := s.format.Unpack(buf[:n])
		if err != nil {
			logrus.Warnf("datasync: dropping %d-byte datagram from %s: %v", n, sockaddrString(from), err)
			continue
		}
		msgs = append(msgs, vals)
	}
}

// Close releases the socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

// Send packs values with the given format and sends the datagram to every
// port at ip. With broadcast set, the socket allows broadcast destinations.
func Send(ip string, ports []int, format string, broadcast bool, values ...any) error {
	data, err := Pack(format, values...)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return fmt.Errorf("datasync: open send socket: %w", err)
	}
	defer conn.Close()
	if broadcast {
		raw, err := conn.SyscallConn()
		if err != nil {
			return fmt.Errorf("datasync: broadcast setup: %w", err)
		}
		if err := setBroadcast(raw); err != nil {
			return fmt.Errorf("datasync: broadcast setup: %w", err)
		}
	}
	for _, port := range ports {
		dst := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
		if dst.IP == nil {
			return fmt.Errorf("datasync: invalid ip %q", ip)
		}
		if _, err := conn.WriteToUDP(data, dst); err != nil {
			return fmt.Errorf("datasync: send to %s: %w", dst, err)
		}
	}
	return nil
}
