package datasync

import (
	"fmt"
	"net"
	"syscall"
)

// setBroadcast enables SO_BROADCAST on the socket underlying raw.
func setBroadcast(raw syscall.RawConn) error {
	var sockErr error
	err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// recvFromNonblock reads one datagram with MSG_DONTWAIT, bypassing the
// runtime poller's deadline handling. drained reports an empty receive
// queue.
func recvFromNonblock(raw syscall.RawConn, buf []byte) (n int, from syscall.Sockaddr, drained bool, err error) {
	cerr := raw.Control(func(fd uintptr) {
		n, from, err = syscall.Recvfrom(int(fd), buf, syscall.MSG_DONTWAIT)
	})
	if cerr != nil {
		return 0, nil, false, cerr
	}
	if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
		return 0, nil, true, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return n, from, false, nil
}

// sockaddrString renders a datagram source address for log lines.
func sockaddrString(sa syscall.Sockaddr) string {
	switch a := sa.(type) {
	case *syscall.SockaddrInet4:
		return fmt.Sprintf("%s:%d", net.IP(a.Addr[:]), a.Port)
	case *syscall.SockaddrInet6:
		return fmt.Sprintf("[%s]:%d", net.IP(a.Addr[:]), a.Port)
	}
	return "unknown"
}
