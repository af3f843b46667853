package tests

import (
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Address families the net package has no dialer for. SDP presents the TCP
// API over InfiniBand; RDS is a reliable datagram service. Both are opened
// with raw sockets and wrapped in os.File so the poller and deadlines work.
const afInetSDP = 27

func resolveIP4(host string) ([4]byte, error) {
	var out [4]byte
	addr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return out, err
	}
	ip4 := addr.IP.To4()
	if ip4 == nil {
		return out, fmt.Errorf("%s: no IPv4 address", host)
	}
	copy(out[:], ip4)
	return out, nil
}

func setSockBuf(fd int, size uint32) {
	if size == 0 {
		return
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, int(size))
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, int(size))
}

// fileConn registers a raw fd with the runtime poller. The fd must be
// non-blocking first or deadlines will not work.
func fileConn(fd int, name string) (*os.File, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), name), nil
}

// rawDial opens, optionally binds, and connects a raw socket.
func rawDial(domain, typ int, laddr *unix.SockaddrInet4, raddr *unix.SockaddrInet4, bufSize uint32, name string) (*os.File, error) {
	fd, err := unix.Socket(domain, typ, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	setSockBuf(fd, bufSize)
	if laddr != nil {
		if err := unix.Bind(fd, laddr); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("bind: %w", err)
		}
	}
	if err := unix.Connect(fd, raddr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect: %w", err)
	}
	return fileConn(fd, name)
}

// rawListener accepts stream connections on a raw socket.
type rawListener struct {
	fd    int
	bound uint32
	name  string
}

func rawListenStream(domain int, laddr *unix.SockaddrInet4, name string) (*rawListener, error) {
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt: %w", err)
	}
	if err := unix.Bind(fd, laddr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind: %w", err)
	}
	if err := unix.Listen(fd, 5); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	sin, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		unix.Close(fd)
		return nil, fmt.Errorf("unexpected sockaddr type %T", sa)
	}
	return &rawListener{fd: fd, bound: uint32(sin.Port), name: name}, nil
}

func (l *rawListener) accept(timeout time.Duration) (dataConn, error) {
	if err := pollIn(l.fd, timeout); err != nil {
		return nil, err
	}
	nfd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	return fileConn(nfd, l.name)
}

func (l *rawListener) port() uint32 { return l.bound }

func (l *rawListener) close() error { return unix.Close(l.fd) }

// pollIn waits for readability, retrying signal interruption.
func pollIn(fd int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return os.ErrDeadlineExceeded
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(remain.Milliseconds())+1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n > 0 {
			return nil
		}
	}
}

// recvFirst waits for the first datagram on a raw socket and returns its
// sender, so a datagram server can connect back to the peer under test.
func recvFirst(fd int, buf []byte, timeout time.Duration) (int, *unix.SockaddrInet4, error) {
	if err := pollIn(fd, timeout); err != nil {
		return 0, nil, err
	}
	n, from, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		return 0, nil, fmt.Errorf("recvfrom: %w", err)
	}
	sin, ok := from.(*unix.SockaddrInet4)
	if !ok {
		return 0, nil, fmt.Errorf("unexpected sockaddr type %T", from)
	}
	return n, sin, nil
}

// localIP4 returns the IPv4 address of this end of the control connection,
// which is the interface the data path should use.
func localIP4(conn net.Conn) ([4]byte, error) {
	var out [4]byte
	tcp, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return out, fmt.Errorf("control connection has no TCP address")
	}
	ip4 := tcp.IP.To4()
	if ip4 == nil {
		return out, fmt.Errorf("control connection is not IPv4")
	}
	copy(out[:], ip4)
	return out, nil
}
