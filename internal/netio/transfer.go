// Package netio moves fixed-size control messages over a connection under an
// absolute deadline. A transfer either moves the whole buffer or fails; there
// is no partial success.
package netio

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrTimeout    = errors.New("timed out")
	ErrPeerClosed = errors.New("peer closed connection")
	ErrIO         = errors.New("i/o failure")
)

// Dir selects the transfer direction.
type Dir int

const (
	Recv Dir = iota
	Send
)

// Conn is the slice of net.Conn a transfer needs. os.File also satisfies it,
// which the raw-socket transports rely on.
type Conn interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Transfer reads or writes exactly len(buf) bytes before deadline. Only the
// deadline for the direction in use is armed. A read of zero bytes means the
// peer closed; transient timeouts inside the window retry until the deadline
// itself expires.
func Transfer(conn Conn, dir Dir, buf []byte, deadline time.Time) error {
	for len(buf) > 0 {
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		var n int
		var err error
		if dir == Recv {
			if err = conn.SetReadDeadline(deadline); err != nil {
				return fmt.Errorf("%w: %v", ErrIO, err)
			}
			n, err = conn.Read(buf)
		} else {
			if err = conn.SetWriteDeadline(deadline); err != nil {
				return fmt.Errorf("%w: %v", ErrIO, err)
			}
			n, err = conn.Write(buf)
		}
		buf = buf[n:]
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				return ErrPeerClosed
			default:
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					// Loop re-checks the absolute deadline.
					continue
				}
				return fmt.Errorf("%w: %v", ErrIO, err)
			}
		}
		if n == 0 && dir == Recv {
			return ErrPeerClosed
		}
	}
	return nil
}
