package tests

import (
	"net"
	"strconv"
	"time"

	"github.com/mark-e-deyoung/qperf/internal/run"
)

// tcpStream opens the data path over plain TCP. The socket buffer parameter
// maps onto SO_SNDBUF/SO_RCVBUF.
var tcpStream = stream{
	dial: func(rt *run.Runtime, port uint32) (dataConn, error) {
		addr := net.JoinHostPort(rt.ServerName, strconv.Itoa(int(port)))
		c, err := net.DialTimeout("tcp", addr, time.Duration(rt.Req.Timeout)*time.Second)
		if err != nil {
			return nil, err
		}
		tuneTCP(c, rt.Req.SockBufSize)
		return c.(*net.TCPConn), nil
	},
	listen: func(rt *run.Runtime, port uint32) (dataListener, error) {
		ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(int(port))))
		if err != nil {
			return nil, err
		}
		return &tcpListener{ln: ln.(*net.TCPListener), bufSize: rt.Req.SockBufSize}, nil
	},
}

func tuneTCP(c net.Conn, bufSize uint32) {
	tcp, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcp.SetNoDelay(true)
	if bufSize > 0 {
		_ = tcp.SetReadBuffer(int(bufSize))
		_ = tcp.SetWriteBuffer(int(bufSize))
	}
}

type tcpListener struct {
	ln      *net.TCPListener
	bufSize uint32
}

func (l *tcpListener) accept(timeout time.Duration) (dataConn, error) {
	_ = l.ln.SetDeadline(time.Now().Add(timeout))
	c, err := l.ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tuneTCP(c, l.bufSize)
	return c, nil
}

func (l *tcpListener) port() uint32 {
	return uint32(l.ln.Addr().(*net.TCPAddr).Port)
}

func (l *tcpListener) close() error { return l.ln.Close() }

func clientTCPBW(rt *run.Runtime) error  { return streamClientBW(rt, tcpStream) }
func serverTCPBW(rt *run.Runtime) error  { return streamServerBW(rt, tcpStream) }
func clientTCPLat(rt *run.Runtime) error { return streamClientLat(rt, tcpStream) }
func serverTCPLat(rt *run.Runtime) error { return streamServerLat(rt, tcpStream) }
