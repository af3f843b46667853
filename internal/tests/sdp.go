package tests

import (
	"golang.org/x/sys/unix"

	"github.com/mark-e-deyoung/qperf/internal/run"
)

// SDP carries the stream engine over AF_INET_SDP sockets. On kernels without
// the SDP module the socket call fails and the test unwinds through the
// normal error path.
var sdpStream = stream{
	dial: func(rt *run.Runtime, port uint32) (dataConn, error) {
		ip, err := resolveIP4(rt.ServerName)
		if err != nil {
			return nil, err
		}
		raddr := &unix.SockaddrInet4{Port: int(port), Addr: ip}
		return rawDial(afInetSDP, unix.SOCK_STREAM, nil, raddr, rt.Req.SockBufSize, "sdp")
	},
	listen: func(rt *run.Runtime, port uint32) (dataListener, error) {
		return rawListenStream(afInetSDP, &unix.SockaddrInet4{Port: int(port)}, "sdp")
	},
}

func clientSDPBW(rt *run.Runtime) error  { return streamClientBW(rt, sdpStream) }
func serverSDPBW(rt *run.Runtime) error  { return streamServerBW(rt, sdpStream) }
func clientSDPLat(rt *run.Runtime) error { return streamClientLat(rt, sdpStream) }
func serverSDPLat(rt *run.Runtime) error { return streamServerLat(rt, sdpStream) }
