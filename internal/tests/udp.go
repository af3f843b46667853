package tests

import (
	"net"
	"strconv"

	"github.com/mark-e-deyoung/qperf/internal/run"
)

// UDP tests use a connected socket on the client and an unconnected one on
// the server so the echo side can reply to whoever is testing.

func dialUDP(rt *run.Runtime, port uint32) (*net.UDPConn, error) {
	addr := net.JoinHostPort(rt.ServerName, strconv.Itoa(int(port)))
	c, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	udp := c.(*net.UDPConn)
	if rt.Req.SockBufSize > 0 {
		_ = udp.SetReadBuffer(int(rt.Req.SockBufSize))
		_ = udp.SetWriteBuffer(int(rt.Req.SockBufSize))
	}
	return udp, nil
}

func listenUDP(rt *run.Runtime) (*net.UDPConn, uint32, error) {
	c, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(rt.Req.Port)})
	if err != nil {
		return nil, 0, err
	}
	if rt.Req.SockBufSize > 0 {
		_ = c.SetReadBuffer(int(rt.Req.SockBufSize))
		_ = c.SetWriteBuffer(int(rt.Req.SockBufSize))
	}
	return c, uint32(c.LocalAddr().(*net.UDPAddr).Port), nil
}

func udpClient(rt *run.Runtime, defSize uint32, body func(*run.Runtime, dataConn)) error {
	markStreamParams(rt, defSize)
	if err := rt.ClientConnect(); err != nil {
		return err
	}
	port, err := recvPort(rt)
	if err != nil {
		return nil
	}
	conn, err := dialUDP(rt, port)
	if err != nil {
		return rt.Errorf("failed to open data socket: %v", err)
	}
	defer conn.Close()
	body(rt, conn)
	return nil
}

func clientUDPBW(rt *run.Runtime) error {
	return udpClient(rt, defUDPMsgSize, dgramClientBW)
}

func clientUDPLat(rt *run.Runtime) error {
	return udpClient(rt, defLatMsgSize, dgramClientLat)
}

func serverUDPBW(rt *run.Runtime) error {
	conn, port, err := listenUDP(rt)
	if err != nil {
		return rt.Errorf("failed to open data port: %v", err)
	}
	defer conn.Close()
	if sendPort(rt, port) != nil {
		return nil
	}
	dgramServerBW(rt, conn)
	return nil
}

// serverUDPLat echoes each datagram back to its sender.
func serverUDPLat(rt *run.Runtime) error {
	conn, port, err := listenUDP(rt)
	if err != nil {
		return rt.Errorf("failed to open data port: %v", err)
	}
	defer conn.Close()
	if sendPort(rt, port) != nil {
		return nil
	}
	armRun(rt, conn)

	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return nil
	}
	for !rt.Timer.Finished() {
		refreshIdle(rt, conn)
		n, peer, rerr := conn.ReadFromUDP(buf)
		if rt.Timer.Finished() {
			break
		}
		if rerr != nil {
			if !isTimeout(rerr) {
				rt.LStat.R.NoErrs++
			}
			break
		}
		run.TouchData(buf[:n])
		rt.LStat.R.NoBytes += uint64(n)
		rt.LStat.R.NoMsgs++

		_, werr := conn.WriteToUDP(buf[:n], peer)
		if rt.Timer.Finished() {
			break
		}
		if werr != nil {
			rt.LStat.S.NoErrs++
			break
		}
		rt.LStat.S.NoBytes += uint64(n)
		rt.LStat.S.NoMsgs++
	}
	rt.Timer.Stop()
	rt.Successful = true
	rt.ExchangeResults()
	return nil
}
