package tests

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mark-e-deyoung/qperf/internal/run"
)

// RDS is a connectionless reliable datagram service; sockets must be bound
// to a real local address before use. The data path binds to the same
// interface the control connection runs on. Kernels without the rds module
// fail the socket call and the test unwinds.

func rdsClient(rt *run.Runtime, defSize uint32, body func(*run.Runtime, dataConn)) error {
	markStreamParams(rt, defSize)
	if err := rt.ClientConnect(); err != nil {
		return err
	}
	port, err := recvPort(rt)
	if err != nil {
		return nil
	}
	lip, err := localIP4(rt.Conn)
	if err != nil {
		return rt.Errorf("%v", err)
	}
	rip, err := resolveIP4(rt.ServerName)
	if err != nil {
		return rt.Errorf("cannot resolve %s: %v", rt.ServerName, err)
	}
	conn, err := rawDial(unix.AF_RDS, unix.SOCK_SEQPACKET,
		&unix.SockaddrInet4{Addr: lip},
		&unix.SockaddrInet4{Port: int(port), Addr: rip},
		rt.Req.SockBufSize, "rds")
	if err != nil {
		return rt.Errorf("failed to open rds socket: %v", err)
	}
	defer conn.Close()
	body(rt, conn)
	return nil
}

func clientRDSBW(rt *run.Runtime) error {
	return rdsClient(rt, defUDPMsgSize, dgramClientBW)
}

func clientRDSLat(rt *run.Runtime) error {
	return rdsClient(rt, defLatMsgSize, dgramClientLat)
}

// rdsBind opens and binds the server's data socket, returning the raw fd and
// the chosen port.
func rdsBind(rt *run.Runtime) (int, uint32, error) {
	ip, err := localIP4(rt.Conn)
	if err != nil {
		return -1, 0, err
	}
	fd, err := unix.Socket(unix.AF_RDS, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return -1, 0, err
	}
	setSockBuf(fd, rt.Req.SockBufSize)
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(rt.Req.Port), Addr: ip}); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	sin, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("unexpected sockaddr type %T", sa)
	}
	return fd, uint32(sin.Port), nil
}

func serverRDSBW(rt *run.Runtime) error {
	fd, port, err := rdsBind(rt)
	if err != nil {
		return rt.Errorf("failed to open rds data port: %v", err)
	}
	conn, err := fileConn(fd, "rds")
	if err != nil {
		return rt.Errorf("failed to open rds data port: %v", err)
	}
	defer conn.Close()
	if sendPort(rt, port) != nil {
		return nil
	}
	dgramServerBW(rt, conn)
	return nil
}

// serverRDSLat learns the peer from the first datagram, connects back, and
// echoes from then on. The first message counts like any other.
func serverRDSLat(rt *run.Runtime) error {
	fd, port, err := rdsBind(rt)
	if err != nil {
		return rt.Errorf("failed to open rds data port: %v", err)
	}
	if sendPort(rt, port) != nil {
		unix.Close(fd)
		return nil
	}
	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		unix.Close(fd)
		return nil
	}

	wait := time.Duration(rt.Req.Time+rt.Req.Timeout) * time.Second
	n, peer, ferr := recvFirst(fd, buf, wait)
	if ferr != nil {
		unix.Close(fd)
		rt.Timer.Stop()
		rt.Successful = true
		rt.ExchangeResults()
		return nil
	}
	run.TouchData(buf[:n])
	rt.LStat.R.NoBytes += uint64(n)
	rt.LStat.R.NoMsgs++
	if err := unix.Connect(fd, peer); err != nil {
		unix.Close(fd)
		return rt.Errorf("failed to connect rds socket: %v", err)
	}
	conn, err := fileConn(fd, "rds")
	if err != nil {
		return rt.Errorf("failed to open rds data port: %v", err)
	}
	defer conn.Close()
	armRun(rt, conn)

	if _, err := conn.Write(buf[:n]); err == nil && !rt.Timer.Finished() {
		rt.LStat.S.NoBytes += uint64(n)
		rt.LStat.S.NoMsgs++
	}
	echoLoop(rt, conn, buf)
	rt.Timer.Stop()
	rt.Successful = true
	rt.ExchangeResults()
	return nil
}
