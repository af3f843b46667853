package tests

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/mark-e-deyoung/qperf/internal/param"
	"github.com/mark-e-deyoung/qperf/internal/proto"
	"github.com/mark-e-deyoung/qperf/internal/run"
)

// Default message sizes, overridden by --msg_size.
const (
	defBWMsgSize  = 64 * 1024
	defLatMsgSize = 1
	defUDPMsgSize = 32 * 1024
)

// dataConn is the slice of net.Conn the engines need. os.File satisfies it
// too, which the raw-socket transports use.
type dataConn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// dataListener hands out one data connection for a stream test.
type dataListener interface {
	accept(timeout time.Duration) (dataConn, error)
	port() uint32
	close() error
}

// stream bundles how a stream transport opens its data path.
type stream struct {
	dial   func(rt *run.Runtime, port uint32) (dataConn, error)
	listen func(rt *run.Runtime, port uint32) (dataListener, error)
}

// markStreamParams notes the parameters the stream engines consult.
func markStreamParams(rt *run.Runtime, defSize uint32) {
	rt.Tab.SetDefaultU32(param.LMsgSize, defSize)
	rt.Tab.SetDefaultU32(param.RMsgSize, defSize)
	rt.Tab.Use(param.LPort)
	rt.Tab.Use(param.RPort)
	rt.Tab.Use(param.LSockBufSize)
	rt.Tab.Use(param.RSockBufSize)
	rt.Tab.Use(param.LNoMsgs)
	rt.Tab.Use(param.RNoMsgs)
}

func sendPort(rt *run.Runtime, port uint32) error {
	e := proto.NewEncoder(4)
	e.PutInt(uint64(port), 4)
	return rt.SendMesg(e.Bytes(), "port")
}

func recvPort(rt *run.Runtime) (uint32, error) {
	var buf [4]byte
	if err := rt.RecvMesg(buf[:], "port"); err != nil {
		return 0, err
	}
	return uint32(proto.NewDecoder(buf[:]).Int(4)), nil
}

// armRun attaches the finish hook that expires the data connection's
// deadline and arms a whole-run backstop.
func armRun(rt *run.Runtime, conn dataConn) {
	rt.Timer.OnFinish(func() { _ = conn.SetDeadline(time.Now()) })
	_ = conn.SetDeadline(time.Now().Add(time.Duration(rt.Req.Time+rt.Req.Timeout) * time.Second))
}

// refreshIdle re-arms a per-message idle deadline for message-count-bounded
// runs, which have no wall-clock bound of their own.
func refreshIdle(rt *run.Runtime, conn dataConn) {
	if rt.Req.Time == 0 {
		_ = conn.SetDeadline(time.Now().Add(time.Duration(rt.Req.Timeout) * time.Second))
	}
}

// isTimeout matches deadline expiry from both net.Conn and os.File.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// streamClientBW pumps fixed-size messages at the server for the test
// duration. Only the send side is counted here; the server counts receives.
func streamClientBW(rt *run.Runtime, s stream) error {
	markStreamParams(rt, defBWMsgSize)
	if err := rt.ClientConnect(); err != nil {
		return err
	}
	port, err := recvPort(rt)
	if err != nil {
		return nil
	}
	conn, err := s.dial(rt, port)
	if err != nil {
		return rt.Errorf("failed to connect to data port %d: %v", port, err)
	}
	defer conn.Close()
	armRun(rt, conn)

	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return nil
	}
	var sent uint64
	for !rt.Timer.Finished() {
		if rt.LeftToSend(sent, 1) == 0 {
			break
		}
		refreshIdle(rt, conn)
		_, werr := conn.Write(buf)
		if rt.Timer.Finished() {
			break
		}
		if werr != nil {
			rt.LStat.S.NoErrs++
			break
		}
		sent++
		rt.LStat.S.NoBytes += uint64(len(buf))
		rt.LStat.S.NoMsgs++
	}
	rt.Timer.Stop()
	_ = conn.Close()
	rt.Successful = true
	rt.ExchangeResults()
	rt.ShowResults(run.Bandwidth)
	return nil
}

// streamServerBW receives messages until the timer fires or the sender goes
// away.
func streamServerBW(rt *run.Runtime, s stream) error {
	l, err := s.listen(rt, rt.Req.Port)
	if err != nil {
		return rt.Errorf("failed to open data port: %v", err)
	}
	defer l.close()
	if sendPort(rt, l.port()) != nil {
		return nil
	}
	conn, err := l.accept(time.Duration(rt.Req.Timeout) * time.Second)
	if err != nil {
		return rt.Errorf("failed to accept data connection: %v", err)
	}
	defer conn.Close()
	armRun(rt, conn)

	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return nil
	}
	for !rt.Timer.Finished() {
		refreshIdle(rt, conn)
		n, rerr := conn.Read(buf)
		if rt.Timer.Finished() {
			break
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || isTimeout(rerr) {
				break
			}
			rt.LStat.R.NoErrs++
			break
		}
		run.TouchData(buf[:n])
		rt.LStat.R.NoBytes += uint64(n)
		rt.LStat.R.NoMsgs++
	}
	rt.Timer.Stop()
	rt.Successful = true
	rt.ExchangeResults()
	return nil
}

// streamClientLat ping-pongs messages and reports the round-trip derived
// latency.
func streamClientLat(rt *run.Runtime, s stream) error {
	markStreamParams(rt, defLatMsgSize)
	if err := rt.ClientConnect(); err != nil {
		return err
	}
	port, err := recvPort(rt)
	if err != nil {
		return nil
	}
	conn, err := s.dial(rt, port)
	if err != nil {
		return rt.Errorf("failed to connect to data port %d: %v", port, err)
	}
	defer conn.Close()
	armRun(rt, conn)

	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return nil
	}
	var sent uint64
	for !rt.Timer.Finished() {
		if rt.LeftToSend(sent, 1) == 0 {
			break
		}
		refreshIdle(rt, conn)
		_, werr := conn.Write(buf)
		if rt.Timer.Finished() {
			break
		}
		if werr != nil {
			rt.LStat.S.NoErrs++
			break
		}
		sent++
		rt.LStat.S.NoBytes += uint64(len(buf))
		rt.LStat.S.NoMsgs++

		_, rerr := io.ReadFull(conn, buf)
		if rt.Timer.Finished() {
			break
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && !isTimeout(rerr) {
				rt.LStat.R.NoErrs++
			}
			break
		}
		run.TouchData(buf)
		rt.LStat.R.NoBytes += uint64(len(buf))
		rt.LStat.R.NoMsgs++
	}
	rt.Timer.Stop()
	_ = conn.Close()
	rt.Successful = true
	rt.ExchangeResults()
	rt.ShowResults(run.Latency)
	return nil
}

// streamServerLat echoes every message back.
func streamServerLat(rt *run.Runtime, s stream) error {
	l, err := s.listen(rt, rt.Req.Port)
	if err != nil {
		return rt.Errorf("failed to open data port: %v", err)
	}
	defer l.close()
	if sendPort(rt, l.port()) != nil {
		return nil
	}
	conn, err := l.accept(time.Duration(rt.Req.Timeout) * time.Second)
	if err != nil {
		return rt.Errorf("failed to accept data connection: %v", err)
	}
	defer conn.Close()
	armRun(rt, conn)

	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return nil
	}
	for !rt.Timer.Finished() {
		refreshIdle(rt, conn)
		_, rerr := io.ReadFull(conn, buf)
		if rt.Timer.Finished() {
			break
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && !isTimeout(rerr) {
				rt.LStat.R.NoErrs++
			}
			break
		}
		run.TouchData(buf)
		rt.LStat.R.NoBytes += uint64(len(buf))
		rt.LStat.R.NoMsgs++

		_, werr := conn.Write(buf)
		if rt.Timer.Finished() {
			break
		}
		if werr != nil {
			rt.LStat.S.NoErrs++
			break
		}
		rt.LStat.S.NoBytes += uint64(len(buf))
		rt.LStat.S.NoMsgs++
	}
	rt.Timer.Stop()
	rt.Successful = true
	rt.ExchangeResults()
	return nil
}
