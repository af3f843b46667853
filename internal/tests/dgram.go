package tests

import (
	"github.com/mark-e-deyoung/qperf/internal/run"
)

// Shared datagram loops. The conn is already connected to the peer; each
// write or read moves one message. Datagram loss is expected and simply goes
// uncounted.

func dgramClientBW(rt *run.Runtime, conn dataConn) {
	armRun(rt, conn)
	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return
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
		sent++
		if werr != nil {
			// Transient for datagrams; count and keep going.
			rt.LStat.S.NoErrs++
			continue
		}
		rt.LStat.S.NoBytes += uint64(len(buf))
		rt.LStat.S.NoMsgs++
	}
	rt.Timer.Stop()
	_ = conn.Close()
	rt.Successful = true
	rt.ExchangeResults()
	rt.ShowResults(run.Bandwidth)
}

func dgramClientLat(rt *run.Runtime, conn dataConn) {
	armRun(rt, conn)
	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return
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

		n, rerr := conn.Read(buf)
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
	}
	rt.Timer.Stop()
	_ = conn.Close()
	rt.Successful = true
	rt.ExchangeResults()
	rt.ShowResults(run.Latency)
}

// dgramServerBW receives on an already-bound conn until the run ends.
func dgramServerBW(rt *run.Runtime, conn dataConn) {
	armRun(rt, conn)
	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return
	}
	for !rt.Timer.Finished() {
		refreshIdle(rt, conn)
		n, rerr := conn.Read(buf)
		if rt.Timer.Finished() {
			break
		}
		if rerr != nil {
			if isTimeout(rerr) {
				break
			}
			rt.LStat.R.NoErrs++
			continue
		}
		run.TouchData(buf[:n])
		rt.LStat.R.NoBytes += uint64(n)
		rt.LStat.R.NoMsgs++
	}
	rt.Timer.Stop()
	rt.Successful = true
	rt.ExchangeResults()
}

// dgramServerLat echoes every message on a connected conn.
func dgramServerLat(rt *run.Runtime, conn dataConn) {
	armRun(rt, conn)
	buf := make([]byte, rt.Req.MsgSize)
	if rt.Synchronize() != nil {
		return
	}
	echoLoop(rt, conn, buf)
	rt.Timer.Stop()
	rt.Successful = true
	rt.ExchangeResults()
}

// echoLoop reads and writes back messages until the run ends.
func echoLoop(rt *run.Runtime, conn dataConn, buf []byte) {
	for !rt.Timer.Finished() {
		refreshIdle(rt, conn)
		n, rerr := conn.Read(buf)
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

		_, werr := conn.Write(buf[:n])
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
}
