package tests

import (
	"time"

	"github.com/mark-e-deyoung/qperf/internal/run"
)

// clientQuit tells the server to wind down the current exchange cleanly. The
// server's accept loop keeps running.
func clientQuit(rt *run.Runtime) error {
	if err := rt.ClientConnect(); err != nil {
		return err
	}
	if rt.Synchronize() != nil {
		return nil
	}
	rt.Timer.Stop()
	rt.Successful = true
	return nil
}

// serverQuit syncs and then waits for the client to close first so teardown
// is clean on both ends.
func serverQuit(rt *run.Runtime) error {
	if rt.Synchronize() != nil {
		return nil
	}
	rt.Timer.Stop()
	var buf [1]byte
	_ = rt.Conn.SetReadDeadline(time.Now().Add(time.Duration(rt.Req.Timeout) * time.Second))
	_, _ = rt.Conn.Read(buf[:])
	rt.Successful = true
	return nil
}
