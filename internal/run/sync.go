package run

import "github.com/mark-e-deyoung/qperf/internal/proto"

// SendSync sends the barrier token.
func (rt *Runtime) SendSync() error {
	mesg := proto.SyncMesg
	return rt.SendMesg(mesg[:], "sync")
}

// RecvSync receives and checks the barrier token.
func (rt *Runtime) RecvSync() error {
	var data [proto.SyncSize]byte
	if err := rt.RecvMesg(data[:], "sync"); err != nil {
		return err
	}
	if data != proto.SyncMesg {
		return rt.Errorf("sync failure: data does not match")
	}
	return nil
}

// Synchronize runs the two-phase barrier and starts both sides' timers with
// the negotiated test duration. The client sends first.
func (rt *Runtime) Synchronize() error {
	if rt.IsClient() {
		if err := rt.SendSync(); err != nil {
			return err
		}
		if err := rt.RecvSync(); err != nil {
			return err
		}
	} else {
		if err := rt.RecvSync(); err != nil {
			return err
		}
		if err := rt.SendSync(); err != nil {
			return err
		}
	}
	rt.Debugf("sync completed")
	return rt.Timer.Start(rt.Req.Time)
}

// ExchangeResults swaps the two sides' statistics after timing stops. The
// trailing sync confirms the client left its loop before the server tears
// down whatever medium the test used. Any failure leaves Successful false,
// which suppresses presentation.
func (rt *Runtime) ExchangeResults() {
	if !rt.Successful {
		return
	}
	rt.Successful = false
	if rt.IsClient() {
		buf := make([]byte, proto.StatSize)
		if rt.RecvMesg(buf, "results") != nil {
			return
		}
		if err := proto.DecodeStat(buf, &rt.RStat); err != nil {
			_ = rt.Errorf("failed to decode results: %v", err)
			return
		}
		if rt.SendSync() != nil {
			return
		}
	} else {
		if rt.SendMesg(proto.EncodeStat(&rt.LStat), "results") != nil {
			return
		}
		if rt.RecvSync() != nil {
			return
		}
	}
	rt.Successful = true
}
