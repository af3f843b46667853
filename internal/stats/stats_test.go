package stats

import (
	"math"
	"testing"

	"github.com/mark-e-deyoung/qperf/internal/proto"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9*(1+math.Abs(b))
}

// stat builds a record spanning `seconds` of real time at 100 ticks/sec with
// the given user and kernel tick deltas.
func stat(seconds, user, kernel uint64) proto.Stat {
	var s proto.Stat
	s.NoTicks = 100
	s.TimeS[proto.TReal] = 1000
	s.TimeE[proto.TReal] = 1000 + seconds*100
	s.TimeS[proto.TUser] = 50
	s.TimeE[proto.TUser] = 50 + user
	s.TimeS[proto.TKernel] = 80
	s.TimeE[proto.TKernel] = 80 + kernel
	return s
}

func TestCombine_Symmetry(t *testing.T) {
	l := proto.Stat{S: proto.UStat{NoBytes: 100, NoMsgs: 10}}
	r := proto.Stat{RemS: proto.UStat{NoBytes: 50, NoMsgs: 5}}
	origL := l.S.NoBytes

	Combine(&l, &r)
	if l.S.NoBytes != origL+r.RemS.NoBytes {
		t.Fatalf("combined send bytes %d, want %d", l.S.NoBytes, origL+r.RemS.NoBytes)
	}
	if l.S.NoMsgs != 15 {
		t.Fatalf("combined send msgs %d, want 15", l.S.NoMsgs)
	}
}

func TestCalcNode(t *testing.T) {
	s := stat(2, 60, 40)
	var r Resn
	CalcNode(&r, &s)
	if !almost(r.TimeReal, 2.0) {
		t.Fatalf("TimeReal = %v, want 2", r.TimeReal)
	}
	if !almost(r.TimeCPU, 1.0) {
		t.Fatalf("TimeCPU = %v, want 1", r.TimeCPU)
	}
	if !almost(r.CPUUser, 0.3) {
		t.Fatalf("CPUUser = %v, want 0.3", r.CPUUser)
	}
	if !almost(r.CPUKernel, 0.2) {
		t.Fatalf("CPUKernel = %v, want 0.2", r.CPUKernel)
	}
	if !almost(r.CPUTotal, 0.5) {
		t.Fatalf("CPUTotal = %v, want 0.5", r.CPUTotal)
	}
}

func TestCalcNode_ZeroTime(t *testing.T) {
	var s proto.Stat
	s.NoTicks = 100
	r := Resn{TimeReal: 99}
	CalcNode(&r, &s)
	if r.TimeReal != 0 {
		t.Fatalf("zero real time must clear the result")
	}
}

func TestCalc_OneWayBandwidth(t *testing.T) {
	// Client sent for 2s, server received for 2s. One-directional flow.
	l := stat(2, 100, 50)
	r := stat(2, 80, 40)
	l.S = proto.UStat{NoBytes: 2_000_000, NoMsgs: 1000}
	r.R = proto.UStat{NoBytes: 2_000_000, NoMsgs: 1000}

	var res Res
	Calc(&res, &l, &r)

	// Only the remote received: rate uses the local side's time.
	if !almost(res.MsgRate, 500) {
		t.Fatalf("MsgRate = %v, want 500", res.MsgRate)
	}
	if !almost(res.SendBW, 1_000_000) {
		t.Fatalf("SendBW = %v, want 1e6", res.SendBW)
	}
	if !almost(res.RecvBW, 1_000_000) {
		t.Fatalf("RecvBW = %v, want 1e6", res.RecvBW)
	}
	if res.SendCost <= 0 || res.RecvCost <= 0 {
		t.Fatalf("one-way flow must produce both costs: send=%v recv=%v", res.SendCost, res.RecvCost)
	}
	// send cost = local cpu seconds * 1e9 / bytes sent
	wantSend := res.L.TimeCPU * 1e9 / 2_000_000
	if !almost(res.SendCost, wantSend) {
		t.Fatalf("SendCost = %v, want %v", res.SendCost, wantSend)
	}
}

func TestCalc_PingPongLatency(t *testing.T) {
	l := stat(2, 100, 50)
	r := stat(2, 80, 40)
	l.S = proto.UStat{NoBytes: 1000, NoMsgs: 1000}
	l.R = proto.UStat{NoBytes: 1000, NoMsgs: 1000}
	r.S = proto.UStat{NoBytes: 1000, NoMsgs: 1000}
	r.R = proto.UStat{NoBytes: 1000, NoMsgs: 1000}

	var res Res
	Calc(&res, &l, &r)
	if !almost(res.Latency, 2.0/2000) {
		t.Fatalf("Latency = %v, want 0.001", res.Latency)
	}
	// Both sides received: rate over the mid time.
	if !almost(res.MsgRate, 1000) {
		t.Fatalf("MsgRate = %v, want 1000", res.MsgRate)
	}
	if res.SendCost != 0 || res.RecvCost != 0 {
		t.Fatalf("bidirectional flow must not produce costs")
	}
}

func TestCalc_ZeroTimeAborts(t *testing.T) {
	var l, r proto.Stat
	l.NoTicks = 100
	r.NoTicks = 100
	l.R.NoMsgs = 10
	var res Res
	Calc(&res, &l, &r)
	if res.MsgRate != 0 || res.SendBW != 0 {
		t.Fatalf("derivation must abort on zero real time")
	}
}
