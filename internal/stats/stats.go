// Package stats turns the two sides' raw counters and tick snapshots into the
// derived figures a test reports.
package stats

import "github.com/mark-e-deyoung/qperf/internal/proto"

// Resn is the derived per-side summary.
type Resn struct {
	TimeReal  float64 // seconds
	TimeCPU   float64 // seconds
	CPUUser   float64
	CPUIntr   float64
	CPUIdle   float64
	CPUKernel float64
	CPUIOWait float64
	CPUTotal  float64
}

// Res is the computed result of one test run.
type Res struct {
	L        Resn
	R        Resn
	Latency  float64
	MsgRate  float64
	SendBW   float64
	RecvBW   float64
	SendCost float64
	RecvCost float64
}

// AddUStat folds peer-reported counters into local accounting.
func AddUStat(l, r *proto.UStat) {
	l.NoBytes += r.NoBytes
	l.NoMsgs += r.NoMsgs
	l.NoErrs += r.NoErrs
}

// Combine merges what each side observed about the other into both records.
// Transports that can only account from one end still come out symmetric.
func Combine(lstat, rstat *proto.Stat) {
	AddUStat(&lstat.S, &rstat.RemS)
	AddUStat(&lstat.R, &rstat.RemR)
	AddUStat(&rstat.S, &lstat.RemS)
	AddUStat(&rstat.R, &lstat.RemR)
}

// CalcNode derives the per-side times and CPU fractions from one record.
func CalcNode(resn *Resn, stat *proto.Stat) {
	*resn = Resn{}
	s := float64(stat.TimeE[proto.TReal]) - float64(stat.TimeS[proto.TReal])
	if s == 0 || stat.NoTicks == 0 {
		return
	}
	ticks := float64(stat.NoTicks)
	resn.TimeReal = s / ticks

	var cpu float64
	for i := 0; i < proto.TN; i++ {
		if i == proto.TReal || i == proto.TIdle {
			continue
		}
		cpu += float64(stat.TimeE[i]) - float64(stat.TimeS[i])
	}
	resn.TimeCPU = cpu / ticks

	delta := func(i int) float64 {
		return float64(stat.TimeE[i]) - float64(stat.TimeS[i])
	}
	resn.CPUUser = (delta(proto.TUser) + delta(proto.TNice)) / s
	resn.CPUIntr = (delta(proto.TIrq) + delta(proto.TSoftirq)) / s
	resn.CPUIdle = delta(proto.TIdle) / s
	resn.CPUKernel = (delta(proto.TKernel) + delta(proto.TSteal)) / s
	resn.CPUIOWait = delta(proto.TIowait) / s
	resn.CPUTotal = resn.CPUUser + resn.CPUIntr + resn.CPUKernel + resn.CPUIOWait
}

// Calc combines the two sides and derives latency, rates, bandwidths and
// per-byte costs. The inputs are mutated by the combination step.
func Calc(res *Res, lstat, rstat *proto.Stat) {
	const gB = 1000 * 1000 * 1000

	Combine(lstat, rstat)

	*res = Res{}
	CalcNode(&res.L, lstat)
	CalcNode(&res.R, rstat)

	noMsgs := float64(lstat.R.NoMsgs) + float64(rstat.R.NoMsgs)
	if noMsgs > 0 {
		res.Latency = res.L.TimeReal / noMsgs
	}

	locTime := res.L.TimeReal
	remTime := res.R.TimeReal
	midTime := (locTime + remTime) / 2
	if locTime == 0 || remTime == 0 {
		return
	}

	// A side that received nothing contributes no rate of its own; its time
	// still bounds the peer's.
	switch {
	case rstat.R.NoMsgs == 0:
		res.MsgRate = float64(lstat.R.NoMsgs) / remTime
	case lstat.R.NoMsgs == 0:
		res.MsgRate = float64(rstat.R.NoMsgs) / locTime
	default:
		res.MsgRate = (float64(lstat.R.NoMsgs) + float64(rstat.R.NoMsgs)) / midTime
	}

	switch {
	case rstat.S.NoBytes == 0:
		res.SendBW = float64(lstat.S.NoBytes) / locTime
	case lstat.S.NoBytes == 0:
		res.SendBW = float64(rstat.S.NoBytes) / remTime
	default:
		res.SendBW = (float64(lstat.S.NoBytes) + float64(rstat.S.NoBytes)) / midTime
	}

	switch {
	case rstat.R.NoBytes == 0:
		res.RecvBW = float64(lstat.R.NoBytes) / locTime
	case lstat.R.NoBytes == 0:
		res.RecvBW = float64(rstat.R.NoBytes) / remTime
	default:
		res.RecvBW = (float64(lstat.R.NoBytes) + float64(rstat.R.NoBytes)) / midTime
	}

	// Cost only applies to one-directional flows where a single side did all
	// the sending or receiving.
	if lstat.S.NoBytes != 0 && lstat.R.NoBytes == 0 && rstat.S.NoBytes == 0 {
		res.SendCost = res.L.TimeCPU * gB / float64(lstat.S.NoBytes)
	} else if rstat.S.NoBytes != 0 && rstat.R.NoBytes == 0 && lstat.S.NoBytes == 0 {
		res.SendCost = res.R.TimeCPU * gB / float64(rstat.S.NoBytes)
	}
	if rstat.R.NoBytes != 0 && rstat.S.NoBytes == 0 && lstat.R.NoBytes == 0 {
		res.RecvCost = res.R.TimeCPU * gB / float64(rstat.R.NoBytes)
	} else if lstat.R.NoBytes != 0 && lstat.S.NoBytes == 0 && rstat.R.NoBytes == 0 {
		res.RecvCost = res.L.TimeCPU * gB / float64(lstat.R.NoBytes)
	}
}
