package run

import (
	"github.com/mark-e-deyoung/qperf/internal/param"
	"github.com/mark-e-deyoung/qperf/internal/proto"
	"github.com/mark-e-deyoung/qperf/internal/stats"
)

// Measure selects which headline figures a test reports.
type Measure int

const (
	Latency Measure = iota
	MsgRate
	Bandwidth
	BandwidthSR
)

// ShowResults derives the run's figures and queues the report rows. Nothing
// shows for an unsuccessful run.
func (rt *Runtime) ShowResults(measure Measure) {
	if !rt.Successful {
		return
	}
	stats.Calc(&rt.Res, &rt.LStat, &rt.RStat)
	rt.showInfo(measure)
}

func (rt *Runtime) showInfo(measure Measure) {
	s := rt.Show
	switch measure {
	case Latency:
		s.ViewTime('a', "", "latency", rt.Res.Latency)
		s.ViewRate('s', "", "msg_rate", rt.Res.MsgRate)
	case MsgRate:
		s.ViewRate('a', "", "msg_rate", rt.Res.MsgRate)
	case Bandwidth:
		s.ViewBand('a', "", "bw", rt.Res.RecvBW)
		s.ViewRate('s', "", "msg_rate", rt.Res.MsgRate)
	case BandwidthSR:
		s.ViewBand('a', "", "send_bw", rt.Res.SendBW)
		s.ViewBand('a', "", "recv_bw", rt.Res.RecvBW)
		s.ViewRate('s', "", "msg_rate", rt.Res.MsgRate)
	}
	rt.showUsed()
	s.ViewCost('t', "", "send_cost", rt.Res.SendCost)
	s.ViewCost('t', "", "recv_cost", rt.Res.RecvCost)
	rt.showRest()
	if rt.Debug {
		rt.showDebug()
	}
}

// showUsed lists the parameters the test consulted, fanning out to loc_/rem_
// rows when the two slots differ.
func (rt *Runtime) showUsed() {
	s := rt.Show
	if s.VerboseUsed == 0 {
		return
	}
	for _, p := range param.Names {
		l := rt.Tab.Entry(p.Loc)
		r := rt.Tab.Entry(p.Rem)
		if !l.InUse && !r.InUse {
			continue
		}
		if s.VerboseUsed < 2 && !l.Set && !r.Set {
			continue
		}
		switch l.Type {
		case param.TypeStr:
			lv := proto.GetString(*l.Str)
			rv := proto.GetString(*r.Str)
			if lv == rv {
				s.ViewStrn('u', "", p.Name, lv)
			} else {
				s.ViewStrn('u', "loc_", p.Name, lv)
				s.ViewStrn('u', "rem_", p.Name, rv)
			}
		case param.TypeSize:
			lv, rv := *l.U32, *r.U32
			if lv == rv {
				s.ViewSize('u', "", p.Name, int64(lv))
			} else {
				s.ViewSize('u', "loc_", p.Name, int64(lv))
				s.ViewSize('u', "rem_", p.Name, int64(rv))
			}
		case param.TypeTime:
			lv, rv := *l.U32, *r.U32
			if lv == rv {
				s.ViewTime('u', "", p.Name, float64(lv))
			} else {
				s.ViewTime('u', "loc_", p.Name, float64(lv))
				s.ViewTime('u', "rem_", p.Name, float64(rv))
			}
		default:
			lv, rv := *l.U32, *r.U32
			if lv == rv {
				s.ViewLong('u', "", p.Name, int64(lv))
			} else {
				s.ViewLong('u', "loc_", p.Name, int64(lv))
				s.ViewLong('u', "rem_", p.Name, int64(rv))
			}
		}
	}
}

// showRest reports per-node CPU and counter detail. A strictly one-way run
// is labeled by role (send/recv) unless node unification was requested;
// otherwise rows are labeled by location (loc/rem).
func (rt *Runtime) showRest() {
	s := rt.Show
	var resnS, resnR *stats.Resn
	var statS, statR *proto.Stat
	srmode := false

	if !rt.UnifyNodes {
		ls := rt.LStat.S.NoBytes
		lr := rt.LStat.R.NoBytes
		rs := rt.RStat.S.NoBytes
		rr := rt.RStat.R.NoBytes
		if ls != 0 && rs == 0 && rr != 0 && lr == 0 {
			srmode = true
			resnS, resnR = &rt.Res.L, &rt.Res.R
			statS, statR = &rt.LStat, &rt.RStat
		} else if rs != 0 && ls == 0 && lr != 0 && rr == 0 {
			srmode = true
			resnS, resnR = &rt.Res.R, &rt.Res.L
			statS, statR = &rt.RStat, &rt.LStat
		}
	}

	if srmode {
		s.ViewCpus('t', "", "send_cpus_used", resnS.CPUTotal)
		s.ViewCpus('T', "", "send_cpus_user", resnS.CPUUser)
		s.ViewCpus('T', "", "send_cpus_intr", resnS.CPUIntr)
		s.ViewCpus('T', "", "send_cpus_kernel", resnS.CPUKernel)
		s.ViewCpus('T', "", "send_cpus_iowait", resnS.CPUIOWait)
		s.ViewTime('T', "", "send_real_time", resnS.TimeReal)
		s.ViewTime('T', "", "send_cpu_time", resnS.TimeCPU)
		s.ViewLong('S', "", "send_errors", int64(statS.S.NoErrs))
		s.ViewSize('S', "", "send_bytes", int64(statS.S.NoBytes))
		s.ViewLong('S', "", "send_msgs", int64(statS.S.NoMsgs))
		s.ViewLong('S', "", "send_max_cqe", int64(statS.MaxCQEs))

		s.ViewCpus('t', "", "recv_cpus_used", resnR.CPUTotal)
		s.ViewCpus('T', "", "recv_cpus_user", resnR.CPUUser)
		s.ViewCpus('T', "", "recv_cpus_intr", resnR.CPUIntr)
		s.ViewCpus('T', "", "recv_cpus_kernel", resnR.CPUKernel)
		s.ViewCpus('T', "", "recv_cpus_iowait", resnR.CPUIOWait)
		s.ViewTime('T', "", "recv_real_time", resnR.TimeReal)
		s.ViewTime('T', "", "recv_cpu_time", resnR.TimeCPU)
		s.ViewLong('S', "", "recv_errors", int64(statR.R.NoErrs))
		s.ViewSize('S', "", "recv_bytes", int64(statR.R.NoBytes))
		s.ViewLong('S', "", "recv_msgs", int64(statR.R.NoMsgs))
		s.ViewLong('S', "", "recv_max_cqe", int64(statR.MaxCQEs))
		return
	}

	s.ViewCpus('t', "", "loc_cpus_used", rt.Res.L.CPUTotal)
	s.ViewCpus('T', "", "loc_cpus_user", rt.Res.L.CPUUser)
	s.ViewCpus('T', "", "loc_cpus_intr", rt.Res.L.CPUIntr)
	s.ViewCpus('T', "", "loc_cpus_kernel", rt.Res.L.CPUKernel)
	s.ViewCpus('T', "", "loc_cpus_iowait", rt.Res.L.CPUIOWait)
	s.ViewTime('T', "", "loc_real_time", rt.Res.L.TimeReal)
	s.ViewTime('T', "", "loc_cpu_time", rt.Res.L.TimeCPU)
	s.ViewLong('S', "", "loc_send_errors", int64(rt.LStat.S.NoErrs))
	s.ViewLong('S', "", "loc_recv_errors", int64(rt.LStat.R.NoErrs))
	s.ViewSize('S', "", "loc_send_bytes", int64(rt.LStat.S.NoBytes))
	s.ViewSize('S', "", "loc_recv_bytes", int64(rt.LStat.R.NoBytes))
	s.ViewLong('S', "", "loc_send_msgs", int64(rt.LStat.S.NoMsgs))
	s.ViewLong('S', "", "loc_recv_msgs", int64(rt.LStat.R.NoMsgs))
	s.ViewLong('S', "", "loc_max_cqe", int64(rt.LStat.MaxCQEs))

	s.ViewCpus('t', "", "rem_cpus_used", rt.Res.R.CPUTotal)
	s.ViewCpus('T', "", "rem_cpus_user", rt.Res.R.CPUUser)
	s.ViewCpus('T', "", "rem_cpus_intr", rt.Res.R.CPUIntr)
	s.ViewCpus('T', "", "rem_cpus_kernel", rt.Res.R.CPUKernel)
	s.ViewCpus('T', "", "rem_cpus_iowait", rt.Res.R.CPUIOWait)
	s.ViewTime('T', "", "rem_real_time", rt.Res.R.TimeReal)
	s.ViewTime('T', "", "rem_cpu_time", rt.Res.R.TimeCPU)
	s.ViewLong('S', "", "rem_send_errors", int64(rt.RStat.S.NoErrs))
	s.ViewLong('S', "", "rem_recv_errors", int64(rt.RStat.R.NoErrs))
	s.ViewSize('S', "", "rem_send_bytes", int64(rt.RStat.S.NoBytes))
	s.ViewSize('S', "", "rem_recv_bytes", int64(rt.RStat.R.NoBytes))
	s.ViewLong('S', "", "rem_send_msgs", int64(rt.RStat.S.NoMsgs))
	s.ViewLong('S', "", "rem_recv_msgs", int64(rt.RStat.R.NoMsgs))
	s.ViewLong('S', "", "rem_max_cqe", int64(rt.RStat.MaxCQEs))
}

func (rt *Runtime) showDebug() {
	s := rt.Show
	dumpSide := func(p string, st *proto.Stat) {
		s.ViewLong('d', "", p+"_no_cpus", int64(st.NoCPUs))
		s.ViewLong('d', "", p+"_no_ticks", int64(st.NoTicks))
		s.ViewLong('d', "", p+"_max_cqes", int64(st.MaxCQEs))

		if st.NoTicks != 0 {
			t := float64(st.NoTicks)
			delta := func(i int) float64 {
				return (float64(st.TimeE[i]) - float64(st.TimeS[i])) / t
			}
			s.ViewTime('d', "", p+"_timer_real", delta(proto.TReal))
			s.ViewTime('d', "", p+"_timer_user", delta(proto.TUser))
			s.ViewTime('d', "", p+"_timer_nice", delta(proto.TNice))
			s.ViewTime('d', "", p+"_timer_system", delta(proto.TKernel))
			s.ViewTime('d', "", p+"_timer_idle", delta(proto.TIdle))
			s.ViewTime('d', "", p+"_timer_iowait", delta(proto.TIowait))
			s.ViewTime('d', "", p+"_timer_irq", delta(proto.TIrq))
			s.ViewTime('d', "", p+"_timer_softirq", delta(proto.TSoftirq))
			s.ViewTime('d', "", p+"_timer_steal", delta(proto.TSteal))
		}

		dumpUStat := func(n string, u *proto.UStat) {
			s.ViewSize('d', "", p+"_"+n+"_no_bytes", int64(u.NoBytes))
			s.ViewLong('d', "", p+"_"+n+"_no_msgs", int64(u.NoMsgs))
			s.ViewLong('d', "", p+"_"+n+"_no_errs", int64(u.NoErrs))
		}
		dumpUStat("s", &st.S)
		dumpUStat("r", &st.R)
		dumpUStat("rem_s", &st.RemS)
		dumpUStat("rem_r", &st.RemR)
	}
	dumpSide("l", &rt.LStat)
	dumpSide("r", &rt.RStat)
}
