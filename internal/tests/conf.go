package tests

import (
	"github.com/mark-e-deyoung/qperf/internal/proto"
	"github.com/mark-e-deyoung/qperf/internal/run"
	"github.com/mark-e-deyoung/qperf/internal/sysinfo"
)

// clientConf asks the server for its configuration and reports both sides.
func clientConf(rt *run.Runtime) error {
	if err := rt.ClientConnect(); err != nil {
		return err
	}
	buf := make([]byte, proto.ConfSize)
	if rt.RecvMesg(buf, "configuration") != nil {
		return nil
	}
	var rconf proto.Conf
	if err := proto.DecodeConf(buf, &rconf); err != nil {
		return rt.Errorf("failed to decode configuration: %v", err)
	}
	lconf, err := sysinfo.Get(rt.Eng.FS())
	if err != nil {
		return rt.Errorf("%v", err)
	}
	s := rt.Show
	s.ViewStrn('a', "", "loc_node", proto.GetString(lconf.Node))
	s.ViewStrn('a', "", "loc_cpu", proto.GetString(lconf.CPU))
	s.ViewStrn('a', "", "loc_os", proto.GetString(lconf.OS))
	s.ViewStrn('a', "", "loc_qperf", proto.GetString(lconf.Qperf))
	s.ViewStrn('a', "", "rem_node", proto.GetString(rconf.Node))
	s.ViewStrn('a', "", "rem_cpu", proto.GetString(rconf.CPU))
	s.ViewStrn('a', "", "rem_os", proto.GetString(rconf.OS))
	s.ViewStrn('a', "", "rem_qperf", proto.GetString(rconf.Qperf))
	rt.Successful = true
	return nil
}

// serverConf sends this host's configuration.
func serverConf(rt *run.Runtime) error {
	conf, err := sysinfo.Get(rt.Eng.FS())
	if err != nil {
		return rt.Errorf("%v", err)
	}
	if rt.SendMesg(proto.EncodeConf(&conf), "configuration") != nil {
		return nil
	}
	rt.Successful = true
	return nil
}
