package run

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mark-e-deyoung/qperf/internal/param"
	"github.com/mark-e-deyoung/qperf/internal/proto"
)

// Client runs one test as the client: apply defaults, stamp the outgoing
// request, run the body, then report. A body failure suppresses results but
// still flushes whatever was gathered.
func (rt *Runtime) Client(test Test) error {
	rt.isClient = true
	rt.Tab.ClearInUse()
	if !rt.Tab.IsSet(param.LNoMsgs) {
		rt.Tab.SetDefaultU32(param.LTime, 2)
	}
	if !rt.Tab.IsSet(param.RNoMsgs) {
		rt.Tab.SetDefaultU32(param.RTime, 2)
	}
	rt.Tab.SetDefaultU32(param.LTimeout, 5)
	rt.Tab.SetDefaultU32(param.RTimeout, 5)
	rt.Tab.Use(param.LAffinity)
	rt.Tab.Use(param.RAffinity)
	rt.Tab.Use(param.LTime)
	rt.Tab.Use(param.RTime)

	if err := rt.SetAffinity(); err != nil {
		return err
	}
	rt.RReq.VerMaj = proto.VerMaj
	rt.RReq.VerMin = proto.VerMin
	rt.RReq.VerInc = proto.VerInc
	rt.RReq.ReqIndex = test.Index
	rt.TestName = test.Name
	rt.InitLStat()
	fmt.Fprintf(rt.Stdout, "%s:\n", test.Name)
	rt.Timer.Reset()
	rt.Successful = false

	err := test.Client(rt)

	if rt.Conn != nil {
		_ = rt.Conn.Close()
		rt.Conn = nil
	}
	rt.Tab.WarnUnused(rt.TestName, rt.Warnf)
	if !rt.Successful {
		rt.ExitStatus = 1
	}
	rt.Show.PlaceShow()
	return err
}

// ClientConnect resolves the server, connects (retrying once per second
// within the wait window when one was requested), and sends the encoded
// request. A connect failure is fatal.
func (rt *Runtime) ClientConnect() error {
	addr := net.JoinHostPort(rt.ServerName, strconv.Itoa(rt.ListenPort))
	attempt := time.Duration(rt.Req.Timeout) * time.Second
	waitUntil := time.Now().Add(time.Duration(rt.Wait) * time.Second)

	var conn net.Conn
	var err error
	for {
		conn, err = net.DialTimeout("tcp", addr, attempt)
		if err == nil || rt.Wait == 0 || !time.Now().Before(waitUntil) {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return rt.Fatalf("Failed to connect: %v", err)
	}
	rt.Conn = conn
	rt.Debugf("sending request %s", rt.TestName)
	if err := rt.SendMesg(proto.EncodeReq(&rt.RReq), "request data"); err != nil {
		return fmt.Errorf("%v: %w", err, ErrFatal)
	}
	return nil
}
