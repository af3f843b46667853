package tests

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mark-e-deyoung/qperf/internal/param"
	"github.com/mark-e-deyoung/qperf/internal/run"
	"github.com/mark-e-deyoung/qperf/internal/server"
)

// harness runs a real server on an ephemeral port and builds a client
// runtime aimed at it.
type harness struct {
	client  *run.Runtime
	cliOut  *bytes.Buffer
	cliErr  *bytes.Buffer
	srvErr  *bytes.Buffer
	cancel  context.CancelFunc
	srvDone chan error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var srvErr bytes.Buffer
	rtS, err := run.New(&bytes.Buffer{}, &srvErr)
	if err != nil {
		t.Fatalf("server run.New: %v", err)
	}
	rtS.ListenPort = 0
	srv := server.New(rtS, Registry)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("Serve: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("server never became ready")
	}
	_, portStr, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("server addr: %v", err)
	}

	var cliOut, cliErr bytes.Buffer
	rtC, err := run.New(&cliOut, &cliErr)
	if err != nil {
		t.Fatalf("client run.New: %v", err)
	}
	rtC.SetClient()
	rtC.ServerName = "127.0.0.1"
	rtC.ListenPort, err = strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("server port: %v", err)
	}

	h := &harness{client: rtC, cliOut: &cliOut, cliErr: &cliErr, srvErr: &srvErr, cancel: cancel, srvDone: done}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatalf("server did not stop")
		}
	})
	return h
}

func (h *harness) runTest(t *testing.T, name string) {
	t.Helper()
	test := Find(name)
	if test == nil {
		t.Fatalf("test %s not registered", name)
	}
	if err := h.client.Client(*test); err != nil {
		t.Fatalf("client %s: %v", name, err)
	}
}

func TestFind(t *testing.T) {
	if Find("tcp_bw") == nil || Find("conf") == nil {
		t.Fatalf("registry is missing core tests")
	}
	if Find("nope") != nil {
		t.Fatalf("unknown test found")
	}
	if Find("udp_lat").Index != 9 {
		t.Fatalf("udp_lat index %d, want 9", Find("udp_lat").Index)
	}
	if Find("conf").Index != 0 || Find("quit").Index != 1 {
		t.Fatalf("conf/quit must lead the registry")
	}
}

func TestE2E_Conf(t *testing.T) {
	h := newHarness(t)
	h.runTest(t, "conf")
	out := h.cliOut.String()
	if h.client.ExitStatus != 0 {
		t.Fatalf("exit status %d, stderr %q", h.client.ExitStatus, h.cliErr.String())
	}
	for _, name := range []string{
		"loc_node", "loc_cpu", "loc_os", "loc_qperf",
		"rem_node", "rem_cpu", "rem_os", "rem_qperf",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("conf output missing %s:\n%s", name, out)
		}
	}
	if strings.Count(out, "0.2.0") < 2 {
		t.Fatalf("conf output missing versions:\n%s", out)
	}
}

func TestE2E_Quit_UnusedWarning(t *testing.T) {
	h := newHarness(t)
	h.client.Tab.SetU32("--msg_size", param.LMsgSize, 4096)
	h.client.Tab.SetU32("--msg_size", param.RMsgSize, 4096)
	h.runTest(t, "quit")
	if h.client.ExitStatus != 0 {
		t.Fatalf("exit status %d, stderr %q", h.client.ExitStatus, h.cliErr.String())
	}
	want := "warning: --msg_size set but not used in test quit"
	if !strings.Contains(h.cliErr.String(), want) {
		t.Fatalf("stderr %q, want %q", h.cliErr.String(), want)
	}
}

func TestE2E_TCPBandwidth(t *testing.T) {
	if testing.Short() {
		t.Skip("timed network test")
	}
	h := newHarness(t)
	h.client.Tab.SetU32("--time", param.LTime, 1)
	h.client.Tab.SetU32("--time", param.RTime, 1)
	h.runTest(t, "tcp_bw")
	if h.client.ExitStatus != 0 {
		t.Fatalf("exit status %d, stderr %q", h.client.ExitStatus, h.cliErr.String())
	}
	out := h.cliOut.String()
	if !strings.Contains(out, "tcp_bw:") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "bw") || !strings.Contains(out, "/sec") {
		t.Fatalf("missing bandwidth row:\n%s", out)
	}
	if h.client.LStat.S.NoMsgs == 0 {
		t.Fatalf("client sent nothing")
	}
	if h.client.RStat.R.NoMsgs == 0 {
		t.Fatalf("server reported no receives")
	}
}

func TestE2E_TCPLatency(t *testing.T) {
	if testing.Short() {
		t.Skip("timed network test")
	}
	h := newHarness(t)
	h.client.Tab.SetU32("--time", param.LTime, 1)
	h.client.Tab.SetU32("--time", param.RTime, 1)
	h.runTest(t, "tcp_lat")
	if h.client.ExitStatus != 0 {
		t.Fatalf("exit status %d, stderr %q", h.client.ExitStatus, h.cliErr.String())
	}
	out := h.cliOut.String()
	if !strings.Contains(out, "latency") {
		t.Fatalf("missing latency row:\n%s", out)
	}
	if h.client.LStat.R.NoMsgs == 0 {
		t.Fatalf("no round trips completed")
	}
}

func TestE2E_UDPLatency(t *testing.T) {
	if testing.Short() {
		t.Skip("timed network test")
	}
	h := newHarness(t)
	h.client.Tab.SetU32("--time", param.LTime, 1)
	h.client.Tab.SetU32("--time", param.RTime, 1)
	h.runTest(t, "udp_lat")
	if h.client.ExitStatus != 0 {
		t.Fatalf("exit status %d, stderr %q", h.client.ExitStatus, h.cliErr.String())
	}
	if !strings.Contains(h.cliOut.String(), "latency") {
		t.Fatalf("missing latency row:\n%s", h.cliOut.String())
	}
}

func TestE2E_SequentialTests(t *testing.T) {
	if testing.Short() {
		t.Skip("timed network test")
	}
	h := newHarness(t)
	h.client.Tab.SetU32("--time", param.LTime, 1)
	h.client.Tab.SetU32("--time", param.RTime, 1)
	h.runTest(t, "tcp_lat")
	h.runTest(t, "conf")
	h.runTest(t, "quit")
	if h.client.ExitStatus != 0 {
		t.Fatalf("exit status %d, stderr %q", h.client.ExitStatus, h.cliErr.String())
	}
}
