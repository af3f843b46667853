package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mark-e-deyoung/qperf/internal/param"
	"github.com/mark-e-deyoung/qperf/internal/run"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"1k", 1000},
		{"1kb", 1000},
		{"1K", 1024},
		{"1kib", 1024},
		{"1m", 1000000},
		{"1M", 1048576},
		{"1gb", 1000000000},
		{"1.5G", 1610612736},
		{"4kib", 4096},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := parseSize(tc.in)
		if err != nil {
			t.Fatalf("parseSize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"x", "1q", "-1k", ""} {
		if _, err := parseSize(bad); err == nil {
			t.Fatalf("parseSize(%q): expected error", bad)
		}
	}
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"10", 10},
		{"3s", 3},
		{"3S", 3},
		{"2m", 120},
		{"1h", 3600},
		{"0.5d", 43200},
		{"1D", 86400},
	}
	for _, tc := range cases {
		got, err := parseTime(tc.in)
		if err != nil {
			t.Fatalf("parseTime(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseTime(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"x", "5x", "-1h", ""} {
		if _, err := parseTime(bad); err == nil {
			t.Fatalf("parseTime(%q): expected error", bad)
		}
	}
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rt, err := run.New(&out, &out)
	if err != nil {
		t.Fatalf("run.New: %v", err)
	}
	a := newApp(rt)
	a.stdout = &out
	a.exit = func(int) {}
	return a, &out
}

func TestOptionRoundTrip(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.doArgs([]string{"--msg_size", "4K", "--time", "10", "-u"})
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error with no server name, got %v", err)
	}
	if !a.rt.Tab.IsSet(param.LMsgSize) || !a.rt.Tab.IsSet(param.RMsgSize) {
		t.Fatalf("msg_size not set")
	}
	if a.rt.Req.MsgSize != 4096 || a.rt.RReq.MsgSize != 4096 {
		t.Fatalf("msg_size = %d/%d, want 4096", a.rt.Req.MsgSize, a.rt.RReq.MsgSize)
	}
	if a.rt.Req.Time != 10 {
		t.Fatalf("time = %d, want 10", a.rt.Req.Time)
	}
	if !a.rt.Show.UnifyUnits {
		t.Fatalf("-u did not set unify_units")
	}
}

func TestLocRemVariants(t *testing.T) {
	a, _ := newTestApp(t)
	_ = a.doArgs([]string{"--loc_sock_buf_size", "1M", "--rem_timeout", "30"})
	if a.rt.Req.SockBufSize != 1048576 {
		t.Fatalf("loc sock_buf_size = %d", a.rt.Req.SockBufSize)
	}
	if a.rt.RReq.SockBufSize != 0 {
		t.Fatalf("rem sock_buf_size should stay unset, got %d", a.rt.RReq.SockBufSize)
	}
	if a.rt.RReq.Timeout != 30 {
		t.Fatalf("rem timeout = %d", a.rt.RReq.Timeout)
	}
}

func TestBadOption(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.doArgs([]string{"--no_such_thing"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestHostWithoutTest(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.doArgs([]string{"-H", "somewhere"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error for missing test, got %v", err)
	}
	if a.rt.ServerName != "somewhere" {
		t.Fatalf("-H did not set the server name")
	}
}

func TestClientOrServerMessage(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.doArgs([]string{"-v"})
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestVerbosityOptions(t *testing.T) {
	a, _ := newTestApp(t)
	_ = a.doArgs([]string{"-vC", "-vs"})
	if a.rt.Show.VerboseConf != 2 {
		t.Fatalf("VerboseConf = %d, want 2", a.rt.Show.VerboseConf)
	}
	if a.rt.Show.VerboseStat != 1 {
		t.Fatalf("VerboseStat = %d, want 1", a.rt.Show.VerboseStat)
	}
}

func TestVersionOption(t *testing.T) {
	a, out := newTestApp(t)
	exited := false
	a.exit = func(code int) {
		exited = true
		if code != 0 {
			t.Fatalf("version exit code %d", code)
		}
	}
	_ = a.doArgs([]string{"--version"})
	if !exited {
		t.Fatalf("--version did not exit")
	}
	if !strings.Contains(out.String(), "qperf 0.2.0") {
		t.Fatalf("version output %q", out.String())
	}
}

func TestHelpOption(t *testing.T) {
	a, out := newTestApp(t)
	a.exit = func(int) {}
	_ = a.doArgs([]string{"--help", "tests"})
	if !strings.Contains(out.String(), "tcp_bw") {
		t.Fatalf("help tests output %q", out.String())
	}
}

func TestPrecisionOption(t *testing.T) {
	a, _ := newTestApp(t)
	_ = a.doArgs([]string{"-e", "4"})
	if a.rt.Show.Precision != 4 {
		t.Fatalf("precision = %d", a.rt.Show.Precision)
	}
	if err := a.doArgs([]string{"-e", "4.5"}); !errors.Is(err, errUsage) {
		t.Fatalf("fractional precision must be rejected, got %v", err)
	}
}

func TestFirstOptionWins(t *testing.T) {
	a, _ := newTestApp(t)
	_ = a.doArgs([]string{"--msg_size", "1K", "-m", "2K"})
	if a.rt.Req.MsgSize != 1024 {
		t.Fatalf("msg_size = %d, want first assignment 1024", a.rt.Req.MsgSize)
	}
}
