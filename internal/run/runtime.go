// Package run holds the shared test runtime: the parameter catalogue bound to
// the two request records, the measurement state, and the client/server halves
// of the control protocol. Everything a test body needs arrives through the
// Runtime rather than process globals.
package run

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"github.com/mark-e-deyoung/qperf/internal/param"
	"github.com/mark-e-deyoung/qperf/internal/proto"
	"github.com/mark-e-deyoung/qperf/internal/show"
	"github.com/mark-e-deyoung/qperf/internal/stats"
	"github.com/mark-e-deyoung/qperf/internal/timing"
)

// ErrFatal marks failures that must terminate the process with status 1.
var ErrFatal = errors.New("fatal")

// DefaultListenPort is the control port tests are requested on.
const DefaultListenPort = 19765

// Test pairs a registry name with its client and server procedures. Index is
// the test's position in the registry and is the selector sent on the wire.
type Test struct {
	Name   string
	Index  uint16
	Client func(*Runtime) error
	Server func(*Runtime) error
}

// Runtime is the per-process context shared by the control protocol, the
// running test body and the presentation layer.
type Runtime struct {
	Tab  *param.Table
	Req  proto.Req // operative request: local slots, or the decoded request on the server
	RReq proto.Req // request assembled for the remote side

	IStat proto.Stat // immutable post-init template
	LStat proto.Stat
	RStat proto.Stat
	Res   stats.Res

	Show  *show.Shower
	Eng   *timing.Engine
	Timer *timing.Timer

	Conn net.Conn // control connection for the current exchange

	TestName      string
	ServerName    string
	ListenPort    int
	ServerTimeout uint32
	Wait          uint32
	UnifyNodes    bool
	Debug         bool

	Successful bool
	ExitStatus int

	isClient bool
	Stdout   io.Writer
	Stderr   io.Writer

	warnColor  *color.Color
	fatalColor *color.Color
}

// New builds a runtime: timing engine over /proc, parameter catalogue bound
// to the request pair, presentation table, defaults.
func New(stdout, stderr io.Writer) (*Runtime, error) {
	rt := &Runtime{
		Stdout:        stdout,
		Stderr:        stderr,
		ListenPort:    DefaultListenPort,
		ServerTimeout: 5,
		warnColor:     color.New(color.FgYellow),
		fatalColor:    color.New(color.FgRed),
	}
	// Tint only when stderr itself is a terminal.
	tty := false
	if f, ok := stderr.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
		tty = err == nil
	}
	for _, c := range []*color.Color{rt.warnColor, rt.fatalColor} {
		if tty {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	eng, err := timing.NewEngine()
	if err != nil {
		return nil, err
	}
	rt.Eng = eng
	rt.IStat.NoCPUs = eng.NoCPUs
	rt.IStat.NoTicks = eng.NoTicks
	rt.Timer = timing.NewTimer(eng, &rt.LStat)
	tab, err := param.New(&rt.Req, &rt.RReq)
	if err != nil {
		return nil, fmt.Errorf("internal error: %w", err)
	}
	rt.Tab = tab
	rt.Show = show.New(stdout)
	return rt, nil
}

// IsClient reports whether this process runs the client half.
func (rt *Runtime) IsClient() bool { return rt.isClient }

// SetClient marks this process as the client half.
func (rt *Runtime) SetClient() { rt.isClient = true }

// InitLStat resets local statistics to the post-init template.
func (rt *Runtime) InitLStat() {
	rt.LStat = rt.IStat
	rt.RStat = proto.Stat{}
}

// Debugf prints a debug trace when debug mode is on.
func (rt *Runtime) Debugf(format string, args ...any) {
	if rt.Debug {
		fmt.Fprintf(rt.Stderr, format+"\n", args...)
	}
}

// Errorf prints a diagnostic line and returns it as an error for unwinding.
func (rt *Runtime) Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	fmt.Fprintln(rt.Stderr, err.Error())
	return err
}

// Warnf prints a warning line, tinted when stderr is a terminal.
func (rt *Runtime) Warnf(format string, args ...any) {
	rt.warnColor.Fprintf(rt.Stderr, format+"\n", args...)
}

// Fatalf prints a diagnostic and returns it wrapped so main exits 1.
func (rt *Runtime) Fatalf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	rt.fatalColor.Fprintln(rt.Stderr, msg)
	return fmt.Errorf("%s: %w", msg, ErrFatal)
}

// SetAffinity pins the process to the CPU named by the affinity parameter
// (1-based; zero means unpinned).
func (rt *Runtime) SetAffinity() error {
	a := rt.Req.Affinity
	if a == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(int(a - 1))
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return rt.Fatalf("Cannot set processor affinity (cpu %d): %v", a-1, err)
	}
	return nil
}

// LeftToSend bounds one iteration of a message-count-limited loop.
func (rt *Runtime) LeftToSend(sent uint64, room int) int {
	if rt.Req.NoMsgs == 0 {
		return room
	}
	n := int64(rt.Req.NoMsgs) - int64(sent)
	if n <= 0 {
		return 0
	}
	if n > int64(room) {
		return room
	}
	return int(n)
}

// TouchData walks a received buffer so the measurement includes faulting the
// pages in, not just the syscall.
func TouchData(p []byte) {
	var a byte
	for i := 0; i < len(p); i++ {
		a ^= p[i]
	}
	_ = a
}
