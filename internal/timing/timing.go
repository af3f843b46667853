// Package timing bounds a test run in wall-clock time and snapshots the CPU
// tick accounting around it. The real-time column comes from times(2); the
// remaining categories are the first "cpu" line of /proc/stat.
package timing

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/mark-e-deyoung/qperf/internal/proto"
)

// UserHZ is the kernel's USER_HZ tick rate, fixed at 100 on Linux. procfs
// reports /proc/stat in seconds divided by the same constant.
const UserHZ = 100

// Engine reads tick snapshots. One engine is created at startup and shared.
type Engine struct {
	fs      procfs.FS
	NoCPUs  uint32
	NoTicks uint32
}

// NewEngine opens /proc and verifies the stat file is readable.
func NewEngine() (*Engine, error) {
	return NewEngineAt(procfs.DefaultMountPoint)
}

// NewEngineAt opens a procfs mounted at dir.
func NewEngineAt(dir string) (*Engine, error) {
	fs, err := procfs.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", dir, err)
	}
	if _, err := fs.Stat(); err != nil {
		return nil, fmt.Errorf("cannot read %s/stat: %w", dir, err)
	}
	return &Engine{
		fs:      fs,
		NoCPUs:  uint32(runtime.NumCPU()),
		NoTicks: UserHZ,
	}, nil
}

// FS exposes the procfs handle for collaborators that read other files.
func (e *Engine) FS() procfs.FS { return e.fs }

// GetTimes fills one tick snapshot: slot 0 from times(2), the rest from
// /proc/stat. Categories the kernel does not report zero-fill.
func (e *Engine) GetTimes(tx *[proto.TN]uint64) error {
	var tms unix.Tms
	real, err := unix.Times(&tms)
	if err != nil {
		return fmt.Errorf("times failed: %w", err)
	}
	tx[proto.TReal] = uint64(real)

	st, err := e.fs.Stat()
	if err != nil {
		return fmt.Errorf("failed to read /proc/stat: %w", err)
	}
	c := st.CPUTotal
	tx[proto.TUser] = ticks(c.User)
	tx[proto.TNice] = ticks(c.Nice)
	tx[proto.TKernel] = ticks(c.System)
	tx[proto.TIdle] = ticks(c.Idle)
	tx[proto.TIowait] = ticks(c.Iowait)
	tx[proto.TIrq] = ticks(c.IRQ)
	tx[proto.TSoftirq] = ticks(c.SoftIRQ)
	tx[proto.TSteal] = ticks(c.Steal)
	return nil
}

func ticks(seconds float64) uint64 {
	return uint64(math.Round(seconds * UserHZ))
}

// Timer bounds one test run. Start snapshots the begin ticks and arms a
// one-shot; the first rising edge of the finished counter records the end
// ticks and fires any registered hooks, which tests use to expire the
// deadline of an in-flight transfer.
type Timer struct {
	eng      *Engine
	stat     *proto.Stat
	finished atomic.Int32
	snapOnce sync.Once

	mu    sync.Mutex
	timer *time.Timer
	hooks []func()
}

// NewTimer returns a timer writing snapshots into stat.
func NewTimer(eng *Engine, stat *proto.Stat) *Timer {
	return &Timer{eng: eng, stat: stat}
}

// Start snapshots the begin ticks and, for a nonzero duration, schedules
// SetFinished. A message-count-bounded run passes zero and stops itself.
func (t *Timer) Start(seconds uint32) error {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
	if err := t.eng.GetTimes(&t.stat.TimeS); err != nil {
		return err
	}
	if seconds == 0 {
		return nil
	}
	t.mu.Lock()
	t.timer = time.AfterFunc(time.Duration(seconds)*time.Second, t.SetFinished)
	t.mu.Unlock()
	return nil
}

// Stop disarms the timer and records the end ticks if not already taken.
func (t *Timer) Stop() {
	t.SetFinished()
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}

// SetFinished raises the finished counter. Only the first call snapshots the
// end ticks and runs the finish hooks; later callers wait for that work so a
// caller of Stop never observes a half-written snapshot.
func (t *Timer) SetFinished() {
	t.finished.Add(1)
	t.snapOnce.Do(func() {
		_ = t.eng.GetTimes(&t.stat.TimeE)
		t.mu.Lock()
		hooks := t.hooks
		t.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
	})
}

// Finished reports whether the run is over. Any message completed after this
// returns true must not be counted.
func (t *Timer) Finished() bool {
	return t.finished.Load() != 0
}

// OnFinish registers a hook run once when the test finishes. Tests register
// a deadline-expiry hook so a blocked transfer wakes promptly.
func (t *Timer) OnFinish(fn func()) {
	t.mu.Lock()
	t.hooks = append(t.hooks, fn)
	t.mu.Unlock()
}

// Reset clears the finished state and hooks before a new run. The previous
// run must have been stopped first.
func (t *Timer) Reset() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.hooks = nil
	t.snapOnce = sync.Once{}
	t.mu.Unlock()
	t.finished.Store(0)
}
