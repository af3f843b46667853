// Package param holds the catalogue of test parameters. Every logical
// parameter has a local and a remote slot; command-line options fan out to
// both unless a loc_/rem_ variant was used. Slots track whether the user set
// them and whether the running test consulted them, so unused options can be
// reported.
package param

import (
	"fmt"

	"github.com/mark-e-deyoung/qperf/internal/proto"
)

// Index identifies a slot. The catalogue is stored in index order.
type Index int

const (
	PNull Index = iota
	LAccessRecv
	RAccessRecv
	LAffinity
	RAffinity
	LFlip
	RFlip
	LID
	RID
	LMsgSize
	RMsgSize
	LMtuSize
	RMtuSize
	LNoMsgs
	RNoMsgs
	LPollMode
	RPollMode
	LPort
	RPort
	LRate
	RRate
	LRdAtomic
	RRdAtomic
	LSockBufSize
	RSockBufSize
	LTime
	RTime
	LTimeout
	RTimeout
	PN // number of slots
)

// Slot value types.
const (
	TypeLong = 'l'
	TypeSize = 's'
	TypeTime = 't'
	TypeStr  = 'p'
)

// Entry is one slot of the catalogue.
type Entry struct {
	Index Index
	Type  byte
	U32   *uint32
	Str   *[proto.StrSize]byte
	Name  string // option name last used to assign it
	Set   bool   // user explicitly assigned it
	Used  bool   // consulted by the running test this invocation
	InUse bool   // currently consulted by the running test
}

// Name links the two slots of a logical parameter for display.
type Name struct {
	Name string
	Loc  Index
	Rem  Index
}

// Names lists every logical parameter, used when printing what a test
// consulted.
var Names = []Name{
	{"access_recv", LAccessRecv, RAccessRecv},
	{"affinity", LAffinity, RAffinity},
	{"flip", LFlip, RFlip},
	{"id", LID, RID},
	{"msg_size", LMsgSize, RMsgSize},
	{"mtu_size", LMtuSize, RMtuSize},
	{"no_msgs", LNoMsgs, RNoMsgs},
	{"poll_mode", LPollMode, RPollMode},
	{"port", LPort, RPort},
	{"rd_atomic", LRdAtomic, RRdAtomic},
	{"sock_buf_size", LSockBufSize, RSockBufSize},
	{"time", LTime, RTime},
	{"timeout", LTimeout, RTimeout},
}

// Table binds the catalogue to the local request and the request destined for
// the remote side.
type Table struct {
	ent [PN]Entry
}

// New builds the catalogue over the two request records. The entries must end
// up in index order; anything else is an internal error.
func New(loc, rem *proto.Req) (*Table, error) {
	t := &Table{}
	ent := []Entry{
		{Index: PNull},
		{Index: LAccessRecv, Type: TypeLong, U32: &loc.AccessRecv},
		{Index: RAccessRecv, Type: TypeLong, U32: &rem.AccessRecv},
		{Index: LAffinity, Type: TypeLong, U32: &loc.Affinity},
		{Index: RAffinity, Type: TypeLong, U32: &rem.Affinity},
		{Index: LFlip, Type: TypeLong, U32: &loc.Flip},
		{Index: RFlip, Type: TypeLong, U32: &rem.Flip},
		{Index: LID, Type: TypeStr, Str: &loc.ID},
		{Index: RID, Type: TypeStr, Str: &rem.ID},
		{Index: LMsgSize, Type: TypeSize, U32: &loc.MsgSize},
		{Index: RMsgSize, Type: TypeSize, U32: &rem.MsgSize},
		{Index: LMtuSize, Type: TypeSize, U32: &loc.MtuSize},
		{Index: RMtuSize, Type: TypeSize, U32: &rem.MtuSize},
		{Index: LNoMsgs, Type: TypeLong, U32: &loc.NoMsgs},
		{Index: RNoMsgs, Type: TypeLong, U32: &rem.NoMsgs},
		{Index: LPollMode, Type: TypeLong, U32: &loc.PollMode},
		{Index: RPollMode, Type: TypeLong, U32: &rem.PollMode},
		{Index: LPort, Type: TypeLong, U32: &loc.Port},
		{Index: RPort, Type: TypeLong, U32: &rem.Port},
		{Index: LRate, Type: TypeStr, Str: &loc.Rate},
		{Index: RRate, Type: TypeStr, Str: &rem.Rate},
		{Index: LRdAtomic, Type: TypeLong, U32: &loc.RdAtomic},
		{Index: RRdAtomic, Type: TypeLong, U32: &rem.RdAtomic},
		{Index: LSockBufSize, Type: TypeSize, U32: &loc.SockBufSize},
		{Index: RSockBufSize, Type: TypeSize, U32: &rem.SockBufSize},
		{Index: LTime, Type: TypeTime, U32: &loc.Time},
		{Index: RTime, Type: TypeTime, U32: &rem.Time},
		{Index: LTimeout, Type: TypeTime, U32: &loc.Timeout},
		{Index: RTimeout, Type: TypeTime, U32: &rem.Timeout},
	}
	if len(ent) != int(PN) {
		return nil, fmt.Errorf("param table has %d entries, want %d", len(ent), PN)
	}
	for i, e := range ent {
		if e.Index != Index(i) {
			return nil, fmt.Errorf("param table out of order: %d != %d", e.Index, i)
		}
		t.ent[i] = e
	}
	return t, nil
}

// Entry returns the validated slot at index i.
func (t *Table) Entry(i Index) *Entry {
	e := &t.ent[i]
	if e.Index != i {
		panic(fmt.Sprintf("param table out of order: %d != %d", e.Index, i))
	}
	return e
}

// SetU32 records a user assignment. The first assignment to a slot wins;
// later ones are ignored.
func (t *Table) SetU32(name string, i Index, v uint32) {
	if i == PNull {
		return
	}
	e := t.Entry(i)
	if e.Name != "" {
		return
	}
	e.Name = name
	e.Set = true
	*e.U32 = v
}

// SetStr records a user string assignment with the same first-wins rule.
func (t *Table) SetStr(name string, i Index, s string) {
	if i == PNull {
		return
	}
	e := t.Entry(i)
	if e.Name != "" {
		return
	}
	e.Name = name
	e.Set = true
	proto.SetString(e.Str, s)
}

// SetDefaultU32 stores a default and marks the slot used, but defers to any
// user assignment.
func (t *Table) SetDefaultU32(i Index, v uint32) {
	if i == PNull {
		return
	}
	e := t.Entry(i)
	e.Used = true
	e.InUse = true
	if e.Name != "" {
		return
	}
	*e.U32 = v
}

// SetInternalU32 stores a value without touching any flags. Test bodies use
// it for computed values that should not count as user-specified.
func (t *Table) SetInternalU32(i Index, v uint32) {
	if i == PNull {
		return
	}
	*t.Entry(i).U32 = v
}

// Use marks a slot as consulted by the running test.
func (t *Table) Use(i Index) {
	e := t.Entry(i)
	e.Used = true
	e.InUse = true
}

// IsSet reports whether a user assignment was made.
func (t *Table) IsSet(i Index) bool {
	return t.Entry(i).Name != ""
}

// ClearInUse resets the per-invocation flags before a test starts.
func (t *Table) ClearInUse() {
	for i := range t.ent {
		t.ent[i].Used = false
		t.ent[i].InUse = false
	}
}

// WarnUnused reports every slot the user set that the test never consulted.
// After warning, later duplicates sharing the option name are cleared so an
// option that fanned out to both slots is reported once.
func (t *Table) WarnUnused(testName string, warn func(format string, args ...any)) {
	for i := range t.ent {
		p := &t.ent[i]
		if p.Used || !p.Set {
			continue
		}
		warn("warning: %s set but not used in test %s", p.Name, testName)
		for j := i + 1; j < len(t.ent); j++ {
			q := &t.ent[j]
			if q.Set && q.Name == p.Name {
				q.Set = false
			}
		}
	}
}
