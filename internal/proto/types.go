// Package proto defines the qperf control-plane wire format: the request
// record a client sends to invoke a test, the statistics record both sides
// swap afterwards, and the little-endian codec that packs them.
package proto

import "fmt"

// Protocol version. A change that makes the Req layout incompatible with
// previous releases bumps VerMin and resets VerInc; VerMaj is reserved for
// major changes. (VerMaj, VerMin) must match between client and server;
// VerInc is informational.
const (
	VerMaj = 0
	VerMin = 2
	VerInc = 0
)

// Version returns the dotted version string.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", VerMaj, VerMin, VerInc)
}

// StrSize is the fixed length of every string carried on the wire.
const StrSize = 32

// Tick categories. Index 0 is the real-time tick counter; the rest are the
// columns of /proc/stat's first "cpu" line, in file order.
const (
	TReal = iota
	TUser
	TNice
	TKernel
	TIdle
	TIowait
	TIrq
	TSoftirq
	TSteal
	TN // number of categories
)

// SyncMesg is the two-phase barrier token.
var SyncMesg = [SyncSize]byte{'S', 'y', 'N', 0}

// Packed message sizes. There are no length prefixes; both ends must agree.
const (
	SyncSize = 4
	ReqSize  = 4*2 + 12*4 + StrSize
	ConfSize = 4 * StrSize
	StatSize = 3*4 + 2*TN*8 + 4*UStatSize
	UStatSize = 3 * 8
)

// Req is the test invocation a client sends after connect. Rate is a local
// parameter slot only and never crosses the wire.
type Req struct {
	VerMaj      uint16
	VerMin      uint16
	VerInc      uint16
	ReqIndex    uint16
	Flip        uint32
	AccessRecv  uint32
	Affinity    uint32
	PollMode    uint32
	Port        uint32
	RdAtomic    uint32
	Timeout     uint32
	MsgSize     uint32
	MtuSize     uint32
	NoMsgs      uint32
	SockBufSize uint32
	Time        uint32
	ID          [StrSize]byte
	Rate        [StrSize]byte
}

// UStat counts one direction of a transport.
type UStat struct {
	NoBytes uint64
	NoMsgs  uint64
	NoErrs  uint64
}

// Stat is the per-side measurement record. S and R are what this node did;
// RemS and RemR are what it observed the peer doing, for transports that can
// only account from one end.
type Stat struct {
	NoCPUs  uint32
	NoTicks uint32
	MaxCQEs uint32
	TimeS   [TN]uint64
	TimeE   [TN]uint64
	S       UStat
	R       UStat
	RemS    UStat
	RemR    UStat
}

// Conf is the configuration record the conf test returns.
type Conf struct {
	Node  [StrSize]byte
	CPU   [StrSize]byte
	OS    [StrSize]byte
	Qperf [StrSize]byte
}

// SetString copies s into a fixed wire string, truncating and null-padding.
func SetString(dst *[StrSize]byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst[:], s)
}

// GetString returns the string up to the first null.
func GetString(src [StrSize]byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src[:])
}
