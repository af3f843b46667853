package proto

import (
	"errors"
	"fmt"
)

// The wire is explicitly little-endian and carries no self-description.
// Integers are packed one byte at a time so the format stays portable on any
// host. Strings occupy exactly their declared length, null-padded.

// ErrShortBuffer is returned when a decode runs off the end of its input.
var ErrShortBuffer = errors.New("proto: short buffer")

// Encoder packs scalars and fixed strings at an advancing cursor.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with room for exactly n bytes.
func NewEncoder(n int) *Encoder {
	return &Encoder{buf: make([]byte, 0, n)}
}

// PutInt appends the low n bytes of v, least significant first.
func (e *Encoder) PutInt(v uint64, n int) {
	for ; n > 0; n-- {
		e.buf = append(e.buf, byte(v))
		v >>= 8
	}
}

// PutStr appends the fixed-length string as-is.
func (e *Encoder) PutStr(s []byte) {
	e.buf = append(e.buf, s...)
}

// Bytes returns the packed buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Decoder reads scalars and fixed strings from an advancing cursor.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder decodes from buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Int reads n little-endian bytes into an unsigned value.
func (d *Decoder) Int(n int) uint64 {
	if d.err != nil {
		return 0
	}
	if d.off+n > len(d.buf) {
		d.err = ErrShortBuffer
		return 0
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(d.buf[d.off+i])
	}
	d.off += n
	return v
}

// Str copies exactly len(dst) bytes.
func (d *Decoder) Str(dst []byte) {
	if d.err != nil {
		return
	}
	if d.off+len(dst) > len(d.buf) {
		d.err = ErrShortBuffer
		return
	}
	copy(dst, d.buf[d.off:])
	d.off += len(dst)
}

// Err reports the first decode failure, if any.
func (d *Decoder) Err() error { return d.err }

// EncodeReq packs a request. Field order is part of the protocol; version
// negotiation is the only compatibility mechanism.
func EncodeReq(r *Req) []byte {
	e := NewEncoder(ReqSize)
	e.PutInt(uint64(r.VerMaj), 2)
	e.PutInt(uint64(r.VerMin), 2)
	e.PutInt(uint64(r.VerInc), 2)
	e.PutInt(uint64(r.ReqIndex), 2)
	e.PutInt(uint64(r.Flip), 4)
	e.PutInt(uint64(r.AccessRecv), 4)
	e.PutInt(uint64(r.Affinity), 4)
	e.PutInt(uint64(r.PollMode), 4)
	e.PutInt(uint64(r.Port), 4)
	e.PutInt(uint64(r.RdAtomic), 4)
	e.PutInt(uint64(r.Timeout), 4)
	e.PutInt(uint64(r.MsgSize), 4)
	e.PutInt(uint64(r.MtuSize), 4)
	e.PutInt(uint64(r.NoMsgs), 4)
	e.PutInt(uint64(r.SockBufSize), 4)
	e.PutInt(uint64(r.Time), 4)
	e.PutStr(r.ID[:])
	return e.Bytes()
}

// DecodeReq unpacks a request.
func DecodeReq(buf []byte, r *Req) error {
	if len(buf) != ReqSize {
		return fmt.Errorf("proto: request is %d bytes, want %d: %w", len(buf), ReqSize, ErrShortBuffer)
	}
	d := NewDecoder(buf)
	r.VerMaj = uint16(d.Int(2))
	r.VerMin = uint16(d.Int(2))
	r.VerInc = uint16(d.Int(2))
	r.ReqIndex = uint16(d.Int(2))
	r.Flip = uint32(d.Int(4))
	r.AccessRecv = uint32(d.Int(4))
	r.Affinity = uint32(d.Int(4))
	r.PollMode = uint32(d.Int(4))
	r.Port = uint32(d.Int(4))
	r.RdAtomic = uint32(d.Int(4))
	r.Timeout = uint32(d.Int(4))
	r.MsgSize = uint32(d.Int(4))
	r.MtuSize = uint32(d.Int(4))
	r.NoMsgs = uint32(d.Int(4))
	r.SockBufSize = uint32(d.Int(4))
	r.Time = uint32(d.Int(4))
	d.Str(r.ID[:])
	return d.Err()
}

func encUStat(e *Encoder, u *UStat) {
	e.PutInt(u.NoBytes, 8)
	e.PutInt(u.NoMsgs, 8)
	e.PutInt(u.NoErrs, 8)
}

func decUStat(d *Decoder, u *UStat) {
	u.NoBytes = d.Int(8)
	u.NoMsgs = d.Int(8)
	u.NoErrs = d.Int(8)
}

// EncodeStat packs a statistics record.
func EncodeStat(s *Stat) []byte {
	e := NewEncoder(StatSize)
	e.PutInt(uint64(s.NoCPUs), 4)
	e.PutInt(uint64(s.NoTicks), 4)
	e.PutInt(uint64(s.MaxCQEs), 4)
	for i := 0; i < TN; i++ {
		e.PutInt(s.TimeS[i], 8)
	}
	for i := 0; i < TN; i++ {
		e.PutInt(s.TimeE[i], 8)
	}
	encUStat(e, &s.S)
	encUStat(e, &s.R)
	encUStat(e, &s.RemS)
	encUStat(e, &s.RemR)
	return e.Bytes()
}

// DecodeStat unpacks a statistics record.
func DecodeStat(buf []byte, s *Stat) error {
	if len(buf) != StatSize {
		return fmt.Errorf("proto: stat is %d bytes, want %d: %w", len(buf), StatSize, ErrShortBuffer)
	}
	d := NewDecoder(buf)
	s.NoCPUs = uint32(d.Int(4))
	s.NoTicks = uint32(d.Int(4))
	s.MaxCQEs = uint32(d.Int(4))
	for i := 0; i < TN; i++ {
		s.TimeS[i] = d.Int(8)
	}
	for i := 0; i < TN; i++ {
		s.TimeE[i] = d.Int(8)
	}
	decUStat(d, &s.S)
	decUStat(d, &s.R)
	decUStat(d, &s.RemS)
	decUStat(d, &s.RemR)
	return d.Err()
}

// EncodeConf packs a configuration record.
func EncodeConf(c *Conf) []byte {
	e := NewEncoder(ConfSize)
	e.PutStr(c.Node[:])
	e.PutStr(c.CPU[:])
	e.PutStr(c.OS[:])
	e.PutStr(c.Qperf[:])
	return e.Bytes()
}

// DecodeConf unpacks a configuration record.
func DecodeConf(buf []byte, c *Conf) error {
	if len(buf) != ConfSize {
		return fmt.Errorf("proto: conf is %d bytes, want %d: %w", len(buf), ConfSize, ErrShortBuffer)
	}
	d := NewDecoder(buf)
	d.Str(c.Node[:])
	d.Str(c.CPU[:])
	d.Str(c.OS[:])
	d.Str(c.Qperf[:])
	return d.Err()
}
