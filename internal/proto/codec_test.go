package proto

import (
	"bytes"
	"testing"
)

func TestPutInt_LittleEndian(t *testing.T) {
	e := NewEncoder(4)
	e.PutInt(0x01020304, 4)
	want := []byte{0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("PutInt: got % X, want % X", e.Bytes(), want)
	}
}

func TestIntRoundTrip(t *testing.T) {
	vals := []struct {
		v uint64
		n int
	}{
		{0, 1}, {0xFF, 1}, {0xBEEF, 2}, {0xDEADBEEF, 4}, {0x0102030405060708, 8},
	}
	e := NewEncoder(32)
	for _, tc := range vals {
		e.PutInt(tc.v, tc.n)
	}
	d := NewDecoder(e.Bytes())
	for _, tc := range vals {
		if got := d.Int(tc.n); got != tc.v {
			t.Fatalf("Int(%d): got %#x, want %#x", tc.n, got, tc.v)
		}
	}
	if d.Err() != nil {
		t.Fatalf("decode err: %v", d.Err())
	}
}

func TestDecoder_ShortBuffer(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	_ = d.Int(4)
	if d.Err() == nil {
		t.Fatalf("expected short buffer error")
	}
}

func TestReqRoundTrip(t *testing.T) {
	in := Req{
		VerMaj:      VerMaj,
		VerMin:      VerMin,
		VerInc:      VerInc,
		ReqIndex:    7,
		Flip:        1,
		AccessRecv:  1,
		Affinity:    3,
		PollMode:    1,
		Port:        19766,
		RdAtomic:    4,
		Timeout:     5,
		MsgSize:     65536,
		MtuSize:     1024,
		NoMsgs:      1000,
		SockBufSize: 1 << 20,
		Time:        2,
	}
	SetString(&in.ID, "lane0")

	wire := EncodeReq(&in)
	if len(wire) != ReqSize {
		t.Fatalf("encoded request is %d bytes, want %d", len(wire), ReqSize)
	}
	var out Req
	if err := DecodeReq(wire, &out); err != nil {
		t.Fatalf("DecodeReq: %v", err)
	}
	if out != in {
		t.Fatalf("request mismatch\n in=%+v\nout=%+v", in, out)
	}
}

func TestReqDecode_WrongSize(t *testing.T) {
	var r Req
	if err := DecodeReq(make([]byte, ReqSize-1), &r); err == nil {
		t.Fatalf("expected error for truncated request")
	}
}

func TestStatRoundTrip(t *testing.T) {
	in := Stat{
		NoCPUs:  8,
		NoTicks: 100,
		MaxCQEs: 12,
		S:       UStat{NoBytes: 1 << 40, NoMsgs: 1e6, NoErrs: 3},
		R:       UStat{NoBytes: 42, NoMsgs: 7},
		RemS:    UStat{NoMsgs: 9},
		RemR:    UStat{NoBytes: 1},
	}
	for i := 0; i < TN; i++ {
		in.TimeS[i] = uint64(1000 + i)
		in.TimeE[i] = uint64(2000 + 17*i)
	}

	wire := EncodeStat(&in)
	if len(wire) != StatSize {
		t.Fatalf("encoded stat is %d bytes, want %d", len(wire), StatSize)
	}
	var out Stat
	if err := DecodeStat(wire, &out); err != nil {
		t.Fatalf("DecodeStat: %v", err)
	}
	if out != in {
		t.Fatalf("stat mismatch\n in=%+v\nout=%+v", in, out)
	}
}

func TestConfRoundTrip(t *testing.T) {
	var in Conf
	SetString(&in.Node, "host-a")
	SetString(&in.CPU, "Quad-Core Xeon 2.4GHz")
	SetString(&in.OS, "Linux 6.1.0")
	SetString(&in.Qperf, Version())

	wire := EncodeConf(&in)
	if len(wire) != ConfSize {
		t.Fatalf("encoded conf is %d bytes, want %d", len(wire), ConfSize)
	}
	var out Conf
	if err := DecodeConf(wire, &out); err != nil {
		t.Fatalf("DecodeConf: %v", err)
	}
	if out != in {
		t.Fatalf("conf mismatch")
	}
	if GetString(out.Qperf) != "0.2.0" {
		t.Fatalf("version: got %q, want %q", GetString(out.Qperf), "0.2.0")
	}
}

func TestGetString_NullPadding(t *testing.T) {
	var s [StrSize]byte
	SetString(&s, "abc")
	if got := GetString(s); got != "abc" {
		t.Fatalf("GetString: got %q", got)
	}
	SetString(&s, string(bytes.Repeat([]byte{'x'}, StrSize+5)))
	if got := GetString(s); len(got) != StrSize {
		t.Fatalf("GetString after overlong set: len %d, want %d", len(got), StrSize)
	}
}

func BenchmarkEncodeStat(b *testing.B) {
	var s Stat
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = EncodeStat(&s)
	}
}
