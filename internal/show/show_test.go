package show

import (
	"bytes"
	"strings"
	"testing"
)

func newShower() (*Shower, *bytes.Buffer) {
	var buf bytes.Buffer
	s := New(&buf)
	return s, &buf
}

func TestViewBand_Precision(t *testing.T) {
	s, buf := newShower()
	s.Precision = 4
	s.ViewBand(Always, "", "bw", 1234567890)
	s.PlaceShow()
	want := "    bw  =  1.235 GB/sec\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestViewBand_DefaultPrecision(t *testing.T) {
	s, buf := newShower()
	s.ViewBand(Always, "", "bw", 1234567890)
	s.PlaceShow()
	if got := buf.String(); !strings.Contains(got, "1.23 GB/sec") {
		t.Fatalf("got %q, want 1.23 GB/sec", got)
	}
}

func TestViewBand_UnifyUnits(t *testing.T) {
	s, buf := newShower()
	s.UnifyUnits = true
	s.ViewBand(Always, "", "bw", 1234567890)
	s.PlaceShow()
	want := "    bw  =  1234567890 bytes/sec\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestNice1024(t *testing.T) {
	s, buf := newShower()
	s.ViewSize(Always, "", "msg_size", 2097152)
	s.PlaceShow()
	want := "    msg_size  =  2 MiB (2,097,152)\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestViewSize_NotNice(t *testing.T) {
	s, buf := newShower()
	s.ViewSize(Always, "", "sz", 1500)
	s.PlaceShow()
	want := "    sz  =  1.5 KB\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestViewTime_Ladder(t *testing.T) {
	s, buf := newShower()
	s.ViewTime(Always, "", "latency", 0.000012345)
	s.PlaceShow()
	want := "    latency  =  12.3 us\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestViewLong_WordUnits(t *testing.T) {
	s, buf := newShower()
	s.ViewLong(Always, "", "msgs", 2500000)
	s.PlaceShow()
	want := "    msgs  =  2.5 million\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}

	s.ViewLong(Always, "", "msgs", 999)
	buf.Reset()
	s.PlaceShow()
	want = "    msgs  =  999 \n"
	if buf.String() != want {
		t.Fatalf("small count: got %q, want %q", buf.String(), want)
	}
}

func TestVerbosityGate(t *testing.T) {
	s, _ := newShower()
	s.ViewRate('s', "", "msg_rate", 100)
	if s.Pending() != 0 {
		t.Fatalf("stat row shown without verbosity")
	}
	s.VerboseStat = 1
	s.ViewRate('s', "", "msg_rate", 100)
	if s.Pending() != 1 {
		t.Fatalf("stat row suppressed at verbosity 1")
	}
	s.ViewRate('S', "", "msg_rate", 100)
	if s.Pending() != 1 {
		t.Fatalf("uppercase row shown at verbosity 1")
	}
	s.VerboseStat = 2
	s.ViewRate('S', "", "msg_rate", 100)
	if s.Pending() != 2 {
		t.Fatalf("uppercase row suppressed at verbosity 2")
	}
}

func TestGate_NonPositiveValue(t *testing.T) {
	s, _ := newShower()
	s.VerboseTime = 2
	s.ViewTime('t', "", "zero", 0)
	if s.Pending() != 0 {
		t.Fatalf("zero value shown for non-always type")
	}
	s.ViewTime(Always, "", "zero", 0)
	if s.Pending() != 1 {
		t.Fatalf("always type must show regardless of value")
	}
}

func TestAlignment(t *testing.T) {
	s, buf := newShower()
	s.ViewStrn(Always, "", "loc_node", "alpha")
	s.ViewStrn(Always, "", "rem_qperf", "0.2.0")
	s.PlaceShow()
	want := "    loc_node   =  alpha\n    rem_qperf  =  0.2.0\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestCommify(t *testing.T) {
	s, _ := newShower()
	cases := map[string]string{
		"123":        "123",
		"1234":       "1,234",
		"1234567":    "1,234,567",
		"1234.5678":  "1,234.5678",
		"-1234567":   "-1,234,567",
		"12":         "12",
		"1234567890": "1,234,567,890",
	}
	for in, want := range cases {
		if got := s.commify(in); got != want {
			t.Fatalf("commify(%q) = %q, want %q", in, got, want)
		}
	}
	s.UnifyUnits = true
	if got := s.commify("1234567"); got != "1234567" {
		t.Fatalf("commify with unified units: got %q", got)
	}
}

func TestPlaceShow_ClearsRows(t *testing.T) {
	s, buf := newShower()
	s.ViewStrn(Always, "", "a", "b")
	s.PlaceShow()
	buf.Reset()
	s.PlaceShow()
	if buf.String() != "" {
		t.Fatalf("rows survived PlaceShow: %q", buf.String())
	}
}
