package sysinfo

import (
	"strings"
	"testing"

	"github.com/prometheus/procfs"
)

func cpu(model string, mhz float64) procfs.CPUInfo {
	return procfs.CPUInfo{ModelName: model, CPUMHz: mhz}
}

func TestCPUSummary_SingleCore(t *testing.T) {
	got := cpuSummary([]procfs.CPUInfo{cpu("Intel(R) Xeon(R) CPU E5-2680", 2700)})
	want := "Intel Xeon E5-2680 2.7GHz"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCPUSummary_QuadCore(t *testing.T) {
	c := cpu("AMD Opteron Processor 250", 2400)
	got := cpuSummary([]procfs.CPUInfo{c, c, c, c})
	if !strings.HasPrefix(got, "Quad-Core ") {
		t.Fatalf("got %q, want Quad-Core prefix", got)
	}
	if strings.Contains(got, "Processor") {
		t.Fatalf("got %q, Processor filler not stripped", got)
	}
}

func TestCPUSummary_ModelCarriesSpeed(t *testing.T) {
	got := cpuSummary([]procfs.CPUInfo{cpu("Some CPU @ 2.40GHz", 2400)})
	if strings.Count(got, "GHz") != 1 {
		t.Fatalf("got %q, speed suffix duplicated", got)
	}
}

func TestCPUSummary_Mixed(t *testing.T) {
	got := cpuSummary([]procfs.CPUInfo{cpu("A", 1000), cpu("B", 1000)})
	if !strings.Contains(got, "Mixed CPUs") {
		t.Fatalf("got %q, want Mixed CPUs", got)
	}
}

func TestCPUSummary_SlowClock(t *testing.T) {
	got := cpuSummary([]procfs.CPUInfo{cpu("Old Chip", 800)})
	if !strings.HasSuffix(got, "800MHz") {
		t.Fatalf("got %q, want MHz suffix", got)
	}
}

func TestCPUSummary_Empty(t *testing.T) {
	if got := cpuSummary(nil); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
