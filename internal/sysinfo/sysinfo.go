// Package sysinfo gathers the host description the conf test reports: node
// name, a cleaned-up CPU summary, operating system and qperf version.
package sysinfo

import (
	"fmt"
	"strings"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/mark-e-deyoung/qperf/internal/proto"
)

// Get fills a configuration record for this host.
func Get(fs procfs.FS) (proto.Conf, error) {
	var conf proto.Conf
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return conf, fmt.Errorf("uname failed: %w", err)
	}
	proto.SetString(&conf.Node, cstr(uts.Nodename[:]))
	proto.SetString(&conf.OS, cstr(uts.Sysname[:])+" "+cstr(uts.Release[:]))
	proto.SetString(&conf.Qperf, proto.Version())

	info, err := fs.CPUInfo()
	if err != nil {
		return conf, fmt.Errorf("cannot read /proc/cpuinfo: %w", err)
	}
	proto.SetString(&conf.CPU, cpuSummary(info))
	return conf, nil
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// cpuSummary condenses the per-processor entries into one line: an optional
// core-count prefix, the de-noised model name, and a speed suffix when the
// model string does not already carry one.
func cpuSummary(info []procfs.CPUInfo) string {
	if len(info) == 0 {
		return ""
	}
	model := info[0].ModelName
	mhz := info[0].CPUMHz
	mixed := false
	for _, c := range info[1:] {
		if c.ModelName != model || c.CPUMHz != mhz {
			mixed = true
			break
		}
	}

	var name string
	if mixed {
		name = "Mixed CPUs"
	} else {
		name = cleanModel(model)
	}

	var speed string
	if !mixed && !strings.HasSuffix(name, "Hz") {
		if freq := int(mhz); freq > 0 {
			if freq < 1000 {
				speed = fmt.Sprintf(" %dMHz", freq)
			} else {
				speed = fmt.Sprintf(" %.1fGHz", float64(freq)/1000)
			}
		}
	}

	var count string
	switch n := len(info); n {
	case 1:
	case 2:
		count = "Dual-Core "
	case 4:
		count = "Quad-Core "
	default:
		count = fmt.Sprintf("%d-Core ", n)
	}
	return count + name + speed
}

// cleanModel strips trademark noise and filler from a model name.
func cleanModel(s string) string {
	for _, junk := range []string{"(R)", "(r)", "(TM)", "(tm)"} {
		s = strings.ReplaceAll(s, junk, "")
	}
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		switch strings.ToLower(f) {
		case "cpu", "processor":
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
