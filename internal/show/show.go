// Package show collects measurement lines during a test and flushes them at
// the end as one aligned column. Values are scaled onto human unit ladders
// unless unified units were requested, and gated by per-category verbosity.
package show

import (
	"fmt"
	"io"
	"strings"
)

// Verbosity type characters. 'a' always shows; a lowercase category needs
// verbosity >= 1, uppercase >= 2; 'd' needs debug mode. Anything but 'a'
// additionally requires a positive value.
const (
	Always = 'a'
	Debug  = 'd'
)

type row struct {
	pref    string
	name    string
	unit    string
	data    string
	altn    string
	hasUnit bool
}

// Shower owns the deferred output table and the formatting knobs.
type Shower struct {
	Out        io.Writer
	Precision  int
	UnifyUnits bool
	Debug      bool

	VerboseConf int
	VerboseStat int
	VerboseTime int
	VerboseUsed int

	rows []row
}

// New returns a Shower with the default precision.
func New(out io.Writer) *Shower {
	return &Shower{Out: out, Precision: 3}
}

// verbose decides whether a placement of the given type and value shows.
func (s *Shower) verbose(typ byte, value float64) bool {
	if typ == Always {
		return true
	}
	if value <= 0 {
		return false
	}
	switch typ {
	case 'd':
		return s.Debug
	case 'c':
		return s.VerboseConf >= 1
	case 's':
		return s.VerboseStat >= 1
	case 't':
		return s.VerboseTime >= 1
	case 'u':
		return s.VerboseUsed >= 1
	case 'C':
		return s.VerboseConf >= 2
	case 'S':
		return s.VerboseStat >= 2
	case 'T':
		return s.VerboseTime >= 2
	case 'U':
		return s.VerboseUsed >= 2
	}
	panic(fmt.Sprintf("verbose: bad type: %c", typ))
}

// ViewTime places a time given in seconds.
func (s *Shower) ViewTime(typ byte, pref, name string, value float64) {
	tab := []string{"ns", "us", "ms", "sec"}
	value *= 1e9
	if !s.verbose(typ, value) {
		return
	}
	n := 0
	if !s.UnifyUnits {
		for value >= 1000 && n < len(tab)-1 {
			value /= 1000
			n++
		}
	}
	s.placeVal(pref, name, tab[n], value)
}

// ViewBand places a bandwidth in bytes per second.
func (s *Shower) ViewBand(typ byte, pref, name string, value float64) {
	tab := []string{"bytes/sec", "KB/sec", "MB/sec", "GB/sec", "TB/sec"}
	if !s.verbose(typ, value) {
		return
	}
	n := 0
	if !s.UnifyUnits {
		for value >= 1000 && n < len(tab)-1 {
			value /= 1000
			n++
		}
	}
	s.placeVal(pref, name, tab[n], value)
}

// ViewRate places a messaging rate in messages per second.
func (s *Shower) ViewRate(typ byte, pref, name string, value float64) {
	tab := []string{"/sec", "K/sec", "M/sec", "G/sec", "T/sec"}
	if !s.verbose(typ, value) {
		return
	}
	n := 0
	if !s.UnifyUnits {
		for value >= 1000 && n < len(tab)-1 {
			value /= 1000
			n++
		}
	}
	s.placeVal(pref, name, tab[n], value)
}

// ViewCost places a per-byte cost given in seconds per gigabyte.
func (s *Shower) ViewCost(typ byte, pref, name string, value float64) {
	tab := []string{"ns/GB", "us/GB", "ms/GB", "sec/GB"}
	value *= 1e9
	if !s.verbose(typ, value) {
		return
	}
	n := 0
	if !s.UnifyUnits {
		for value >= 1000 && n < len(tab)-1 {
			value /= 1000
			n++
		}
	}
	s.placeVal(pref, name, tab[n], value)
}

// ViewCpus places a CPU utilisation fraction.
func (s *Shower) ViewCpus(typ byte, pref, name string, value float64) {
	value *= 100
	if !s.verbose(typ, value) {
		return
	}
	s.placeVal(pref, name, "% cpus", value)
}

// ViewLong places a plain count, scaled to word units only past a million.
func (s *Shower) ViewLong(typ byte, pref, name string, value int64) {
	tab := []string{"", "thousand", "million", "billion", "trillion"}
	val := float64(value)
	if !s.verbose(typ, val) {
		return
	}
	n := 0
	if !s.UnifyUnits && val >= 1000*1000 {
		for val >= 1000 && n < len(tab)-1 {
			val /= 1000
			n++
		}
	}
	s.placeVal(pref, name, tab[n], val)
}

// ViewSize places a byte count, preferring an exact power-of-1024 rendering.
func (s *Shower) ViewSize(typ byte, pref, name string, value int64) {
	tab := []string{"bytes", "KB", "MB", "GB", "TB"}
	val := float64(value)
	if !s.verbose(typ, val) {
		return
	}
	n := 0
	if !s.UnifyUnits {
		if s.nice1024(pref, name, value) {
			return
		}
		for val >= 1000 && n < len(tab)-1 {
			val /= 1000
			n++
		}
	}
	s.placeVal(pref, name, tab[n], val)
}

// nice1024 places value as a KiB/MiB/GiB/TiB multiple when it is a nonzero
// multiple of a power of 1024, keeping the exact count as the alternative.
func (s *Shower) nice1024(pref, name string, value int64) bool {
	tab := []string{"KiB", "MiB", "GiB", "TiB"}
	val := value
	if val < 1024 || val%1024 != 0 {
		return false
	}
	val /= 1024
	n := 0
	for val >= 1024 && n < len(tab)-1 {
		if val%1024 != 0 {
			break
		}
		val /= 1024
		n++
	}
	s.placeAny(pref, name, tab[n], true,
		s.commify(fmt.Sprintf("%d", val)), s.commify(fmt.Sprintf("%d", value)))
	return true
}

// ViewStrn places a string value.
func (s *Shower) ViewStrn(typ byte, pref, name, value string) {
	present := 0.0
	if value != "" {
		present = 1
	}
	if !s.verbose(typ, present) {
		return
	}
	s.placeAny(pref, name, "", false, value, "")
}

// placeVal formats a number with Precision significant digits, trims
// trailing zeros and a trailing decimal point, and stores the row.
func (s *Shower) placeVal(pref, name, unit string, value float64) {
	data := fmt.Sprintf("%.0f", value)
	digits := 0
	for _, c := range data {
		if c == '-' {
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		digits++
	}
	if n := s.Precision - digits; n > 0 {
		data = fmt.Sprintf("%.*f", n, value)
		data = strings.TrimRight(data, "0")
		data = strings.TrimSuffix(data, ".")
	}
	s.placeAny(pref, name, unit, true, s.commify(data), "")
}

// placeAny stores one deferred output row.
func (s *Shower) placeAny(pref, name, unit string, hasUnit bool, data, altn string) {
	s.rows = append(s.rows, row{pref: pref, name: name, unit: unit, hasUnit: hasUnit, data: data, altn: altn})
}

// PlaceShow flushes the table as aligned lines and clears it.
func (s *Shower) PlaceShow() {
	nameLen, dataLen := 0, 0
	for _, r := range s.rows {
		if n := len(r.pref) + len(r.name); n > nameLen {
			nameLen = n
		}
		if r.hasUnit && len(r.data) > dataLen {
			dataLen = len(r.data)
		}
	}
	for _, r := range s.rows {
		fmt.Fprintf(s.Out, "    %s%-*s", r.pref, nameLen-len(r.pref), r.name)
		if r.hasUnit {
			fmt.Fprintf(s.Out, "  =  %*s %s", dataLen, r.data, r.unit)
		} else {
			fmt.Fprintf(s.Out, "  =  %s", r.data)
		}
		if r.altn != "" {
			fmt.Fprintf(s.Out, " (%s)", r.altn)
		}
		fmt.Fprintln(s.Out)
	}
	s.rows = s.rows[:0]
}

// Pending reports the number of deferred rows.
func (s *Shower) Pending() int { return len(s.rows) }

// commify inserts a comma every three digits of the integer portion, unless
// unified units were requested.
func (s *Shower) commify(data string) string {
	if s.UnifyUnits {
		return data
	}
	end := strings.IndexByte(data, '.')
	if end < 0 {
		end = len(data)
	}
	start := 0
	for start < end && (data[start] < '0' || data[start] > '9') {
		start++
	}
	digits := end - start
	if digits <= 3 {
		return data
	}
	var b strings.Builder
	b.WriteString(data[:start])
	for i := start; i < end; i++ {
		if i > start && (end-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(data[i])
	}
	b.WriteString(data[end:])
	return b.String()
}
