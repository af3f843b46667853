package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mark-e-deyoung/qperf/internal/param"
	"github.com/mark-e-deyoung/qperf/internal/proto"
)

type optKind int

const (
	kindLong optKind = iota
	kindSize
	kindTime
	kindStr
	kindMisc
	kindHelp
	kindVersion
)

// option maps one command token to a parameter mutation or a mode toggle.
// Most parameter options fan out to both the local and remote slot; loc_/rem_
// variants name only one. Misc options branch on their short tag.
type option struct {
	name        string
	serverValid bool
	kind        optKind
	loc         param.Index
	rem         param.Index
	tag         string
}

var options = []option{
	{name: "--access_recv", kind: kindLong, loc: param.LAccessRecv, rem: param.RAccessRecv},
	{name: "-Ar", kind: kindLong, loc: param.LAccessRecv, rem: param.RAccessRecv},
	{name: "--affinity", kind: kindLong, loc: param.LAffinity, rem: param.RAffinity},
	{name: "-a", kind: kindLong, loc: param.LAffinity, rem: param.RAffinity},
	{name: "--loc_affinity", kind: kindLong, loc: param.LAffinity},
	{name: "-la", kind: kindLong, loc: param.LAffinity},
	{name: "--rem_affinity", kind: kindLong, loc: param.RAffinity},
	{name: "-ra", kind: kindLong, loc: param.RAffinity},
	{name: "--debug", serverValid: true, kind: kindMisc, tag: "D"},
	{name: "-D", serverValid: true, kind: kindMisc, tag: "D"},
	{name: "--flip", kind: kindLong, loc: param.LFlip, rem: param.RFlip},
	{name: "-f", kind: kindLong, loc: param.LFlip, rem: param.RFlip},
	{name: "--help", kind: kindHelp},
	{name: "-h", kind: kindHelp},
	{name: "--host", kind: kindMisc, tag: "H"},
	{name: "-H", kind: kindMisc, tag: "H"},
	{name: "--id", kind: kindStr, loc: param.LID, rem: param.RID},
	{name: "-i", kind: kindStr, loc: param.LID, rem: param.RID},
	{name: "--loc_id", kind: kindStr, loc: param.LID},
	{name: "-li", kind: kindStr, loc: param.LID},
	{name: "--rem_id", kind: kindStr, loc: param.RID},
	{name: "-ri", kind: kindStr, loc: param.RID},
	{name: "--listen_port", serverValid: true, kind: kindMisc, tag: "lp"},
	{name: "-lp", serverValid: true, kind: kindMisc, tag: "lp"},
	{name: "--metrics_addr", serverValid: true, kind: kindMisc, tag: "ma"},
	{name: "-ma", serverValid: true, kind: kindMisc, tag: "ma"},
	{name: "--msg_size", kind: kindSize, loc: param.LMsgSize, rem: param.RMsgSize},
	{name: "-m", kind: kindSize, loc: param.LMsgSize, rem: param.RMsgSize},
	{name: "--mtu_size", kind: kindSize, loc: param.LMtuSize, rem: param.RMtuSize},
	{name: "-M", kind: kindSize, loc: param.LMtuSize, rem: param.RMtuSize},
	{name: "--no_msgs", kind: kindLong, loc: param.LNoMsgs, rem: param.RNoMsgs},
	{name: "-n", kind: kindLong, loc: param.LNoMsgs, rem: param.RNoMsgs},
	{name: "--poll", kind: kindLong, loc: param.LPollMode, rem: param.RPollMode},
	{name: "-P", kind: kindLong, loc: param.LPollMode, rem: param.RPollMode},
	{name: "--loc_poll", kind: kindLong, loc: param.LPollMode},
	{name: "-lP", kind: kindLong, loc: param.LPollMode},
	{name: "--rem_poll", kind: kindLong, loc: param.RPollMode},
	{name: "-rP", kind: kindLong, loc: param.RPollMode},
	{name: "--port", kind: kindLong, loc: param.LPort, rem: param.RPort},
	{name: "-p", kind: kindLong, loc: param.LPort, rem: param.RPort},
	{name: "--precision", kind: kindMisc, tag: "e"},
	{name: "-e", kind: kindMisc, tag: "e"},
	{name: "--rate", kind: kindStr, loc: param.LRate, rem: param.RRate},
	{name: "-r", kind: kindStr, loc: param.LRate, rem: param.RRate},
	{name: "--loc_rate", kind: kindStr, loc: param.LRate},
	{name: "-lr", kind: kindStr, loc: param.LRate},
	{name: "--rem_rate", kind: kindStr, loc: param.RRate},
	{name: "-rr", kind: kindStr, loc: param.RRate},
	{name: "--rd_atomic", kind: kindLong, loc: param.LRdAtomic, rem: param.RRdAtomic},
	{name: "-R", kind: kindLong, loc: param.LRdAtomic, rem: param.RRdAtomic},
	{name: "--loc_rd_atomic", kind: kindLong, loc: param.LRdAtomic},
	{name: "-lR", kind: kindLong, loc: param.LRdAtomic},
	{name: "--rem_rd_atomic", kind: kindLong, loc: param.RRdAtomic},
	{name: "-rR", kind: kindLong, loc: param.RRdAtomic},
	{name: "--sock_buf_size", kind: kindSize, loc: param.LSockBufSize, rem: param.RSockBufSize},
	{name: "-S", kind: kindSize, loc: param.LSockBufSize, rem: param.RSockBufSize},
	{name: "--loc_sock_buf_size", kind: kindSize, loc: param.LSockBufSize},
	{name: "-lS", kind: kindSize, loc: param.LSockBufSize},
	{name: "--rem_sock_buf_size", kind: kindSize, loc: param.RSockBufSize},
	{name: "-rS", kind: kindSize, loc: param.RSockBufSize},
	{name: "--time", kind: kindTime, loc: param.LTime, rem: param.RTime},
	{name: "-t", kind: kindTime, loc: param.LTime, rem: param.RTime},
	{name: "--timeout", kind: kindTime, loc: param.LTimeout, rem: param.RTimeout},
	{name: "-T", kind: kindTime, loc: param.LTimeout, rem: param.RTimeout},
	{name: "--loc_timeout", kind: kindTime, loc: param.LTimeout},
	{name: "-lT", kind: kindTime, loc: param.LTimeout},
	{name: "--rem_timeout", kind: kindTime, loc: param.RTimeout},
	{name: "-rT", kind: kindTime, loc: param.RTimeout},
	{name: "--server_timeout", serverValid: true, kind: kindMisc, tag: "st"},
	{name: "-st", serverValid: true, kind: kindMisc, tag: "st"},
	{name: "--unify_nodes", kind: kindMisc, tag: "U"},
	{name: "-U", kind: kindMisc, tag: "U"},
	{name: "--unify_units", kind: kindMisc, tag: "u"},
	{name: "-u", kind: kindMisc, tag: "u"},
	{name: "--verbose", kind: kindMisc, tag: "v"},
	{name: "-v", kind: kindMisc, tag: "v"},
	{name: "--verbose_conf", kind: kindMisc, tag: "vc"},
	{name: "-vc", kind: kindMisc, tag: "vc"},
	{name: "--verbose_stat", kind: kindMisc, tag: "vs"},
	{name: "-vs", kind: kindMisc, tag: "vs"},
	{name: "--verbose_time", kind: kindMisc, tag: "vt"},
	{name: "-vt", kind: kindMisc, tag: "vt"},
	{name: "--verbose_used", kind: kindMisc, tag: "vu"},
	{name: "-vu", kind: kindMisc, tag: "vu"},
	{name: "--verbose_more", kind: kindMisc, tag: "vv"},
	{name: "-vv", kind: kindMisc, tag: "vv"},
	{name: "--verbose_more_conf", kind: kindMisc, tag: "vC"},
	{name: "-vC", kind: kindMisc, tag: "vC"},
	{name: "--verbose_more_stat", kind: kindMisc, tag: "vS"},
	{name: "-vS", kind: kindMisc, tag: "vS"},
	{name: "--verbose_more_time", kind: kindMisc, tag: "vT"},
	{name: "-vT", kind: kindMisc, tag: "vT"},
	{name: "--verbose_more_used", kind: kindMisc, tag: "vU"},
	{name: "-vU", kind: kindMisc, tag: "vU"},
	{name: "--version", kind: kindVersion},
	{name: "-V", kind: kindVersion},
	{name: "--wait", kind: kindMisc, tag: "W"},
	{name: "-W", kind: kindMisc, tag: "W"},
}

func findOption(name string) *option {
	for i := range options {
		if options[i].name == name {
			return &options[i]
		}
	}
	return nil
}

// takeArg returns the token after the option or a usage error.
func takeArg(rest []string) (string, error) {
	if len(rest) < 2 {
		return "", fmt.Errorf("Missing argument to %s", rest[0])
	}
	return rest[1], nil
}

// parseLong reads a non-negative decimal integer argument.
func parseLong(rest []string) (uint32, error) {
	s, err := takeArg(rest)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("Bad argument: %s", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s requires a non-negative number", rest[0])
	}
	return uint32(v), nil
}

// Size suffixes. Lowercase (and the *b forms) are decimal; uppercase single
// letters and the *ib forms are binary. No suffix means bytes.
var sizeSuffixes = []struct {
	suffix string
	mult   float64
}{
	{"kib", 1 << 10},
	{"mib", 1 << 20},
	{"gib", 1 << 30},
	{"kb", 1e3},
	{"mb", 1e6},
	{"gb", 1e9},
	{"k", 1e3},
	{"m", 1e6},
	{"g", 1e9},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
}

// parseSize reads a size argument: a float with an optional suffix, truncated
// to an integer count of bytes.
func parseSize(arg string) (int64, error) {
	num := arg
	mult := 1.0
	for _, s := range sizeSuffixes {
		if strings.HasSuffix(arg, s.suffix) {
			num = arg[:len(arg)-len(s.suffix)]
			mult = s.mult
			break
		}
	}
	d, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("Bad argument: %s", arg)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative size: %s", arg)
	}
	return int64(d * mult), nil
}

// parseTime reads a duration argument in seconds with an optional
// s/m/h/d suffix (either case).
func parseTime(arg string) (int64, error) {
	num := arg
	mult := 1.0
	if n := len(arg); n > 0 {
		switch arg[n-1] {
		case 's', 'S':
			num = arg[:n-1]
		case 'm', 'M':
			num, mult = arg[:n-1], 60
		case 'h', 'H':
			num, mult = arg[:n-1], 60*60
		case 'd', 'D':
			num, mult = arg[:n-1], 60*60*24
		}
	}
	d, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("Bad argument: %s", arg)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative time: %s", arg)
	}
	return int64(d * mult), nil
}

func argSize(rest []string) (uint32, error) {
	s, err := takeArg(rest)
	if err != nil {
		return 0, err
	}
	v, err := parseSize(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%s requires a non-negative number", rest[0])
	}
	return uint32(v), nil
}

func argTime(rest []string) (uint32, error) {
	s, err := takeArg(rest)
	if err != nil {
		return 0, err
	}
	v, err := parseTime(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%s requires a non-negative number", rest[0])
	}
	return uint32(v), nil
}

func argStr(rest []string) (string, error) {
	s, err := takeArg(rest)
	if err != nil {
		return "", err
	}
	if len(s) >= proto.StrSize {
		return "", fmt.Errorf("%s: too long", s)
	}
	return s, nil
}
