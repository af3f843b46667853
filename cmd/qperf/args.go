package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mark-e-deyoung/qperf/internal/run"
	"github.com/mark-e-deyoung/qperf/internal/tests"
)

// errUsage marks argument errors; the message has already been printed.
var errUsage = errors.New("usage")

// app holds the command state built up while walking the argument list.
type app struct {
	rt          *run.Runtime
	metricsAddr string
	logFormat   string
	logLevel    string

	stdout io.Writer
	exit   func(int)
}

func newApp(rt *run.Runtime) *app {
	return &app{
		rt:        rt,
		logFormat: "text",
		logLevel:  "info",
		stdout:    os.Stdout,
		exit:      os.Exit,
	}
}

func (a *app) usageDie(format string, args ...any) error {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return errUsage
}

// doArgs walks the token stream. An option token mutates state; the first
// bare token names the server, the second names a test and triggers an
// immediate client run. With no client-only activity the process serves.
func (a *app) doArgs(args []string) error {
	isClient := false
	testSpecified := false

	i := 0
	for i < len(args) {
		arg := args[i]
		if len(arg) > 0 && arg[0] == '-' {
			opt := findOption(arg)
			if opt == nil {
				return a.usageDie("%s: bad option; try qperf --help", arg)
			}
			if !opt.serverValid {
				isClient = true
			}
			n, err := a.apply(opt, args[i:])
			if err != nil {
				if errors.Is(err, errUsage) {
					return err
				}
				return a.usageDie("%v", err)
			}
			i += n
			continue
		}
		isClient = true
		if a.rt.ServerName == "" {
			a.rt.ServerName = arg
		} else {
			t := tests.Find(arg)
			if t == nil {
				return a.usageDie("%s: bad test; try qperf --help", arg)
			}
			if err := a.rt.Client(*t); err != nil && errors.Is(err, run.ErrFatal) {
				return err
			}
			testSpecified = true
		}
		i++
	}

	if !isClient {
		return a.server()
	}
	if !testSpecified {
		if a.rt.ServerName == "" {
			return a.usageDie("You used a client only option but did not specify the " +
				"server name.\nDo you want to be a client or server?")
		}
		if tests.Find(a.rt.ServerName) != nil {
			return a.usageDie("Must specify host name first; try qperf --help")
		}
		return a.usageDie("Must specify a test type; try qperf --help")
	}
	return nil
}

// apply runs one option and reports how many tokens it consumed.
func (a *app) apply(opt *option, rest []string) (int, error) {
	switch opt.kind {
	case kindLong:
		v, err := parseLong(rest)
		if err != nil {
			return 0, err
		}
		a.rt.Tab.SetU32(opt.name, opt.loc, v)
		a.rt.Tab.SetU32(opt.name, opt.rem, v)
		return 2, nil
	case kindSize:
		v, err := argSize(rest)
		if err != nil {
			return 0, err
		}
		a.rt.Tab.SetU32(opt.name, opt.loc, v)
		a.rt.Tab.SetU32(opt.name, opt.rem, v)
		return 2, nil
	case kindTime:
		v, err := argTime(rest)
		if err != nil {
			return 0, err
		}
		a.rt.Tab.SetU32(opt.name, opt.loc, v)
		a.rt.Tab.SetU32(opt.name, opt.rem, v)
		return 2, nil
	case kindStr:
		s, err := argStr(rest)
		if err != nil {
			return 0, err
		}
		a.rt.Tab.SetStr(opt.name, opt.loc, s)
		a.rt.Tab.SetStr(opt.name, opt.rem, s)
		return 2, nil
	case kindMisc:
		return a.applyMisc(opt, rest)
	case kindHelp:
		category := "main"
		if len(rest) > 1 {
			category = rest[1]
		}
		text, ok := usage[category]
		if !ok {
			return 0, a.usageDie("Cannot find help category %s; try: qperf --help", category)
		}
		fmt.Fprint(a.stdout, text)
		a.exit(0)
		return 2, nil
	case kindVersion:
		fmt.Fprintf(a.stdout, "qperf %s\n", version())
		a.exit(0)
		return 1, nil
	}
	return 0, fmt.Errorf("internal error: unknown option kind for %s", opt.name)
}

func (a *app) applyMisc(opt *option, rest []string) (int, error) {
	s := a.rt.Show
	switch opt.tag {
	case "e":
		v, err := parseLong(rest)
		if err != nil {
			return 0, err
		}
		s.Precision = int(v)
		return 2, nil
	case "u":
		s.UnifyUnits = true
	case "v":
		s.VerboseConf, s.VerboseStat, s.VerboseTime, s.VerboseUsed = 1, 1, 1, 1
	case "D":
		a.rt.Debug = true
		s.Debug = true
		a.logLevel = "debug"
	case "H":
		name, err := takeArg(rest)
		if err != nil {
			return 0, err
		}
		a.rt.ServerName = name
		return 2, nil
	case "U":
		a.rt.UnifyNodes = true
	case "W":
		v, err := argTime(rest)
		if err != nil {
			return 0, err
		}
		a.rt.Wait = v
		return 2, nil
	case "lp":
		v, err := parseLong(rest)
		if err != nil {
			return 0, err
		}
		a.rt.ListenPort = int(v)
		return 2, nil
	case "ma":
		addr, err := takeArg(rest)
		if err != nil {
			return 0, err
		}
		a.metricsAddr = addr
		return 2, nil
	case "st":
		v, err := argTime(rest)
		if err != nil {
			return 0, err
		}
		a.rt.ServerTimeout = v
		return 2, nil
	case "vc":
		s.VerboseConf = 1
	case "vs":
		s.VerboseStat = 1
	case "vt":
		s.VerboseTime = 1
	case "vu":
		s.VerboseUsed = 1
	case "vv":
		s.VerboseConf, s.VerboseStat, s.VerboseTime, s.VerboseUsed = 2, 2, 2, 2
	case "vC":
		s.VerboseConf = 2
	case "vS":
		s.VerboseStat = 2
	case "vT":
		s.VerboseTime = 2
	case "vU":
		s.VerboseUsed = 2
	default:
		return 0, fmt.Errorf("internal error: unknown misc option %s", opt.name)
	}
	return 1, nil
}
