package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv maps QPERF_* environment variables onto defaults. Command-line
// options run afterwards and win. Empty values are ignored.
func (a *app) applyEnv() error {
	get := func(k string) (string, bool) {
		v, ok := os.LookupEnv(k)
		return strings.TrimSpace(v), ok
	}
	if v, ok := get("QPERF_LISTEN_PORT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid QPERF_LISTEN_PORT: %s", v)
		}
		a.rt.ListenPort = n
	}
	if v, ok := get("QPERF_METRICS"); ok && v != "" {
		a.metricsAddr = v
	}
	if v, ok := get("QPERF_LOG_FORMAT"); ok && v != "" {
		switch v {
		case "text", "json":
			a.logFormat = v
		default:
			return fmt.Errorf("invalid QPERF_LOG_FORMAT: %s", v)
		}
	}
	if v, ok := get("QPERF_LOG_LEVEL"); ok && v != "" {
		switch v {
		case "debug", "info", "warn", "error":
			a.logLevel = v
		default:
			return fmt.Errorf("invalid QPERF_LOG_LEVEL: %s", v)
		}
	}
	return nil
}
