package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mark-e-deyoung/qperf/internal/logging"
	"github.com/mark-e-deyoung/qperf/internal/metrics"
	"github.com/mark-e-deyoung/qperf/internal/run"
	"github.com/mark-e-deyoung/qperf/internal/server"
	"github.com/mark-e-deyoung/qperf/internal/tests"
)

func main() {
	rt, err := run.New(os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a := newApp(rt)
	if err := a.applyEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := a.doArgs(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, run.ErrFatal) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(rt.ExitStatus)
}

// server runs the accept loop, and the metrics endpoint when one was
// configured, until interrupted.
func (a *app) server() error {
	logger := logging.New(a.logFormat, parseLevel(a.logLevel), nil)
	logging.Set(logger)
	metrics.InitBuildInfo(version())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.rt, tests.Registry, server.WithLogger(logger))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	if a.metricsAddr != "" {
		msrv := metrics.StartHTTP(a.metricsAddr)
		g.Go(func() error {
			<-ctx.Done()
			shctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return msrv.Shutdown(shctx)
		})
	}
	if err := g.Wait(); err != nil {
		return a.usageDie("%v", err)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
