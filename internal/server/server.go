// Package server accepts test invocations on the control port and dispatches
// them to the registered test bodies, one client at a time.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/mark-e-deyoung/qperf/internal/logging"
	"github.com/mark-e-deyoung/qperf/internal/metrics"
	"github.com/mark-e-deyoung/qperf/internal/proto"
	"github.com/mark-e-deyoung/qperf/internal/run"
)

// Server owns the control listener and serves requests sequentially. Only one
// client is active at a time; the protocol has no concurrent service.
type Server struct {
	rt     *run.Runtime
	tests  []run.Test
	logger *slog.Logger

	mu        sync.Mutex
	listener  net.Listener
	readyCh   chan struct{}
	readyOnce sync.Once
}

type Option func(*Server)

// WithLogger overrides the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a server over the runtime and the ordered test registry. The
// registry order is part of the wire contract.
func New(rt *run.Runtime, tests []run.Test, opts ...Option) *Server {
	s := &Server{
		rt:      rt,
		tests:   tests,
		logger:  logging.L(),
		readyCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve binds the control port and loops accepting requests until the
// context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.rt.ListenPort)))
	if err != nil {
		return fmt.Errorf("%w: Unable to bind to listen port: %v", ErrListen, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", ln.Addr().String())
	go func() { <-ctx.Done(); _ = ln.Close() }()

	for {
		s.rt.Debugf("waiting for request")
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			_ = s.rt.Errorf("%v", fmt.Errorf("%w failed: %v", ErrAccept, err))
			time.Sleep(200 * time.Millisecond)
			continue
		}
		s.serveConn(conn)
	}
}

// serveConn receives one request, gates it, runs the test, and closes the
// connection. Rejections leave the server available for the next client.
func (s *Server) serveConn(conn net.Conn) {
	defer func() { _ = conn.Close(); s.rt.Conn = nil }()
	metrics.RequestsTotal.Inc()

	s.rt.Conn = conn
	s.rt.Req.Timeout = s.rt.ServerTimeout
	buf := make([]byte, proto.ReqSize)
	if s.rt.RecvMesg(buf, "request data") != nil {
		return
	}
	if err := proto.DecodeReq(buf, &s.rt.Req); err != nil {
		_ = s.rt.Errorf("failed to decode request: %v", err)
		return
	}
	req := &s.rt.Req

	if req.VerMaj != proto.VerMaj || req.VerMin != proto.VerMin {
		metrics.VersionRejects.Inc()
		hMaj, hMin, hInc := int(req.VerMaj), int(req.VerMin), int(req.VerInc)
		lMaj, lMin, lInc := proto.VerMaj, proto.VerMin, proto.VerInc
		low := "server"
		if lMaj > hMaj || (lMaj == hMaj && lMin > hMin) {
			hMaj, hMin, hInc, lMaj, lMin, lInc = lMaj, lMin, lInc, hMaj, hMin, hInc
			low = "client"
		}
		_ = s.rt.Errorf("upgrade %s from %d.%d.%d to %d.%d.%d",
			low, lMaj, lMin, lInc, hMaj, hMin, hInc)
		s.logger.Warn("version_reject", "client", fmt.Sprintf("%d.%d.%d", req.VerMaj, req.VerMin, req.VerInc))
		return
	}
	if int(req.ReqIndex) >= len(s.tests) {
		metrics.BadIndexRejects.Inc()
		_ = s.rt.Errorf("server: bad request index: %d", req.ReqIndex)
		return
	}

	test := s.tests[req.ReqIndex]
	s.rt.TestName = test.Name
	s.rt.Debugf("request is %s", test.Name)
	s.logger.Info("request", "test", test.Name, "remote", conn.RemoteAddr().String())
	metrics.TestsRun.WithLabelValues(test.Name).Inc()
	metrics.ActiveTest.Set(1)
	defer metrics.ActiveTest.Set(0)

	s.rt.InitLStat()
	s.rt.Timer.Reset()
	s.rt.Successful = false
	if err := s.rt.SetAffinity(); err != nil {
		return
	}
	_ = test.Server(s.rt)
	s.rt.Timer.Stop()
}
