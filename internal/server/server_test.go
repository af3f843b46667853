package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mark-e-deyoung/qperf/internal/proto"
	"github.com/mark-e-deyoung/qperf/internal/run"
)

// noop test bodies; the registry order is irrelevant to these tests.
func nopClient(*run.Runtime) error { return nil }
func nopServer(*run.Runtime) error { return nil }

func startServer(t *testing.T) (*Server, *bytes.Buffer, context.CancelFunc) {
	t.Helper()
	var errBuf bytes.Buffer
	rt, err := run.New(io.Discard, &errBuf)
	if err != nil {
		t.Fatalf("run.New: %v", err)
	}
	rt.ListenPort = 0
	rt.ServerTimeout = 1
	srv := New(rt, []run.Test{
		{Name: "conf", Index: 0, Client: nopClient, Server: nopServer},
		{Name: "quit", Index: 1, Client: nopClient, Server: nopServer},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("Serve: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("server never became ready")
	}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("server did not stop")
		}
	})
	return srv, &errBuf, cancel
}

func sendReq(t *testing.T, addr string, req *proto.Req) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write(proto.EncodeReq(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	return conn
}

func waitClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var b [1]byte
	if _, err := conn.Read(b[:]); err != io.EOF {
		t.Fatalf("expected peer close, got %v", err)
	}
}

func TestServer_VersionGate(t *testing.T) {
	srv, errBuf, _ := startServer(t)

	req := proto.Req{VerMaj: 0, VerMin: 1, VerInc: 0, Timeout: 5}
	conn := sendReq(t, srv.Addr(), &req)
	waitClosed(t, conn)
	conn.Close()

	if !strings.Contains(errBuf.String(), "upgrade client from 0.1.0 to 0.2.0") {
		t.Fatalf("stderr %q, want upgrade message", errBuf.String())
	}

	// The server must remain available for the next connection.
	req2 := proto.Req{VerMaj: proto.VerMaj, VerMin: proto.VerMin, Timeout: 5, ReqIndex: 200}
	conn2 := sendReq(t, srv.Addr(), &req2)
	waitClosed(t, conn2)
	conn2.Close()
	if !strings.Contains(errBuf.String(), "server: bad request index: 200") {
		t.Fatalf("stderr %q, want bad index message", errBuf.String())
	}
}

func TestServer_NewerClientVersion(t *testing.T) {
	srv, errBuf, _ := startServer(t)
	req := proto.Req{VerMaj: 0, VerMin: 9, VerInc: 2, Timeout: 5}
	conn := sendReq(t, srv.Addr(), &req)
	waitClosed(t, conn)
	conn.Close()
	if !strings.Contains(errBuf.String(), "upgrade server from 0.2.0 to 0.9.2") {
		t.Fatalf("stderr %q, want server upgrade message", errBuf.String())
	}
}

func TestServer_RequestTimeout(t *testing.T) {
	srv, _, _ := startServer(t)

	// Connect and stall: the framed receive must give up and the server must
	// accept the next client afterwards.
	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	time.Sleep(1500 * time.Millisecond)

	req := proto.Req{VerMaj: proto.VerMaj, VerMin: proto.VerMin, Timeout: 5, ReqIndex: 1}
	conn2 := sendReq(t, srv.Addr(), &req)
	waitClosed(t, conn2)
	conn2.Close()
}
