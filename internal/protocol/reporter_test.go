package protocol

import (
	"context"
	"net"
	"testing"
	"time"
)

// startAckServer accepts one connection, captures what was written and acks.
func startAckServer(t *testing.T) (addr string, got <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, MaxRecordSize)
		n, _ := conn.Read(buf)
		ch <- string(buf[:n])
		conn.Write([]byte(Ack))
	}()

	return ln.Addr().String(), ch
}

func TestReporter_Report(t *testing.T) {
	addr, got := startAckServer(t)

	r := NewReporter(addr, time.Second, nil)
	if err := r.Report(context.Background(), Record{Elapsed: 3.41, Origin: "bar"}); err != nil {
		t.Fatalf("Report: %v", err)
	}

	select {
	case payload := <-got:
		if payload != "3.4100|bar" {
			t.Errorf("payload = %q, want %q", payload, "3.4100|bar")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the record")
	}
}

func TestReporter_Whitespace(t *testing.T) {
	addr, got := startAckServer(t)

	r := NewReporter(addr, time.Second, nil)
	r.Whitespace = true
	if err := r.Report(context.Background(), Record{Elapsed: 12.5, Origin: "foo"}); err != nil {
		t.Fatalf("Report: %v", err)
	}

	if payload := <-got; payload != "12.50 foo" {
		t.Errorf("payload = %q, want %q", payload, "12.50 foo")
	}
}

func TestReporter_ConnectFailure(t *testing.T) {
	// Grab a free port and release it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	r := NewReporter(addr, 200*time.Millisecond, nil)
	if err := r.Report(context.Background(), Record{Elapsed: 1, Origin: "a"}); err == nil {
		t.Error("expected connect error")
	}

	// Best effort must not panic or block past the timeout.
	done := make(chan struct{})
	go func() {
		r.ReportBestEffort(context.Background(), Record{Elapsed: 1, Origin: "a"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReportBestEffort blocked")
	}
}

func TestNewReporter_Defaults(t *testing.T) {
	r := NewReporter("localhost:1", 0, nil)
	if r.timeout != DefaultReportTimeout {
		t.Errorf("timeout = %v, want %v", r.timeout, DefaultReportTimeout)
	}
	if r.logger == nil {
		t.Error("logger should default to a discard logger")
	}
}

func TestLocalAddr(t *testing.T) {
	if got := LocalAddr(DefaultPort); got != "localhost:2398" {
		t.Errorf("LocalAddr = %q, want %q", got, "localhost:2398")
	}
}
