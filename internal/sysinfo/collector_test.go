package sysinfo

import (
	"context"
	"net"
	"strconv"
	"testing"
)

func TestCollectBestEffort(t *testing.T) {
	c := NewWithoutCPU()
	snap := c.Collect(context.Background(), 0, 0)

	if snap.System.MemTotal == 0 {
		t.Error("memory total should be discoverable")
	}
	if snap.Host.Hostname == "" {
		t.Error("hostname should be discoverable")
	}
	if snap.Listener.RDPPortOpen {
		t.Error("port 0 must never report open")
	}
}

func TestPortOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	if !portOpen(port) {
		t.Fatalf("port %d has a listener but reported closed", port)
	}
}

func TestCollectorStopIdempotent(t *testing.T) {
	c := New()
	c.Stop()
	c.Stop() // second stop must not panic or block
}
