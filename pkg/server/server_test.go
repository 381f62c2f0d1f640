package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/pkg/controller"
	"github.com/downfa11-org/go-journal/pkg/journal"
	"github.com/downfa11-org/go-journal/pkg/server"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := &config.Config{Location: t.TempDir(), UniqueID: "node-1", ArchiveAfterMS: -1}
	m := journal.NewManager(cfg, nil)
	t.Cleanup(m.CloseAll)
	return server.NewServer(controller.NewCommandHandler(m, cfg), "orders")
}

func roundTrip(t *testing.T, conn net.Conn, cmd string) string {
	t.Helper()
	if err := server.WriteFrame(conn, []byte(cmd)); err != nil {
		t.Fatalf("write %q: %v", cmd, err)
	}
	resp, err := server.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read reply to %q: %v", cmd, err)
	}
	return string(resp)
}

func TestHandleConnection(t *testing.T) {
	srv := newServer(t)

	client, serverConn := net.Pipe()
	defer client.Close()
	go srv.HandleConnection(serverConn)

	if got := roundTrip(t, client, "CREATE id=m1 message=hello"); got != "created m1" {
		t.Fatalf("unexpected CREATE reply: %s", got)
	}
	if got := roundTrip(t, client, "DELETE id=m1"); got != "deleted m1" {
		t.Fatalf("unexpected DELETE reply: %s", got)
	}
	if got := roundTrip(t, client, "BOGUS"); got != "ERROR: unknown command: BOGUS" {
		t.Fatalf("unexpected reply: %s", got)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := newServer(t)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if got := roundTrip(t, conn, "STATS"); got == "" {
		t.Fatalf("empty STATS reply")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not stop after cancel")
	}
}

func TestReadFrameRejectsOversizedFrame(t *testing.T) {
	client, serverConn := net.Pipe()
	defer client.Close()
	defer serverConn.Close()

	go func() {
		_, _ = client.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}()
	if _, err := server.ReadFrame(serverConn); err == nil {
		t.Fatalf("expected oversized frame to be rejected")
	}
}
