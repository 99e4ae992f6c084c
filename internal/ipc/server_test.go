// Tests for [Server] and [Client] over a loopback TCP listener: successful
// calls, handler errors and panics, ping, unknown opcodes, cancellation, and
// shutdown.
package ipc

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// startServer runs a server on 127.0.0.1 and returns a connected client.
func startServer(t *testing.T, h Handler) (*Server, *Client) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &Server{Handler: h}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := NewClient(conn)
	t.Cleanup(func() {
		c.Close()
		srv.Close()
		select {
		case err := <-done:
			if !errors.Is(err, ErrServerClosed) {
				t.Errorf("Serve returned %v, want ErrServerClosed", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})
	return srv, c
}

func echoUpper(_ context.Context, payload []byte) ([]byte, error) {
	return bytes.ToUpper(payload), nil
}

// ///////////////////////////////////////////////
// Call
// ///////////////////////////////////////////////

func TestCallReturnsResult(t *testing.T) {
	_, c := startServer(t, echoUpper)
	for _, in := range []string{"mute", "deafen", ""} {
		got, err := c.Call(context.Background(), []byte(in))
		if err != nil {
			t.Fatalf("Call(%q): %v", in, err)
		}
		if string(got) != strings.ToUpper(in) {
			t.Errorf("Call(%q) = %q, want %q", in, got, strings.ToUpper(in))
		}
	}
}

func TestCallHandlerError(t *testing.T) {
	_, c := startServer(t, func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("font unavailable")
	})
	_, err := c.Call(context.Background(), []byte("x"))
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remote.Message != "font unavailable" {
		t.Errorf("Message = %q", remote.Message)
	}
}

func TestCallHandlerPanicKeepsConnection(t *testing.T) {
	_, c := startServer(t, func(_ context.Context, p []byte) ([]byte, error) {
		if string(p) == "boom" {
			panic("bad request")
		}
		return p, nil
	})
	var remote *RemoteError
	if _, err := c.Call(context.Background(), []byte("boom")); !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	got, err := c.Call(context.Background(), []byte("ok"))
	if err != nil || string(got) != "ok" {
		t.Errorf("follow-up Call = %q, %v", got, err)
	}
}

func TestNilHandler(t *testing.T) {
	_, c := startServer(t, nil)
	var remote *RemoteError
	if _, err := c.Call(context.Background(), []byte("x")); !errors.As(err, &remote) {
		t.Errorf("error = %v, want *RemoteError", err)
	}
}

func TestCallCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	_, c := startServer(t, func(ctx context.Context, p []byte) ([]byte, error) {
		<-release
		return p, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Call(ctx, []byte("slow")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestConcurrentCallsSerialize(t *testing.T) {
	_, c := startServer(t, echoUpper)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := strings.Repeat("k", i+1)
			got, err := c.Call(context.Background(), []byte(in))
			if err != nil || string(got) != strings.ToUpper(in) {
				t.Errorf("Call(%q) = %q, %v", in, got, err)
			}
		}()
	}
	wg.Wait()
}

// ///////////////////////////////////////////////
// Ping & Protocol
// ///////////////////////////////////////////////

func TestPing(t *testing.T) {
	_, c := startServer(t, echoUpper)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestUnknownOpcodeAnswersError(t *testing.T) {
	_, c := startServer(t, echoUpper)
	op, body, err := c.roundTrip(context.Background(), Opcode(42), nil)
	if err != nil {
		t.Fatal(err)
	}
	if op != OpError || !strings.Contains(string(body), "opcode(42)") {
		t.Errorf("reply = %v %q", op, body)
	}
}

// ///////////////////////////////////////////////
// Lifecycle
// ///////////////////////////////////////////////

func TestClientClose(t *testing.T) {
	_, c := startServer(t, echoUpper)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := c.Call(context.Background(), nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Call after Close = %v, want ErrNotConnected", err)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{Handler: echoUpper}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve = %v, want ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop on cancel")
	}
}

func TestServeAfterClose(t *testing.T) {
	srv := &Server{}
	srv.Close()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Serve(context.Background(), ln); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve = %v, want ErrServerClosed", err)
	}
}
