// Package ipc serves icon renders to local clients over a framed socket
// protocol.
//
// Every message is one frame: [4-byte LE opcode][4-byte LE length][payload].
// A client sends [OpRender] and receives [OpResult] or [OpError]; requests
// on one connection are answered in order. The transport is a Unix domain
// socket, or a named pipe on Windows (see listen_unix.go and
// listen_windows.go). Payloads are opaque to this package.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Handler answers one render request payload with a result payload.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// Server dispatches frames from accepted connections to a [Handler].
type Server struct {
	// Handler answers OpRender frames.
	Handler Handler
	// RequestTimeout bounds each Handler call; zero means no limit.
	RequestTimeout time.Duration

	// mu guards ln, conns, and closed.
	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	// wg tracks connection goroutines.
	wg sync.WaitGroup
}

// ErrServerClosed is returned by [Server.Serve] after [Server.Close].
var ErrServerClosed = errors.New("ipc: server closed")

// Serve accepts connections on ln until ctx is canceled or [Server.Close]
// is called. It always closes ln and waits for connection goroutines.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.conns = make(map[net.Conn]struct{})
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()
	defer s.wg.Wait()

	slog.Info("ipc server listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrServerClosed
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.serveConn(ctx, conn)
		}()
	}
}

// Close stops accepting and closes every open connection.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	return err
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.Close()
}

// serveConn answers frames on one connection until EOF, OpClose, or a
// protocol error.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	for {
		op, payload, err := DecodeFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("ipc connection dropped", "error", err)
			}
			return
		}

		switch op {
		case OpClose:
			return
		case OpPing:
			err = WriteFrame(conn, OpPong, payload)
		case OpRender:
			err = s.answer(ctx, conn, payload)
		default:
			err = WriteFrame(conn, OpError, []byte(fmt.Sprintf("unsupported opcode %s", op)))
		}
		if err != nil {
			slog.Debug("ipc write failed", "error", err)
			return
		}
	}
}

// answer runs the handler and writes its result or error.
func (s *Server) answer(ctx context.Context, conn net.Conn, payload []byte) error {
	if s.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.call(ctx, payload)
	if err == nil {
		err = WriteFrame(conn, OpResult, result)
		if !errors.Is(err, ErrPayloadTooLarge) {
			slog.Debug("ipc render", "bytes", len(result), "took", time.Since(start))
			return err
		}
	}
	slog.Warn("ipc render failed", "error", err)
	msg := err.Error()
	if len(msg) > MaxPayloadSize {
		msg = msg[:MaxPayloadSize]
	}
	return WriteFrame(conn, OpError, []byte(msg))
}

// call invokes the handler, converting a panic into an error so one bad
// request cannot take the server down.
func (s *Server) call(ctx context.Context, payload []byte) (result []byte, err error) {
	if s.Handler == nil {
		return nil, errors.New("no handler")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.Handler(ctx, payload)
}
