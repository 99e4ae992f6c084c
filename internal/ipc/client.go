package ipc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotConnected is returned when an operation requires an active connection.
var ErrNotConnected = errors.New("not connected")

// ErrUnexpectedOpcode is returned when the server answers with a frame the
// client did not ask for.
var ErrUnexpectedOpcode = errors.New("unexpected opcode")

// RemoteError is an error message sent back by the server as [OpError].
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "server: " + e.Message
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client sends render requests over one connection. Calls are serialized.
type Client struct {
	// mu protects conn and serializes request/response pairs.
	mu sync.Mutex
	// conn is the active connection, or nil after Close.
	conn net.Conn
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// DialClient connects to the render server at addr (a socket path, or a
// pipe name on Windows).
func DialClient(ctx context.Context, addr string) (*Client, error) {
	conn, err := Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// Call sends payload as [OpRender] and waits for the answer. An [OpError]
// answer is returned as a [*RemoteError].
func (c *Client) Call(ctx context.Context, payload []byte) ([]byte, error) {
	op, reply, err := c.roundTrip(ctx, OpRender, payload)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpResult:
		return reply, nil
	case OpError:
		return nil, &RemoteError{Message: string(reply)}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnexpectedOpcode, op)
}

// Ping checks that the server is answering.
func (c *Client) Ping(ctx context.Context) error {
	nonce := []byte(time.Now().Format(time.RFC3339Nano))
	op, reply, err := c.roundTrip(ctx, OpPing, nonce)
	if err != nil {
		return err
	}
	if op != OpPong || !bytes.Equal(reply, nonce) {
		return fmt.Errorf("%w: %s", ErrUnexpectedOpcode, op)
	}
	return nil
}

// Close tells the server the client is done and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = WriteFrame(c.conn, OpClose, nil)
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) roundTrip(ctx context.Context, op Opcode, payload []byte) (Opcode, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return 0, nil, ErrNotConnected
	}

	// Clear any deadline left by a canceled call; cancellation of this one
	// unblocks I/O through AfterFunc so ctx.Err is set when it fails.
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return 0, nil, fmt.Errorf("set deadline: %w", err)
	}
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := WriteFrame(c.conn, op, payload); err != nil {
		return 0, nil, c.fail(ctx, err)
	}
	reply, body, err := DecodeFrame(c.conn)
	if err != nil {
		return 0, nil, c.fail(ctx, fmt.Errorf("reading %s reply: %w", op, err))
	}
	return reply, body, nil
}

// fail drops the connection after a half-finished exchange and prefers the
// context's error when cancellation caused err. Callers hold mu.
func (c *Client) fail(ctx context.Context, err error) error {
	c.conn.Close()
	c.conn = nil
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}
