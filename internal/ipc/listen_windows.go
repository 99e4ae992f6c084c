// listen_windows.go implements the render socket on Windows as a named pipe
// (\\.\pipe\keycap) using the go-winio library.

//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// Listen opens the render pipe. The default security descriptor limits
// access to the creating user.
func Listen(pipe string) (net.Listener, error) {
	ln, err := winio.ListenPipe(pipe, &winio.PipeConfig{
		InputBufferSize:  MaxPayloadSize + frameHeaderSize,
		OutputBufferSize: MaxPayloadSize + frameHeaderSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", pipe, err)
	}
	return ln, nil
}

// Dial connects to the render pipe.
func Dial(ctx context.Context, pipe string) (net.Conn, error) {
	conn, err := winio.DialPipeContext(ctx, pipe)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", pipe, err)
	}
	return conn, nil
}
