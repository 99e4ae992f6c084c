package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Opcode identifies the kind of an IPC frame.
type Opcode uint32

const (
	// OpRender carries a render request from client to server.
	OpRender Opcode = 1
	// OpResult carries a successful render response.
	OpResult Opcode = 2
	// OpError carries a UTF-8 error message in place of a result.
	OpError Opcode = 3
	// OpClose announces that the sender is hanging up.
	OpClose Opcode = 4
	// OpPing asks the server to echo the payload back as OpPong.
	OpPing Opcode = 5
	// OpPong answers OpPing.
	OpPong Opcode = 6

	// frameHeaderSize is the byte length of the frame header consisting of a
	// 4-byte little-endian opcode followed by a 4-byte little-endian payload
	// length.
	frameHeaderSize = 8

	// MaxPayloadSize is the maximum allowed payload size (1 MB).
	MaxPayloadSize = 1 << 20
)

func (o Opcode) String() string {
	switch o {
	case OpRender:
		return "render"
	case OpResult:
		return "result"
	case OpError:
		return "error"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return fmt.Sprintf("opcode(%d)", uint32(o))
}

// ErrPayloadTooLarge is returned when a frame payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("payload too large")

// ///////////////////////////////////////////////
// Frame Encoding
// ///////////////////////////////////////////////

// EncodeFrame builds a frame: [4-byte LE opcode][4-byte LE length][payload].
func EncodeFrame(opcode Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(opcode))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	return frame, nil
}

// WriteFrame encodes a frame and writes it to w in a single call.
func WriteFrame(w io.Writer, opcode Opcode, payload []byte) error {
	frame, err := EncodeFrame(opcode, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing %s frame: %w", opcode, err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Frame Decoding
// ///////////////////////////////////////////////

// DecodeFrame reads a single frame from reader, handling partial reads.
// A clean end of stream before the header surfaces as [io.EOF].
func DecodeFrame(reader io.Reader) (opcode Opcode, payload []byte, err error) {
	header := make([]byte, frameHeaderSize)
	if _, err = io.ReadFull(reader, header); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}

	opcode = Opcode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])

	if length > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, length, MaxPayloadSize)
	}

	payload = make([]byte, length)
	if _, err = io.ReadFull(reader, payload); err != nil {
		return 0, nil, fmt.Errorf("reading frame payload: %w", err)
	}

	return opcode, payload, nil
}
