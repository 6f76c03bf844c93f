package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Framing constants. These are fixed by the wire contract and shared
// byte-for-byte with every interoperating implementation.
const (
	// HeaderSize is the fixed frame header: 4-byte type tag plus
	// 4-byte big-endian payload length.
	HeaderSize = 8

	// ChunkSize bounds the payload of a single DATA message.
	ChunkSize = 4096

	// MaxPayloadSize is the largest payload length representable in
	// the header's 4-byte length field.
	MaxPayloadSize = 1<<32 - 1

	// MaxFilenameLen bounds the declared filename after sanitization.
	MaxFilenameLen = 255
)

// Type is the 4-byte ASCII type tag of a message.
type Type string

const (
	TypeInfo Type = "INFO" // file info: JSON {"filename", "filesize"}
	TypeData Type = "DATA" // raw file bytes, at most ChunkSize
	TypeEnd  Type = "FEND" // end of file, empty payload
	TypeAck  Type = "ACK_" // human-readable status text
	TypeErr  Type = "ERR_" // human-readable error text
)

func (t Type) valid() bool {
	switch t {
	case TypeInfo, TypeData, TypeEnd, TypeAck, TypeErr:
		return true
	}
	return false
}

// Message is one framed protocol unit.
type Message struct {
	Type    Type
	Payload []byte
}

// Encode produces the wire form of a message: header followed by the
// payload bytes.
func Encode(typ Type, payload []byte) ([]byte, error) {
	if !typ.valid() {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown message type %q", string(typ))}
	}
	if uint64(len(payload)) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, typ...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	return buf, nil
}

// DecodeHeader splits a raw frame header into its type and declared
// payload length.
func DecodeHeader(hdr [HeaderSize]byte) (Type, uint32, error) {
	typ := Type(hdr[:4])
	if !typ.valid() {
		return "", 0, &ProtocolError{Reason: fmt.Sprintf("unrecognized type tag %q", hdr[:4])}
	}
	return typ, binary.BigEndian.Uint32(hdr[4:]), nil
}

// ReadMessage reads exactly one message from r, blocking until the
// full header and payload arrive. A stream that ends mid-header or
// mid-payload yields ErrConnectionClosed; a truncated message is
// never returned.
func ReadMessage(r io.Reader) (Message, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, closed(err)
	}
	typ, length, err := DecodeHeader(hdr)
	if err != nil {
		return Message{}, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, closed(err)
	}
	return Message{Type: typ, Payload: payload}, nil
}

// WriteMessage frames and writes one message to w. Callers writing
// through a bufio.Writer are responsible for flushing.
func WriteMessage(w io.Writer, typ Type, payload []byte) error {
	frame, err := Encode(typ, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

func closed(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrConnectionClosed
	}
	// A reset or locally closed net.Conn surfaces as a non-EOF error.
	return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
}
