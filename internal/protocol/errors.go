package protocol

import "errors"

// ErrConnectionClosed reports that the stream ended before a complete
// message could be read or written.
var ErrConnectionClosed = errors.New("connection closed mid-message")

// ErrPayloadTooLarge reports a payload whose length does not fit in
// the header's 4-byte length field.
var ErrPayloadTooLarge = errors.New("payload exceeds maximum representable length")

// ProtocolError reports a malformed frame or an unexpected message.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}
