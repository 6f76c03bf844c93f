package transfer

import "fmt"

// RejectedError reports that the peer answered with an error message
// instead of an acknowledgment. Detail carries the peer's text.
type RejectedError struct {
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transfer rejected by peer: %s", e.Detail)
}

// TransferError wraps any session failure together with the byte
// offset already transferred when it happened.
type TransferError struct {
	File  string
	Bytes int64
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %q failed after %d bytes: %v", e.File, e.Bytes, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
