package transfer

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/jaywantadh/FerryByte/internal/filename"
	"github.com/jaywantadh/FerryByte/internal/protocol"
	"github.com/jaywantadh/FerryByte/pkg/logging"
)

// Sender drives the client side of the transfer protocol: one file
// over one connection, one chunk in flight at a time.
type Sender struct {
	Addr     string
	Progress ProgressFunc
}

// Result is the terminal outcome of one send attempt.
type Result struct {
	Path  string // local path as given by the caller
	Name  string // sanitized name declared to the peer
	Bytes int64  // bytes acknowledged by the peer
	Total int64  // declared file size
	Err   error
}

// Ok reports whether the attempt completed.
func (r Result) Ok() bool { return r.Err == nil }

// SendFile transfers one local file to the peer at s.Addr. The session
// runs synchronously; the returned Result carries the acknowledged
// byte offset whether or not the transfer completed.
func (s *Sender) SendFile(path string) Result {
	res := Result{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		res.Err = &TransferError{File: path, Err: err}
		return res
	}
	if info.IsDir() {
		res.Err = &TransferError{File: path, Err: fmt.Errorf("%s is a directory, not a file", path)}
		return res
	}

	name, err := filename.Sanitize(filepath.Base(path))
	if err != nil {
		res.Err = &TransferError{File: path, Err: err}
		return res
	}
	res.Name = name
	res.Total = info.Size()

	conn, err := net.Dial("tcp", s.Addr)
	if err != nil {
		res.Err = &TransferError{File: path, Err: err}
		return res
	}
	defer conn.Close()

	log := logging.Log.WithFields(logrus.Fields{"file": name, "size": info.Size(), "peer": s.Addr})
	log.Info("sending file")

	res.Bytes, err = s.run(conn, path, name, info.Size())
	if err != nil {
		log.WithError(err).Error("send failed")
		res.Err = &TransferError{File: path, Bytes: res.Bytes, Err: err}
		return res
	}

	log.Info("file sent")
	return res
}

// run walks the sender state machine: INFO, then ACK-gated DATA
// chunks, then FEND and the final ACK. It returns the byte offset the
// peer has acknowledged.
func (s *Sender) run(conn net.Conn, path, name string, size int64) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	payload, err := protocol.FileInfo{Name: name, Size: size}.Marshal()
	if err != nil {
		return 0, err
	}
	if err := writeFlush(w, protocol.TypeInfo, payload); err != nil {
		return 0, err
	}
	if _, err := awaitAck(r); err != nil {
		return 0, err
	}

	var sent int64
	buf := make([]byte, protocol.ChunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if err := writeFlush(w, protocol.TypeData, buf[:n]); err != nil {
				return sent, err
			}
			if _, err := awaitAck(r); err != nil {
				return sent, err
			}
			sent += int64(n)
			if s.Progress != nil {
				s.Progress(sent, size)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return sent, readErr
		}
	}

	if err := writeFlush(w, protocol.TypeEnd, nil); err != nil {
		return sent, err
	}
	if _, err := awaitAck(r); err != nil {
		return sent, err
	}
	return sent, nil
}

// awaitAck blocks for the peer's next message and requires it to be an
// acknowledgment. An error message from the peer becomes a
// RejectedError carrying its text.
func awaitAck(r io.Reader) (string, error) {
	msg, err := protocol.ReadMessage(r)
	if err != nil {
		return "", err
	}
	switch msg.Type {
	case protocol.TypeAck:
		return string(msg.Payload), nil
	case protocol.TypeErr:
		return "", &RejectedError{Detail: string(msg.Payload)}
	default:
		return "", &protocol.ProtocolError{Reason: fmt.Sprintf("expected %s, got %s", protocol.TypeAck, msg.Type)}
	}
}
