package transfer

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jaywantadh/FerryByte/internal/filename"
	"github.com/jaywantadh/FerryByte/internal/protocol"
	"github.com/jaywantadh/FerryByte/pkg/logging"
)

// Receiver handles one accepted connection. It accepts exactly one
// file and writes it into ReceiveDir under a collision-free name; on
// any failure the partially written file is removed from disk.
type Receiver struct {
	ID         string
	ReceiveDir string
	Allocator  *filename.Allocator
	Events     chan<- Event
}

// Received describes the terminal state of a receiver session.
type Received struct {
	Name  string // sanitized filename declared by the peer
	Path  string // final path on disk (empty unless committed)
	Bytes int64  // bytes written
	Total int64  // declared size
}

// Run drives the receiver state machine until the transfer either
// commits or aborts. The error, when non-nil, is a TransferError
// wrapping the underlying failure; the peer gets a best-effort error
// message before the caller closes the connection.
func (rc *Receiver) Run(conn net.Conn) (Received, error) {
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	recv, err := rc.receive(r, w)
	if err != nil {
		emit(rc.Events, Event{
			SessionID: rc.ID, Kind: EventFailed,
			FileName: recv.Name, Bytes: recv.Bytes, Total: recv.Total,
			Error: err.Error(),
		})
		return recv, &TransferError{File: recv.Name, Bytes: recv.Bytes, Err: err}
	}

	emit(rc.Events, Event{
		SessionID: rc.ID, Kind: EventReceived,
		FileName: recv.Name, Path: recv.Path, Bytes: recv.Bytes, Total: recv.Total,
	})
	return recv, nil
}

func (rc *Receiver) receive(r *bufio.Reader, w *bufio.Writer) (Received, error) {
	var recv Received

	// The very first message must declare the file; nothing touches
	// the disk before it validates.
	msg, err := protocol.ReadMessage(r)
	if err != nil {
		return recv, err
	}
	if msg.Type != protocol.TypeInfo {
		rc.sendErr(w, "Expected file info message")
		return recv, &protocol.ProtocolError{Reason: fmt.Sprintf("expected %s, got %s", protocol.TypeInfo, msg.Type)}
	}

	info, err := protocol.ParseFileInfo(msg.Payload)
	if err != nil {
		rc.sendErr(w, err.Error())
		return recv, err
	}
	name, err := filename.Sanitize(info.Name)
	if err != nil {
		rc.sendErr(w, err.Error())
		return recv, err
	}
	recv.Name = name
	recv.Total = info.Size

	path, f, err := rc.Allocator.Reserve(rc.ReceiveDir, name)
	if err != nil {
		rc.sendErr(w, "Unable to open destination file")
		return recv, err
	}

	log := logging.Log.WithFields(logrus.Fields{"session": rc.ID, "file": name, "size": info.Size})
	log.Info("receiving file")

	recv.Bytes, err = rc.receiveData(r, w, f, name, info.Size)
	if err != nil {
		f.Close()
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warnf("failed to remove partial file %s: %v", path, rmErr)
		}
		return recv, err
	}

	recv.Path = path
	log.WithField("path", path).Info("file received")
	return recv, nil
}

// receiveData runs the DATA/ACK loop until FEND, returning the byte
// count actually written. The destination file is closed on success;
// the caller removes it on failure.
func (rc *Receiver) receiveData(r *bufio.Reader, w *bufio.Writer, f *os.File, name string, size int64) (int64, error) {
	if err := rc.sendAck(w, "Ready to receive file"); err != nil {
		return 0, err
	}

	var received int64
	for {
		msg, err := protocol.ReadMessage(r)
		if err != nil {
			return received, err
		}

		switch msg.Type {
		case protocol.TypeData:
			if len(msg.Payload) > protocol.ChunkSize {
				rc.sendErr(w, "Data chunk exceeds maximum size")
				return received, &protocol.ProtocolError{Reason: fmt.Sprintf("data chunk of %d bytes exceeds %d", len(msg.Payload), protocol.ChunkSize)}
			}
			if _, err := f.Write(msg.Payload); err != nil {
				rc.sendErr(w, "Failed to write file data")
				return received, err
			}
			received += int64(len(msg.Payload))

			emit(rc.Events, Event{
				SessionID: rc.ID, Kind: EventProgress,
				FileName: name, Bytes: received, Total: size,
			})

			percent := 100.0
			if size > 0 {
				percent = float64(received) / float64(size) * 100.0
			}
			if err := rc.sendAck(w, fmt.Sprintf("Received %d/%d bytes (%.1f%%)", received, size, percent)); err != nil {
				return received, err
			}

		case protocol.TypeEnd:
			// A short byte count at end-of-transfer is a failed
			// transfer, never a smaller successful file.
			if received != size {
				rc.sendErr(w, "File transfer incomplete")
				return received, fmt.Errorf("incomplete transfer: got %d of %d bytes", received, size)
			}
			if err := f.Sync(); err != nil {
				rc.sendErr(w, "Failed to flush file")
				return received, err
			}
			if err := f.Close(); err != nil {
				return received, err
			}
			if err := rc.sendAck(w, fmt.Sprintf("File '%s' received successfully", name)); err != nil {
				return received, err
			}
			return received, nil

		default:
			rc.sendErr(w, fmt.Sprintf("Unexpected message type: %s", msg.Type))
			return received, &protocol.ProtocolError{Reason: fmt.Sprintf("unexpected %s while receiving file data", msg.Type)}
		}
	}
}

func (rc *Receiver) sendAck(w *bufio.Writer, text string) error {
	return writeFlush(w, protocol.TypeAck, []byte(text))
}

// sendErr is best-effort: the stream may already be gone.
func (rc *Receiver) sendErr(w *bufio.Writer, text string) {
	if err := writeFlush(w, protocol.TypeErr, []byte(text)); err != nil {
		logging.Log.WithField("session", rc.ID).Debugf("could not send error to peer: %v", err)
	}
}
