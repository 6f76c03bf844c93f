// Package transfer implements both sides of the FerryByte file
// transfer protocol: the sender session that streams a local file in
// acknowledged chunks, the receiver session that writes it under a
// collision-free name, and the TCP acceptor that runs one receiver
// session per connection.
package transfer

import (
	"bufio"
	"fmt"
	"net"
	"strconv"

	"github.com/jaywantadh/FerryByte/internal/protocol"
)

// SendFiles sends each local path in order, one connection per file.
// A failed file never affects the ones already sent; every attempt
// yields its own Result and the caller decides whether a failure
// should stop the rest of the batch.
func SendFiles(host string, port int, paths []string, onProgress ProgressFunc) []Result {
	sender := &Sender{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Progress: onProgress,
	}

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		results = append(results, sender.SendFile(path))
	}
	return results
}

// RunServer listens on host:port and saves incoming files under
// receiveDir, invoking onEvent for every session event. It blocks
// until the server is stopped.
func RunServer(host string, port int, receiveDir string, onEvent func(Event)) error {
	srv := NewServer(host, port, receiveDir)
	if onEvent != nil {
		go func() {
			for ev := range srv.Events {
				onEvent(ev)
			}
		}()
	}
	return srv.Start()
}

// writeFlush frames a message onto a buffered connection writer and
// pushes it out immediately. The protocol is strictly request/reply,
// so nothing is ever left sitting in the buffer.
func writeFlush(w *bufio.Writer, typ protocol.Type, payload []byte) error {
	if err := protocol.WriteMessage(w, typ, payload); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrConnectionClosed, err)
	}
	return nil
}
