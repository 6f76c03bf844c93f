package transfer

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jaywantadh/FerryByte/internal/filename"
	"github.com/jaywantadh/FerryByte/internal/history"
	"github.com/jaywantadh/FerryByte/pkg/logging"
)

// Server accepts TCP connections and runs one independent receiver
// session per connection. Sessions share nothing but the receive
// directory namespace (mediated by the filename Allocator) and the
// optional history store.
type Server struct {
	Host       string
	Port       int
	ReceiveDir string

	// History, when set, records every terminal session outcome.
	History *history.Store

	// Events receives session progress; drained by the caller and
	// closed when Serve returns.
	Events chan Event

	alloc *filename.Allocator
	wg    sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// NewServer creates a server that saves incoming files under
// receiveDir.
func NewServer(host string, port int, receiveDir string) *Server {
	return &Server{
		Host:       host,
		Port:       port,
		ReceiveDir: receiveDir,
		Events:     make(chan Event, 64),
		alloc:      filename.NewAllocator(),
	}
}

// Listen creates the receive directory and binds the listening socket.
func (s *Server) Listen() error {
	if err := os.MkdirAll(s.ReceiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create receive directory: %w", err)
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	logging.Log.WithFields(logrus.Fields{"addr": ln.Addr().String(), "dir": s.ReceiveDir}).Info("server listening")
	return nil
}

// Addr reports the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve blocks in the accept loop until Stop closes the listener,
// then waits for in-flight sessions to finish.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("server is not listening")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				break
			}
			logging.Log.Warnf("accept failed: %v", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}

	s.wg.Wait()
	if s.Events != nil {
		close(s.Events)
	}
	return nil
}

// Start is Listen followed by Serve.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop closes the listener, unblocking Serve. Running sessions are
// left to finish on their own connections.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.listener != nil {
		s.listener.Close()
	}
	logging.Log.Info("server stopped")
}

// handle runs one receiver session. A session failure is isolated:
// it is logged, recorded and dropped, never propagated to the accept
// loop or to other sessions.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	sessionID := uuid.New().String()
	peer := conn.RemoteAddr().String()
	log := logging.Log.WithFields(logrus.Fields{"session": sessionID, "peer": peer})
	log.Info("connection accepted")
	emit(s.Events, Event{SessionID: sessionID, Kind: EventConnected})

	started := time.Now()
	rc := &Receiver{
		ID:         sessionID,
		ReceiveDir: s.ReceiveDir,
		Allocator:  s.alloc,
		Events:     s.Events,
	}

	recv, err := rc.Run(conn)
	if err != nil {
		log.WithError(err).Error("transfer failed")
	}
	s.record(sessionID, peer, recv, started, err)
}

func (s *Server) record(sessionID, peer string, recv Received, started time.Time, failure error) {
	if s.History == nil {
		return
	}

	rec := history.Record{
		ID:         sessionID,
		FileName:   recv.Name,
		Path:       recv.Path,
		Direction:  history.DirectionReceived,
		Peer:       peer,
		Bytes:      recv.Bytes,
		Total:      recv.Total,
		Status:     history.StatusCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if failure != nil {
		rec.Status = history.StatusFailed
		rec.Error = failure.Error()
		rec.Path = ""
	}

	if err := s.History.Put(rec); err != nil {
		logging.Log.Warnf("failed to record transfer history: %v", err)
	}
}
