package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	defaultConnTimeout    = 10 * time.Second
	maxConcurrentConns    = 8
	connSlotAcquireTimeout = 2 * time.Second
)

// Server answers control requests on a named pipe.
type Server struct {
	pipeName string
	handler  Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	started   bool
	wg        sync.WaitGroup
	connSlots chan struct{}
}

// NewServer constructs a Server. An empty pipeName selects DefaultPipeName.
func NewServer(pipeName string, handler Handler) *Server {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		pipeName:  pipeName,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
		connSlots: make(chan struct{}, maxConcurrentConns),
	}
}

// PipeName returns the listen pipe name.
func (s *Server) PipeName() string {
	return s.pipeName
}

// Start listens on the pipe and serves connections in the background.
func (s *Server) Start() error {
	listener, err := listen(s.pipeName)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.pipeName, err)
	}
	if err := s.serve(listener); err != nil {
		listener.Close()
		return err
	}
	return nil
}

// Run starts the server and stops it when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	slog.Info("[ipc] control pipe listening", "pipe", s.pipeName)
	<-ctx.Done()
	return s.Stop()
}

func (s *Server) serve(listener net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("ipc server already started")
	}
	if s.handler == nil {
		return errors.New("ipc server requires a handler")
	}
	if s.ctx.Err() != nil {
		return errors.New("ipc server already stopped")
	}
	s.listener = listener
	s.started = true
	s.wg.Go(s.acceptLoop)
	return nil
}

// Stop closes the listener and waits for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	consecutiveErrors := 0
	for {
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			if consecutiveErrors > 10 {
				slog.Warn("[ipc] accept loop: repeated failures", "error", err, "count", consecutiveErrors)
				time.Sleep(500 * time.Millisecond)
			} else {
				slog.Debug("[ipc] accept error", "error", err)
			}
			continue
		}
		consecutiveErrors = 0

		if !s.acquireConnectionSlot() {
			s.writeResponse(conn, ErrorResponse("server busy, try again later"))
			conn.Close()
			continue
		}
		s.wg.Go(func() {
			defer s.releaseConnectionSlot()
			s.handleConnection(conn)
		})
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		slog.Warn("[ipc] failed to set connection deadline", "error", err)
		return
	}

	rawReq, err := readFrame(bufio.NewReaderSize(conn, maxRequestBytes+1), maxRequestBytes)
	if errors.Is(err, io.EOF) {
		slog.Debug("[ipc] client disconnected without sending data")
		return
	}
	if err != nil {
		s.writeResponse(conn, ErrorResponse(fmt.Sprintf("invalid request: %v", err)))
		return
	}
	req, err := decodeRequest(rawReq)
	if err != nil {
		s.writeResponse(conn, ErrorResponse(fmt.Sprintf("invalid request: %v", err)))
		return
	}

	slog.Debug("[DEBUG-IPC] received control request", "command", req.Command, "args", req.Args)
	s.writeResponse(conn, s.safeHandle(req))
}

func (s *Server) safeHandle(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] control handler panicked", "command", req.Command, "panic", r)
			resp = ErrorResponse("internal error")
		}
	}()
	return s.handler.Handle(req)
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	raw, err := encodeResponse(resp)
	if err != nil {
		slog.Warn("[ipc] failed to encode response", "error", err, "exitCode", resp.ExitCode)
		raw = []byte(`{"exit_code":1,"stderr":"internal encode error\n"}`)
	}
	if err := writeFrame(conn, raw); err != nil {
		slog.Debug("[ipc] failed to write response", "error", err)
	}
}

func (s *Server) acquireConnectionSlot() bool {
	timer := time.NewTimer(connSlotAcquireTimeout)
	defer timer.Stop()
	select {
	case s.connSlots <- struct{}{}:
		return true
	case <-timer.C:
		slog.Warn("[ipc] connection slots exhausted, rejecting client")
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (s *Server) releaseConnectionSlot() {
	select {
	case <-s.connSlots:
	default:
		slog.Warn("[ipc] releaseConnectionSlot: no slot to release")
	}
}
