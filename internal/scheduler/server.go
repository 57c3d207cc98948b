package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// Server exposes the scheduler control plane on a unix socket. Methods:
// status, run, stop.
type Server struct {
	sched      *Scheduler
	socketPath string

	mu       sync.Mutex
	listener net.Listener
	conns    map[*jsonrpc2.Conn]struct{}
	closed   bool
}

func NewServer(sched *Scheduler, socketPath string) *Server {
	return &Server{
		sched:      sched,
		socketPath: socketPath,
		conns:      make(map[*jsonrpc2.Conn]struct{}),
	}
}

func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}

	// A stale socket from a crashed daemon blocks the listen. The lockfile
	// guarantees no live daemon owns it at this point.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("restricting socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Info("control socket listening", "path", s.socketPath)
	go s.acceptLoop(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("accept failed", "error", err)
			continue
		}

		stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
		rpc := jsonrpc2.NewConn(ctx, stream, &handler{sched: s.sched})

		s.mu.Lock()
		s.conns[rpc] = struct{}{}
		s.mu.Unlock()

		go func() {
			<-rpc.DisconnectNotify()
			s.mu.Lock()
			delete(s.conns, rpc)
			s.mu.Unlock()
		}()
	}
}

func (s *Server) Stop() {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	conns := make([]*jsonrpc2.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	os.Remove(s.socketPath)
}

type handler struct {
	sched *Scheduler
}

type ackResult struct {
	OK bool `json:"ok"`
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case "status":
		h.reply(ctx, conn, req, h.sched.Status())
	case "run":
		h.sched.Trigger()
		h.reply(ctx, conn, req, ackResult{OK: true})
	case "stop":
		h.reply(ctx, conn, req, ackResult{OK: true})
		// Reply first so the client sees the acknowledgement before the
		// socket goes away.
		go func() {
			time.Sleep(100 * time.Millisecond)
			h.sched.Shutdown()
		}()
	default:
		if req.Notif {
			return
		}
		err := conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		})
		if err != nil {
			log.Warn("rpc error reply failed", "error", err)
		}
	}
}

func (h *handler) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result any) {
	if req.Notif {
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		log.Warn("rpc reply failed", "method", req.Method, "error", err)
	}
}
