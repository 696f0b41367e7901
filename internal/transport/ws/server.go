// Package ws implements the WebSocket transport adapter: connection
// lifecycle, frame codec plumbing, and the reliable/unreliable send paths the
// dispatcher expects.
//
// Reliable sends go through a large per-connection queue whose overflow (or a
// write error) tears the connection down — a client that cannot keep up with
// must-not-lose traffic is treated as gone. Unreliable sends go through a
// small queue whose overflow silently drops the frame; the next tick
// supersedes it anyway.
package ws

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ashenvale/coop/internal/gameserver"
	"github.com/ashenvale/coop/internal/protocol"
)

// Sink consumes decoded inbound envelopes. The dispatcher implements it.
type Sink interface {
	Deliver(gameserver.Envelope)
}

// Server upgrades HTTP requests to WebSocket connections and implements the
// gameserver.Transport contract over them.
type Server struct {
	sink     Sink
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[string]*conn
	closed bool
}

// NewServer creates a Server delivering inbound envelopes to sink.
//
// Precondition: sink and logger must be non-nil.
func NewServer(sink Sink, logger *zap.Logger) *Server {
	return &Server{
		sink:   sink,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				// Game clients connect from arbitrary origins.
				return true
			},
		},
		conns: make(map[string]*conn),
	}
}

// Router returns the HTTP routes: the WebSocket upgrade endpoint and a
// health probe.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealth)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleWS upgrades the request and runs the connection's read loop until
// the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newConn(uuid.NewString(), sock, s)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = sock.Close()
		return
	}
	s.conns[c.id] = c
	s.mu.Unlock()

	s.logger.Info("connection opened",
		zap.String("conn_id", c.id),
		zap.String("remote", r.RemoteAddr),
	)

	go c.writeLoop()
	c.readLoop()
}

// SendReliable encodes evt and queues it on the connection's reliable path.
//
// Postcondition: Returns an error if the connection is unknown, closed, or
// saturated; saturation tears the connection down.
func (s *Server) SendReliable(connID string, evt protocol.Outbound) error {
	c, err := s.conn(connID)
	if err != nil {
		return err
	}
	data, err := protocol.EncodeOutbound(evt)
	if err != nil {
		return err
	}
	return c.enqueueReliable(data)
}

// SendUnreliable encodes evt and queues it best-effort; a saturated queue
// drops the frame without error.
func (s *Server) SendUnreliable(connID string, evt protocol.Outbound) error {
	c, err := s.conn(connID)
	if err != nil {
		return err
	}
	data, err := protocol.EncodeOutbound(evt)
	if err != nil {
		return err
	}
	c.enqueueUnreliable(data)
	return nil
}

// BroadcastReliable queues evt reliably on every open connection. The frame
// is encoded once.
func (s *Server) BroadcastReliable(evt protocol.Outbound) {
	data, err := protocol.EncodeOutbound(evt)
	if err != nil {
		s.logger.Error("encoding broadcast event",
			zap.String("event", evt.EventType()),
			zap.Error(err),
		)
		return
	}

	s.mu.RLock()
	targets := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		if err := c.enqueueReliable(data); err != nil {
			s.logger.Debug("broadcast to connection failed",
				zap.String("conn_id", c.id),
				zap.Error(err),
			)
		}
	}
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Shutdown closes every open connection and rejects new ones.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closed = true
	targets := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.teardown()
	}
}

func (s *Server) conn(connID string) (*conn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[connID]
	if !ok {
		return nil, errUnknownConn(connID)
	}
	return c, nil
}

// dropConn unregisters a connection after teardown.
func (s *Server) dropConn(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
}
