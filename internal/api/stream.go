package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crisiswatch/internal/services/dashboard"
	"crisiswatch/internal/services/daterange"
	domain "crisiswatch/internal/domain/swarm"
	"crisiswatch/pkg/logger"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
	streamBuffer       = 64
)

// Stream message types
const (
	MessageSwarm     = "swarm"
	MessageDashboard = "dashboard"
	MessageError     = "error"
)

// StreamMessage is one frame sent to stream clients
type StreamMessage struct {
	Type      string             `json:"type"`
	Swarm     *domain.AgentSwarm `json:"swarm,omitempty"`
	Dashboard *dashboard.View    `json:"dashboard,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// StreamHandler runs a swarm per connection and streams its snapshots
// followed by the resulting dashboard view
type StreamHandler struct {
	service  DashboardService
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewStreamHandler creates the handler; empty allowedOrigins accepts any origin
func NewStreamHandler(service DashboardService, allowedOrigins []string, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Component("swarm_stream"),
	}
}

// ServeHTTP serves GET /api/v1/swarm/stream?company=&period=
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	company, err := dashboard.NormalizeCompany(q.Get("company"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	period, err := daterange.ParsePeriod(q.Get("period"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.log.Debugw("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader loop handles control frames and detects disconnects
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sink := newStreamSink(streamBuffer)
	go func() {
		defer sink.close()

		m, err := h.service.Generate(ctx, company, func(s domain.AgentSwarm) {
			sink.send(StreamMessage{Type: MessageSwarm, Swarm: &s})
		})
		if err != nil {
			sink.send(StreamMessage{Type: MessageError, Error: err.Error()})
			return
		}
		h.service.Store(ctx, m)

		view, err := h.service.Project(m, period)
		if err != nil {
			sink.send(StreamMessage{Type: MessageError, Error: err.Error()})
			return
		}
		sink.send(StreamMessage{Type: MessageDashboard, Dashboard: view})
	}()

	h.log.Debugw("Stream opened", "company", company, "period", period)
	if err := h.writeLoop(ctx, conn, sink.ch); err != nil {
		h.log.Debugw("Stream closed early", "company", company, "error", err)
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

func (h *StreamHandler) writeLoop(ctx context.Context, conn *websocket.Conn, messages <-chan StreamMessage) error {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				return err
			}
			if err := conn.WriteJSON(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// streamSink is a bounded queue that drops the oldest pending snapshot when full.
// Terminal messages are never dropped in favour of snapshots.
type streamSink struct {
	mu     sync.Mutex
	closed bool
	ch     chan StreamMessage
}

func newStreamSink(buffer int) *streamSink {
	return &streamSink{ch: make(chan StreamMessage, buffer)}
}

func (s *streamSink) send(msg StreamMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- msg:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *streamSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
