package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"photochat/internal/auth"
	"photochat/internal/event"
	"photochat/internal/presence"
	"photochat/internal/service"
)

const (
	closeReasonSuperseded = "superseded"
	closeReasonShutdown   = "server shutting down"
	closeReasonInternal   = "internal error"
	closeReasonSlow       = "slow consumer"
	closeReasonAuth       = "authentication failed"

	stopTimeout = 5 * time.Second
)

// Liveness records and answers the short-lived online flag of a user.
type Liveness interface {
	MarkOnline(userID int64)
	IsOnline(userID int64) bool
}

type Options struct {
	AllowedOrigins []string
	Registerer     prometheus.Registerer
}

// Hub accepts live connections, authenticates them and runs one session per
// connection. Each user has at most one registered session.
type Hub struct {
	registry *presence.Registry
	online   Liveness
	chat     service.ChatService
	verifier auth.TokenVerifier
	logger   *zap.Logger
	metrics  *hubMetrics
	upgrader websocket.Upgrader

	sessions sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(
	registry *presence.Registry,
	online Liveness,
	chat service.ChatService,
	verifier auth.TokenVerifier,
	logger *zap.Logger,
	opts Options,
) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry: registry,
		online:   online,
		chat:     chat,
		verifier: verifier,
		logger:   logger,
		metrics:  newHubMetrics(opts.Registerer),
		ctx:      ctx,
		cancel:   cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(opts.AllowedOrigins),
	}
	return h
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := lo.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		return lo.Contains(allowed, origin)
	}
}

// ServeWS upgrades the request and starts a session for the user named by the
// token query parameter. A rejected token closes the socket with 1008.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn)
	if err := c.authenticate(r.URL.Query().Get("token")); err != nil {
		h.metrics.recordAuthFailure()
		h.logger.Info("rejecting live connection", zap.String("client_id", c.ID), zap.Error(err))
		c.reject()
		return
	}

	h.attach(c)
}

// attach registers an authenticated client and starts its pumps.
func (h *Hub) attach(c *Client) {
	h.online.MarkOnline(c.UserID)
	h.metrics.incSession()
	c.setState(StateStreaming)

	if prev, replaced := h.registry.Register(c.UserID, c); replaced {
		h.metrics.recordSuperseded()
		h.logger.Info("closing superseded session", zap.Int64("user_id", c.UserID))
		if old, ok := prev.(*Client); ok {
			old.closeWith(websocket.CloseNormalClosure, closeReasonSuperseded)
		} else {
			prev.Close()
		}
	}

	h.sessions.Add(2)
	go func() {
		defer h.sessions.Done()
		c.writePump()
	}()
	go func() {
		defer h.sessions.Done()
		c.readPump()
	}()

	h.logger.Info("session started", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID))
}

// detach runs once per session when its receive loop ends.
func (h *Hub) detach(c *Client) {
	h.registry.Release(c.UserID, c)
	h.metrics.decSession()
	c.Close()
	h.logger.Info("session closed", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID))
}

// handleFrame processes one inbound frame for c. A returned error ends the session.
func (h *Hub) handleFrame(ctx context.Context, c *Client, data []byte) error {
	started := time.Now()

	switch f := event.Decode(data).(type) {
	case event.MessageFrame:
		msg, err := h.chat.SendLive(ctx, c.UserID, f.ReceiverID, f.Content)
		if err != nil {
			h.metrics.recordFrame(event.TypeMessage, "error", started)
			return h.frameError(c, event.TypeMessage, err)
		}
		if msg == nil {
			h.metrics.recordFrame(event.TypeMessage, "dropped", started)
			return nil
		}
		c.Send(event.Sent(msg.ID, msg.ReceiverID))
		h.metrics.recordFrame(event.TypeMessage, "ok", started)

	case event.TypingFrame:
		outcome := "dropped"
		if h.chat.Typing(c.UserID, f.ReceiverID) {
			outcome = "forwarded"
		}
		h.metrics.recordFrame(event.TypeTyping, outcome, started)

	case event.ReadFrame:
		changed, err := h.chat.MarkRead(ctx, c.UserID, f.MessageID)
		if err != nil {
			h.metrics.recordFrame(event.TypeRead, "error", started)
			return h.frameError(c, event.TypeRead, err)
		}
		h.metrics.recordFrame(event.TypeRead, lo.Ternary(changed, "ok", "noop"), started)

	case event.Ignored:
		h.logger.Debug("ignoring frame",
			zap.String("client_id", c.ID),
			zap.String("type", f.Type),
			zap.String("reason", f.Reason))
		h.metrics.recordFrame("unknown", "ignored", started)
	}

	return nil
}

func (h *Hub) frameError(c *Client, frameType string, err error) error {
	if !service.IsSessionFatal(err) {
		h.logger.Debug("frame aborted", zap.String("client_id", c.ID), zap.String("type", frameType), zap.Error(err))
		return nil
	}
	return fmt.Errorf("handle %s frame: %w", frameType, err)
}

// Registry exposes the presence registry backing this hub.
func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

// Stop closes every session and waits for their pumps to exit.
func (h *Hub) Stop() {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub stopped")
	case <-time.After(stopTimeout):
		h.logger.Warn("hub stop timed out waiting for sessions")
	}
}
