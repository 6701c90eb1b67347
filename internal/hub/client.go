package hub

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"photochat/internal/event"
)

// State is the lifecycle stage of a session.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// tuning parameters
	writeWait      = 10 * time.Second    // time allowed to write a message to the peer
	pongWait       = 20 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval   = (pongWait * 9) / 10 // send pings to peer with this period
	maxMessageSize = 64 * 1024           // max inbound message size (64KB)
	sendBufSize    = 256                 // per-connection outbound buffer size
	sendTimeout    = 2 * time.Second     // timeout for enqueuing outbound messages
)

// Client is one live connection. It implements presence.Conn.
type Client struct {
	ID          string
	UserID      int64
	ConnectedAt time.Time

	conn   *websocket.Conn
	hub    *Hub
	egress chan event.Outbound
	state  atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	closeMu     sync.Mutex
	closeCode   int
	closeReason string
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	return &Client{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now().UTC(),
		conn:        conn,
		hub:         h,
		egress:      make(chan event.Outbound, sendBufSize),
		ctx:         ctx,
		cancel:      cancel,
		closeCode:   websocket.CloseGoingAway,
		closeReason: closeReasonShutdown,
	}
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// authenticate moves the client from Connecting to Authenticated.
func (c *Client) authenticate(token string) error {
	userID, err := c.hub.verifier.VerifyAccessToken(token)
	if err != nil {
		return err
	}
	c.UserID = userID
	c.setState(StateAuthenticated)
	return nil
}

// reject closes a connection that never authenticated.
func (c *Client) reject() {
	c.setState(StateClosed)
	c.cancel()
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, closeReasonAuth)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.hub.logger.Debug("failed to send close frame", zap.String("client_id", c.ID), zap.Error(err))
	}
	_ = c.conn.Close()
}

func (c *Client) readPump() {
	defer c.hub.detach(c)

	c.conn.SetReadLimit(int64(maxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		c.hub.online.MarkOnline(c.UserID)

		// Frames are handled inline so a session's frames keep their order.
		if err := c.hub.handleFrame(c.ctx, c, data); err != nil {
			c.hub.logger.Error("closing session after frame failure",
				zap.String("client_id", c.ID),
				zap.Int64("user_id", c.UserID),
				zap.Error(err))
			c.closeWith(websocket.CloseInternalServerErr, closeReasonInternal)
			return
		}
	}
}

func (c *Client) logReadError(err error) {
	logger := c.hub.logger.With(zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID))

	var ne net.Error
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	):
		logger.Debug("client disconnected")
	case websocket.IsUnexpectedCloseError(err):
		logger.Info("unexpected close", zap.Error(err))
	case errors.As(err, &ne) && ne.Timeout():
		logger.Info("client timed out")
	case c.ctx.Err() != nil:
		logger.Debug("session closed locally")
	default:
		logger.Warn("error reading from client", zap.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			code, reason := c.closeFrame()
			msg := websocket.FormatCloseMessage(code, reason)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Warn("write failed", zap.String("client_id", c.ID), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Debug("ping failed", zap.String("client_id", c.ID), zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	c.hub.online.MarkOnline(c.UserID)
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues ev for the write pump. A client whose buffer stays full for
// sendTimeout is disconnected.
func (c *Client) Send(ev event.Outbound) bool {
	if c.ctx.Err() != nil {
		c.hub.metrics.recordEgressDrop()
		return false
	}

	select {
	case c.egress <- ev:
		return true
	case <-c.ctx.Done():
		c.hub.metrics.recordEgressDrop()
		return false
	case <-time.After(sendTimeout):
		c.hub.metrics.recordEgressDrop()
		c.hub.logger.Warn("egress full, disconnecting client", zap.String("client_id", c.ID))
		c.closeWith(websocket.CloseTryAgainLater, closeReasonSlow)
		return false
	}
}

// Close ends the session with a normal close frame. Safe to call more than once.
func (c *Client) Close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *Client) closeWith(code int, reason string) {
	c.once.Do(func() {
		c.closeMu.Lock()
		c.closeCode = code
		c.closeReason = reason
		c.closeMu.Unlock()

		c.setState(StateClosed)
		c.cancel()
	})
}

func (c *Client) closeFrame() (int, string) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closeCode, c.closeReason
}
