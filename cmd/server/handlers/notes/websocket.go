package notes

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/httperr"
	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/auth"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
)

const (
	// WSClosePolicyViolation represents WebSocket close code for policy violation
	WSClosePolicyViolation = 1008

	// MessageTypeNotes is sent with the full ordered list after every refetch.
	MessageTypeNotes = "notes"
	// MessageTypeError is sent when a refetch failed; the previous list stays valid.
	MessageTypeError = "error"

	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsPingWriteTimeout = 5 * time.Second
	wsMaxIncomingBytes = 4 << 10 // clients only send control frames

	msgFailedToCloseWebSocketConnection = "failed to close WebSocket connection"
)

// SnapshotMessage carries the caller's complete note list in display order.
type SnapshotMessage struct {
	Type  string       `json:"type" example:"notes"`
	Notes []notes.Note `json:"notes"`
}

// ErrorMessage reports a failed refetch without exposing its cause.
type ErrorMessage struct {
	Type  string `json:"type" example:"error"`
	Error string `json:"error" example:"Something went wrong, please try again"`
}

// WSConfig tunes the notes stream.
type WSConfig struct {
	JWTSecret     string
	MaxSessionSec int
	OutboxBuffer  int
}

// WebSocketHandlers streams note snapshots. Each connection owns a notes.View
// attached to the shared refetch registry.
type WebSocketHandlers struct {
	lister    notes.Lister
	registrar notes.Registrar
	metrics   *notes.Metrics
	cfg       WSConfig
}

// NewWebSocketHandlers creates new WebSocket handlers. metrics may be nil.
func NewWebSocketHandlers(lister notes.Lister, registrar notes.Registrar, metrics *notes.Metrics, cfg WSConfig) *WebSocketHandlers {
	if cfg.OutboxBuffer <= 0 {
		cfg.OutboxBuffer = 1
	}
	return &WebSocketHandlers{
		lister:    lister,
		registrar: registrar,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// WSUpgrade authenticates the ?token= query parameter before the upgrade.
// @Summary Stream notes over WebSocket
// @Description Sends {"type":"notes","notes":[...]} after connecting and after every change.
// @Tags notes
// @Param token query string true "Bearer token"
// @Success 101
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /ws/notes/stream [get]
func (h *WebSocketHandlers) WSUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		logger.L().Warn("websocket upgrade required", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.E{
			Status:  fiber.StatusBadRequest,
			Message: "WebSocket upgrade required",
		})
	}

	token := c.Query("token")
	if token == "" {
		logger.L().Warn("missing token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.E{
			Status:  fiber.StatusUnauthorized,
			Message: "Missing token",
		})
	}

	p, err := auth.VerifyToken(h.cfg.JWTSecret, token)
	if err != nil {
		logger.L().Warn("invalid token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path(), "error", err)
		return httperr.Fail(httperr.E{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	c.Locals(ctxkeys.UserEmailKey, p.Email)
	c.Locals(ctxkeys.ParentCtxKey, c.UserContext())

	return c.Next()
}

// wsConnection holds connection-specific data
type wsConnection struct {
	principal *notes.Principal
	connID    string
	log       *slog.Logger
}

// WSNotesStream serves one WebSocket connection until the client leaves or the
// session expires.
func (h *WebSocketHandlers) WSNotesStream(c *websocket.Conn) {
	conn, parentCtx, err := h.initializeConnection(c)
	if err != nil {
		h.closeConnection(c, nil)
		return
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	outbox := make(chan any, h.cfg.OutboxBuffer)
	view := notes.NewView(h.lister, conn.log, func(list []notes.Note) {
		if list == nil {
			list = []notes.Note{}
		}
		h.sendOrDrop(outbox, SnapshotMessage{Type: MessageTypeNotes, Notes: list}, conn)
	})
	view.SetSession(notes.Resolved(conn.principal))
	view.Attach(&refreshReporter{h: h, outbox: outbox, conn: conn, registrar: h.registrar})
	defer view.Close()

	conn.log.Info("WebSocket connection established")

	if err := view.Refresh(ctx); err != nil {
		h.reportRefreshError(outbox, conn, err)
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, c, conn, outbox)
	}()

	h.readLoop(c, conn)
	cancel()
	<-writerDone

	conn.log.Info("WebSocket connection closed")
}

// refreshReporter registers the view's refetch and turns its failures into
// error frames for the client before handing them to the registry.
type refreshReporter struct {
	h         *WebSocketHandlers
	outbox    chan any
	conn      *wsConnection
	registrar notes.Registrar
}

func (r *refreshReporter) Register(cb notes.RefetchFunc) func() {
	return r.registrar.Register(func(ctx context.Context) error {
		err := cb(ctx)
		if err != nil {
			r.h.reportRefreshError(r.outbox, r.conn, err)
		}
		return err
	})
}

func (h *WebSocketHandlers) reportRefreshError(outbox chan any, conn *wsConnection, err error) {
	conn.log.Warn("notes refetch failed", "error", err)
	msg := httperr.GenericMessage
	if errors.Is(err, notes.ErrNotAuthenticated) {
		msg = httperr.ErrNotAuthenticated.Message
	}
	h.sendOrDrop(outbox, ErrorMessage{Type: MessageTypeError, Error: msg}, conn)
}

// initializeConnection validates and sets up the WebSocket connection
func (h *WebSocketHandlers) initializeConnection(c *websocket.Conn) (*wsConnection, context.Context, error) {
	email, ok := c.Locals(ctxkeys.UserEmailKey).(string)
	if !ok || email == "" {
		logger.L().Error(ctxkeys.UserEmailKey + " not found in WebSocket context")
		return nil, nil, notes.ErrNotAuthenticated
	}

	parentCtx, ok := c.Locals(ctxkeys.ParentCtxKey).(context.Context)
	if !ok {
		parentCtx = context.Background()
	}

	connID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()

	return &wsConnection{
		principal: &notes.Principal{Email: email},
		connID:    connID,
		log:       logger.L().With("creator", email, "conn_id", connID),
	}, parentCtx, nil
}

// sendOrDrop queues msg without blocking. When the outbox is full the oldest
// queued message is discarded; every message is a full snapshot, so the newest
// one is the one worth delivering.
func (h *WebSocketHandlers) sendOrDrop(outbox chan any, msg any, conn *wsConnection) {
	for {
		select {
		case outbox <- msg:
			return
		default:
		}

		select {
		case <-outbox:
			h.metrics.IncDropped()
			conn.log.Warn("WebSocket outbox full, dropped oldest message")
		default:
		}
	}
}

// writeLoop is the only goroutine writing to c.
func (h *WebSocketHandlers) writeLoop(ctx context.Context, c *websocket.Conn, conn *wsConnection, outbox <-chan any) {
	defer func() {
		if r := recover(); r != nil {
			conn.log.Error("panic in WebSocket sender", "error", r)
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	session := time.NewTimer(time.Duration(h.cfg.MaxSessionSec) * time.Second)
	defer session.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-outbox:
			if err := h.write(c, conn, msg); err != nil {
				h.closeConnection(c, conn)
				return
			}

		case <-ping.C:
			if err := h.sendPing(c, conn); err != nil {
				h.closeConnection(c, conn)
				return
			}

		case <-session.C:
			conn.log.Info("WebSocket session timeout")
			h.sendCloseMessage(c, conn)
			h.closeConnection(c, conn)
			return
		}
	}
}

func (h *WebSocketHandlers) write(c *websocket.Conn, conn *wsConnection, msg any) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		conn.log.Error("failed to set write deadline", "error", err)
		return err
	}
	if err := c.WriteJSON(msg); err != nil {
		conn.log.Warn("failed to write WebSocket message", "error", err)
		return err
	}
	return nil
}

// sendPing sends a ping message to the client
func (h *WebSocketHandlers) sendPing(c *websocket.Conn, conn *wsConnection) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
		conn.log.Error("failed to set write deadline", "error", err)
		return err
	}
	if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
		conn.log.Warn("failed to write ping message", "error", err)
		return err
	}
	return nil
}

// sendCloseMessage sends a close frame to the client
func (h *WebSocketHandlers) sendCloseMessage(c *websocket.Conn, conn *wsConnection) {
	err := c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(WSClosePolicyViolation, "session timeout"),
		time.Now().Add(wsPingWriteTimeout))
	if err != nil {
		conn.log.Warn("failed to send close message", "error", err)
	}
}

// readLoop drains client frames so control messages are processed. It returns
// when the connection breaks or closes.
func (h *WebSocketHandlers) readLoop(c *websocket.Conn, conn *wsConnection) {
	c.SetReadLimit(wsMaxIncomingBytes)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				conn.log.Warn("WebSocket error", "error", err)
			}
			return
		}
	}
}

// closeConnection safely closes the WebSocket connection
func (h *WebSocketHandlers) closeConnection(c *websocket.Conn, conn *wsConnection) {
	if err := c.Close(); err != nil {
		log := logger.L()
		if conn != nil {
			log = conn.log
		}
		log.Debug(msgFailedToCloseWebSocketConnection, "error", err)
	}
}

// LogWSConnections logs every WebSocket upgrade attempt. The principal is only
// logged when the token verifies, so it cannot be spoofed.
func LogWSConnections(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			creator := ""
			if token := c.Query("token"); token != "" {
				if p, err := auth.VerifyToken(jwtSecret, token); err == nil {
					creator = p.Email
				}
			}
			logger.L().Info("WebSocket upgrade attempt", "ip", c.IP(), "creator", creator)
		}
		return c.Next()
	}
}
