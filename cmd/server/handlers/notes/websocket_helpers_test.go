package notes

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/testutil"
	"github.com/ldelvillar/snap-notes-sub000/internal/clients/memstore"
	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// WebSocketTestConfig holds configuration for WebSocket tests
type WebSocketTestConfig struct {
	Secret        string
	MaxSessionSec int
	OutboxBuffer  int
}

// DefaultWebSocketTestConfig returns a default test configuration
func DefaultWebSocketTestConfig() WebSocketTestConfig {
	return WebSocketTestConfig{
		Secret:        testutil.TestSecret,
		MaxSessionSec: 900,
		OutboxBuffer:  8,
	}
}

// wsTestEnv is a live server streaming notes from an in-memory store.
type wsTestEnv struct {
	URL      string
	Repo     *notes.Repository
	Registry *notes.Registry
	Metrics  *notes.Metrics
	Handlers *WebSocketHandlers
}

// SetupWebSocketHandlersApp creates a test app whose upgrade route answers
// 200 with the resolved principal instead of upgrading.
func SetupWebSocketHandlersApp(t *testing.T, cfg WebSocketTestConfig) (*fiber.App, *WebSocketHandlers) {
	t.Helper()

	app := testutil.CreateTestApp(t)
	registry := notes.NewRegistry(logger.L(), nil)
	repo := notes.NewRepository(memstore.New(), logger.L())
	wsHandlers := NewWebSocketHandlers(repo, registry, nil, WSConfig{
		JWTSecret:     cfg.Secret,
		MaxSessionSec: cfg.MaxSessionSec,
		OutboxBuffer:  cfg.OutboxBuffer,
	})

	app.Get("/ws", wsHandlers.WSUpgrade, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"email": c.Locals(ctxkeys.UserEmailKey),
		})
	})

	return app, wsHandlers
}

// StartWebSocketServer serves the notes stream on a random local port.
func StartWebSocketServer(t *testing.T, cfg WebSocketTestConfig) *wsTestEnv {
	t.Helper()

	app := testutil.CreateTestApp(t)
	metrics := notes.NewMetrics(prometheus.NewRegistry())
	registry := notes.NewRegistry(logger.L(), metrics)
	repo := notes.NewRepository(memstore.New(), logger.L())
	wsHandlers := NewWebSocketHandlers(repo, registry, metrics, WSConfig{
		JWTSecret:     cfg.Secret,
		MaxSessionSec: cfg.MaxSessionSec,
		OutboxBuffer:  cfg.OutboxBuffer,
	})
	app.Get("/ws/notes/stream", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSNotesStream))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(2 * time.Second)
		registry.Wait()
	})

	port := ln.Addr().(*net.TCPAddr).Port
	return &wsTestEnv{
		URL:      "ws://127.0.0.1:" + strconv.Itoa(port) + "/ws/notes/stream",
		Repo:     repo,
		Registry: registry,
		Metrics:  metrics,
		Handlers: wsHandlers,
	}
}

// Dial connects as email and returns the client connection.
func (e *wsTestEnv) Dial(t *testing.T, email string) *gorillaws.Conn {
	t.Helper()

	token := testutil.MustTestJWT(t, email)
	var conn *gorillaws.Conn
	require.Eventually(t, func() bool {
		c, _, err := gorillaws.DefaultDialer.Dial(e.URL+"?token="+token, nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 20*time.Millisecond, "could not establish WebSocket connection")

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ReadSnapshot reads the next message and requires it to be a notes snapshot.
func ReadSnapshot(t *testing.T, conn *gorillaws.Conn) []notes.Note {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg struct {
		Type  string       `json:"type"`
		Notes []notes.Note `json:"notes"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, MessageTypeNotes, msg.Type)
	return msg.Notes
}

// WaitForRegistrations blocks until n views are attached.
func (e *wsTestEnv) WaitForRegistrations(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return e.Registry.Len() == n }, 2*time.Second, 10*time.Millisecond)
}
