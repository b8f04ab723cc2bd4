// Package realtime maintains the single authenticated WebSocket connection
// behind the dashboard's live features (chat streaming, notifications).
// Connection failures are absorbed by a bounded reconnect schedule and are
// logged, never surfaced to message consumers.
package realtime

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/gorilla/websocket"

	"github.com/agrisetu/go-agriclient/core"
)

const (
	defaultHandshakeTimeout  = 10 * time.Second
	defaultReconnectAttempts = 3
	defaultReconnectDelay    = 2 * time.Second
	defaultReconnectMaxDelay = 10 * time.Second

	writeTimeout = 5 * time.Second
)

// MessageHandler receives every text or binary frame read from the socket.
type MessageHandler func(messageType int, payload []byte)

// Dialer mirrors websocket.Dialer so tests can count and fail dials.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type ManagerConfig struct {
	BaseURL  string
	Realtime core.RealtimeConfig
}

// Manager owns at most one live connection. Connect replaces any previous
// connection; Disconnect is idempotent and never redials. A close initiated
// by the server triggers an immediate redial, every other read failure walks
// the bounded reconnect schedule.
type Manager struct {
	config  core.RealtimeConfig
	wsURL   string
	dialer  Dialer
	tokens  core.TokenStore
	logger  core.Logger
	handler MessageHandler

	mu         sync.Mutex
	conn       *websocket.Conn
	generation uint64
	connected  bool
}

type ManagerOption func(*Manager)

func WithDialer(dialer Dialer) ManagerOption {
	return func(m *Manager) {
		m.dialer = dialer
	}
}

func WithLogger(logger core.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMessageHandler(handler MessageHandler) ManagerOption {
	return func(m *Manager) {
		m.handler = handler
	}
}

func NewManager(cfg ManagerConfig, tokens core.TokenStore, options ...ManagerOption) (*Manager, error) {
	wsURL, err := resolveSocketURL(cfg.BaseURL, cfg.Realtime.Path)
	if err != nil {
		return nil, err
	}
	realtime := cfg.Realtime
	if realtime.HandshakeTimeout <= 0 {
		realtime.HandshakeTimeout = defaultHandshakeTimeout
	}
	if realtime.ReconnectAttempts <= 0 {
		realtime.ReconnectAttempts = defaultReconnectAttempts
	}
	if realtime.ReconnectDelay <= 0 {
		realtime.ReconnectDelay = defaultReconnectDelay
	}
	if realtime.ReconnectMaxDelay <= 0 {
		realtime.ReconnectMaxDelay = defaultReconnectMaxDelay
	}

	manager := &Manager{
		config: realtime,
		wsURL:  wsURL,
		tokens: tokens,
	}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	if manager.dialer == nil {
		manager.dialer = &websocket.Dialer{
			HandshakeTimeout: realtime.HandshakeTimeout,
		}
	}
	return manager, nil
}

// Connect establishes the connection, replacing any live one. The bearer
// token is read from the store at dial time so redials always carry the
// freshest credential.
func (m *Manager) Connect(ctx context.Context) error {
	if m == nil {
		return goerrors.New("realtime: manager not initialized", goerrors.CategoryInternal).
			WithTextCode(core.ClientErrorInternal)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	m.generation++
	generation := m.generation
	m.teardownLocked()
	m.mu.Unlock()

	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	m.adopt(generation, conn)
	return nil
}

// Disconnect closes the connection without redialing. Safe to call when no
// connection is live, and safe to call repeatedly.
func (m *Manager) Disconnect() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.teardownLocked()
}

// Current returns the live connection handle, or nil when disconnected.
func (m *Manager) Current() *websocket.Conn {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *Manager) IsConnected() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Send writes a text frame on the live connection.
func (m *Manager) Send(payload []byte) error {
	if m == nil {
		return goerrors.New("realtime: manager not initialized", goerrors.CategoryInternal).
			WithTextCode(core.ClientErrorInternal)
	}
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return goerrors.New("realtime: not connected", goerrors.CategoryOperation).
			WithTextCode(core.ClientErrorServerFailure)
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "realtime: write failed").
			WithTextCode(core.ClientErrorNetwork)
	}
	return nil
}

// teardownLocked closes the current connection and marks the manager
// disconnected. Callers hold m.mu.
func (m *Manager) teardownLocked() {
	if m.conn != nil {
		m.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		m.conn.Close()
		m.conn = nil
	}
	m.connected = false
}

// adopt installs conn for the given generation and starts its read loop.
// A stale generation means Connect or Disconnect ran concurrently; the dial
// result is discarded.
func (m *Manager) adopt(generation uint64, conn *websocket.Conn) bool {
	m.mu.Lock()
	if m.generation != generation {
		m.mu.Unlock()
		conn.Close()
		return false
	}
	m.conn = conn
	m.connected = true
	m.mu.Unlock()

	go m.readLoop(generation, conn)
	return true
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if m.tokens != nil {
		if cred, err := m.tokens.Get(ctx); err == nil && cred.HasAccessToken() {
			header.Set("Authorization", "Bearer "+strings.TrimSpace(cred.AccessToken))
		}
	}

	dialCtx := ctx
	cancel := func() {}
	if m.config.HandshakeTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, m.config.HandshakeTimeout)
	}
	defer cancel()

	conn, res, err := m.dialer.DialContext(dialCtx, m.wsURL, header)
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "realtime: dial failed").
			WithTextCode(core.ClientErrorNetwork).
			WithMetadata(map[string]any{"url": m.wsURL})
	}
	return conn, nil
}

// readLoop pumps frames until the connection dies, then decides whether to
// redial. The generation check makes loops from replaced connections exit
// without side effects.
func (m *Manager) readLoop(generation uint64, conn *websocket.Conn) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			m.handleReadFailure(generation, err)
			return
		}
		if m.handler != nil {
			m.handler(messageType, payload)
		}
	}
}

func (m *Manager) handleReadFailure(generation uint64, cause error) {
	m.mu.Lock()
	if m.generation != generation {
		// Replaced or deliberately disconnected; nothing to do.
		m.mu.Unlock()
		return
	}
	m.generation++
	generation = m.generation
	m.teardownLocked()
	m.mu.Unlock()

	if websocket.IsCloseError(cause,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseServiceRestart,
	) {
		m.logError("server closed connection, redialing", cause)
		if m.redial(generation) {
			return
		}
		// Immediate redial failed; fall through to the schedule.
	} else {
		m.logError("connection lost", cause)
	}
	m.reconnectWithBackoff(generation)
}

// redial attempts a single immediate reconnect.
func (m *Manager) redial(generation uint64) bool {
	conn, err := m.dial(context.Background())
	if err != nil {
		m.logError("redial failed", err)
		return false
	}
	return m.adopt(generation, conn)
}

// reconnectWithBackoff walks the bounded schedule: ReconnectAttempts dials,
// delay doubling from ReconnectDelay up to ReconnectMaxDelay. Exhausting the
// schedule leaves the manager disconnected; the next Connect starts fresh.
func (m *Manager) reconnectWithBackoff(generation uint64) {
	delay := m.config.ReconnectDelay
	for attempt := 1; attempt <= m.config.ReconnectAttempts; attempt++ {
		time.Sleep(delay)

		m.mu.Lock()
		stale := m.generation != generation
		m.mu.Unlock()
		if stale {
			return
		}

		conn, err := m.dial(context.Background())
		if err == nil {
			if m.adopt(generation, conn) {
				m.logInfo("reconnected", map[string]any{"attempt": attempt})
			}
			return
		}
		m.logError("reconnect attempt failed", err)

		delay *= 2
		if delay > m.config.ReconnectMaxDelay {
			delay = m.config.ReconnectMaxDelay
		}
	}
	m.logError("reconnect schedule exhausted", nil)
}

func (m *Manager) logError(message string, cause error) {
	if m.logger == nil {
		return
	}
	if cause != nil {
		m.logger.Error("realtime: "+message, "error", cause.Error())
		return
	}
	m.logger.Error("realtime: " + message)
}

func (m *Manager) logInfo(message string, fields map[string]any) {
	if m.logger == nil {
		return
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	m.logger.Info("realtime: "+message, args...)
}

// resolveSocketURL maps the HTTP base URL onto its WebSocket counterpart.
func resolveSocketURL(baseURL string, path string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", goerrors.New("realtime: base url must be absolute", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput).
			WithMetadata(map[string]any{"base_url": baseURL})
	}
	switch base.Scheme {
	case "https", "wss":
		base.Scheme = "wss"
	default:
		base.Scheme = "ws"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/ws"
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "realtime: invalid socket path").
			WithTextCode(core.ClientErrorBadInput)
	}
	return base.ResolveReference(ref).String(), nil
}
