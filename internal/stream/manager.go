package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/metrics"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a frame to the server.
	pongWait       = 60 * time.Second    // Time allowed to read the next frame or pong.
	pingPeriod     = (pongWait * 9) / 10 // Must be less than pongWait.
	maxMessageSize = 1 << 16             // Alert backlogs arrive as one frame.
)

// State of the push channel connection
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Errored
)

// States lists every state, for exporting gauges
var States = []State{Disconnected, Connecting, Connected, Errored}

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Errored:
		return "Error"
	default:
		return "Disconnected"
	}
}

var ErrAlreadyRunning = errors.New("stream: manager already running")

// Conn is the subset of *websocket.Conn the manager drives
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens one push channel connection
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// Config wires a Manager
type Config struct {
	URL       string
	Backoff   Backoff
	Dialer    Dialer
	OnMessage func(Message)
	OnState   func(State)
	Logger    *zap.Logger
	Metrics   *metrics.Collector
}

// Manager keeps one logical push channel alive. All dials happen on the
// goroutine running Run, so at most one reconnect is ever pending.
type Manager struct {
	url       string
	backoff   Backoff
	dialer    Dialer
	onMessage func(Message)
	onState   func(State)
	logger    *zap.Logger
	metrics   *metrics.Collector

	// sleep waits out a reconnect delay; tests replace it
	sleep func(ctx context.Context, d time.Duration) error

	running atomic.Bool

	mu       sync.Mutex
	state    State
	attempts int
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	return &Manager{
		url:       cfg.URL,
		backoff:   cfg.Backoff,
		dialer:    dialer,
		onMessage: cfg.OnMessage,
		onState:   cfg.OnState,
		logger:    logger.With(zap.String("component", "stream")),
		metrics:   cfg.Metrics,
		sleep:     sleepContext,
		state:     Disconnected,
	}
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of consecutive losses since the last
// successful connect
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Run connects and reconnects until ctx is cancelled. It returns ctx.Err()
// on shutdown, or ErrAlreadyRunning if another Run is active.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	for {
		err := m.connectAndRead(ctx)
		if ctx.Err() != nil {
			m.setState(Disconnected)
			return ctx.Err()
		}

		attempt := m.recordLoss()
		delay := m.backoff.Delay(attempt)
		m.logger.Info("Push channel lost, scheduling reconnect",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if m.metrics != nil {
			m.metrics.ReconnectsTotal.Inc()
			m.metrics.ReconnectDelay.Observe(delay.Seconds())
		}

		if err := m.sleep(ctx, delay); err != nil {
			m.setState(Disconnected)
			return err
		}
	}
}

func (m *Manager) connectAndRead(ctx context.Context) error {
	m.setState(Connecting)
	m.logger.Info("Connecting to push channel", zap.String("url", m.url))

	conn, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		m.setState(Errored)
		m.setState(Disconnected)
		return err
	}
	defer conn.Close()

	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
	m.setState(Connected)
	m.logger.Info("Push channel connected")

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, identifyFrame); err != nil {
		m.setState(Errored)
		m.setState(Disconnected)
		return fmt.Errorf("send identification: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go m.pingLoop(conn, done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Error("Push channel read error", zap.Error(err))
				m.setState(Errored)
			}
			m.setState(Disconnected)
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		m.handleFrame(data)
	}
}

// handleFrame classifies and delivers one frame. Nothing it does can end
// the connection.
func (m *Manager) handleFrame(data []byte) {
	msg := Classify(data)
	if m.metrics != nil {
		m.metrics.MessagesTotal.WithLabelValues(msg.Kind.String()).Inc()
	}

	switch msg.Kind {
	case KindMalformed:
		m.logger.Warn("Dropping malformed message",
			zap.Error(msg.Err),
			zap.Int("bytes", len(data)),
		)
		return
	case KindUnknown:
		m.logger.Debug("Ignoring message of unknown type", zap.String("type", msg.Type))
		return
	}

	if m.onMessage == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Message handler panicked",
				zap.String("kind", msg.Kind.String()),
				zap.Any("panic", r),
			)
		}
	}()
	m.onMessage(msg)
}

func (m *Manager) pingLoop(conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				m.logger.Debug("Ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (m *Manager) recordLoss() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	return m.attempts
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()

	if m.metrics != nil {
		names := make([]string, len(States))
		for i, st := range States {
			names[i] = st.String()
		}
		m.metrics.SetState(s.String(), names)
	}
	if m.onState != nil {
		m.onState(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
