package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("voice session closed")

// TranscriptHandler receives every transcript that passed the gate.
type TranscriptHandler func(ctx context.Context, transcript string)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	SessionID              string        `json:"sessionId"`
	Status                 model.Status  `json:"status"`
	WasIntentionallyActive bool          `json:"wasIntentionallyActive"`
	ReconnectAttempts      int           `json:"reconnectAttempts"`
	ReconnectPending       bool          `json:"reconnectPending"`
	ReconnectDelay         time.Duration `json:"reconnectDelay"`
	Speaking               bool          `json:"speaking"`
	SpeakingSince          time.Time     `json:"speakingSince,omitzero"`
	EchoGuardUntil         time.Time     `json:"echoGuardUntil,omitzero"`
	LastError              string        `json:"lastError,omitempty"`
}

// Manager owns the speech transport connection, reconnects it after unexpected
// loss and keeps the assistant's own voice out of the transcript stream.
type Manager struct {
	transport model.Transport
	cfg       model.SessionConfig
	now       func() time.Time
	after     AfterFunc
	limiter   *rate.Limiter

	handler atomic.Pointer[TranscriptHandler]

	mu                     sync.Mutex
	sessionID              string
	status                 model.Status
	wasIntentionallyActive bool
	reconnectAttempts      int
	reconnectDelay         time.Duration
	reconnectTimer         Timer
	reconnectSeq           uint64
	speaking               bool
	speakingSince          time.Time
	echoGuardUntil         time.Time
	lastErr                string
	closed                 bool

	// handler goroutines and scheduled reconnects
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithAfterFunc replaces time.AfterFunc for reconnect scheduling.
func WithAfterFunc(after AfterFunc) Option {
	return func(m *Manager) { m.after = after }
}

// WithHandler sets the initial transcript handler.
func WithHandler(h TranscriptHandler) Option {
	return func(m *Manager) { m.SetHandler(h) }
}

func NewManager(transport model.Transport, cfg model.SessionConfig, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		transport: transport,
		cfg:       withDefaults(cfg),
		now:       time.Now,
		after:     realAfterFunc,
		status:    model.StatusIdle,
		ctx:       ctx,
		cancel:    cancel,
	}
	m.limiter = rate.NewLimiter(rate.Every(m.cfg.SpeakThrottle), 1)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func withDefaults(c model.SessionConfig) model.SessionConfig {
	def := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	if c.MinTranscriptChars <= 0 {
		c.MinTranscriptChars = 3
	}
	def(&c.StartRetryDelay, 1500*time.Millisecond)
	def(&c.EndedReconnectDelay, time.Second)
	def(&c.EjectionReconnectDelay, 1500*time.Millisecond)
	def(&c.ErrorReconnectDelay, 3*time.Second)
	def(&c.MaxReconnectDelay, 10*time.Second)
	def(&c.LongReconnectDelay, 15*time.Second)
	def(&c.EchoGuardPadding, 2*time.Second)
	def(&c.EchoGuardMin, 3*time.Second)
	def(&c.EchoGuardMax, 8*time.Second)
	def(&c.SpeakThrottle, 500*time.Millisecond)
	def(&c.SpeakPerWord, 150*time.Millisecond)
	def(&c.SpeakMinDuration, 2*time.Second)
	def(&c.SpeakGuardPadding, 3*time.Second)
	return c
}

// SetHandler swaps the transcript handler. Events read the current value on every delivery.
func (m *Manager) SetHandler(h TranscriptHandler) {
	if h == nil {
		m.handler.Store(nil)
		return
	}
	m.handler.Store(&h)
}

// Start connects the transport and marks the session as intentionally active.
// A failed start is retried once after a short delay and then follows the error ladder.
func (m *Manager) Start(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if sessionID != "" {
		m.sessionID = sessionID
	}
	id := m.sessionID
	m.wasIntentionallyActive = true
	m.status = model.StatusConnecting
	m.lastErr = ""
	m.cancelReconnectLocked()
	m.mu.Unlock()

	logx.Info().Str("session_id", id).Msg("Starting voice session")
	if err := m.transport.Start(ctx, id); err != nil {
		logx.Error().Err(err).Str("session_id", id).Msg("Voice session start failed, scheduling fast retry")
		m.mu.Lock()
		m.lastErr = err.Error()
		m.scheduleReconnectLocked(m.cfg.StartRetryDelay, "start_retry")
		m.mu.Unlock()
		return err
	}
	m.markConnected()
	return nil
}

// Stop disconnects and durably suppresses reconnection.
func (m *Manager) Stop() error {
	m.mu.Lock()
	m.wasIntentionallyActive = false
	m.cancelReconnectLocked()
	m.status = model.StatusIdle
	m.speaking = false
	m.speakingSince = time.Time{}
	id := m.sessionID
	m.mu.Unlock()

	logx.Info().Str("session_id", id).Msg("Stopping voice session")
	return m.transport.Stop()
}

// Close tears the manager down: timers are cancelled, the transport is
// disconnected ignoring errors and in-flight handlers are awaited.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.wasIntentionallyActive = false
	m.cancelReconnectLocked()
	m.status = model.StatusIdle
	m.mu.Unlock()

	if err := m.transport.Stop(); err != nil {
		logx.Debug().Err(err).Msg("transport stop during close")
	}
	m.cancel()
	m.wg.Wait()
}

// Run consumes transport events until ctx ends or the event channel closes.
func (m *Manager) Run(ctx context.Context) error {
	events := m.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.handleEvent(ctx, ev)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev model.TransportEvent) {
	switch ev.Kind {
	case model.EventSessionStarted:
		m.markConnected()
	case model.EventSessionEnded:
		m.OnTransportEnded()
	case model.EventSpeechStarted:
		m.OnSpeechStart()
	case model.EventSpeechEnded:
		m.OnSpeechEnd()
	case model.EventTranscript:
		m.deliver(ctx, ev.Transcript)
	case model.EventError:
		if ev.Err != nil {
			m.OnTransportError(*ev.Err)
		}
	default:
		logx.Debug().Str("kind", string(ev.Kind)).Msg("Ignoring unknown transport event")
	}
}

// markConnected promotes the session to active. A late session-started event
// after Stop or a fatal error leaves the status alone.
func (m *Manager) markConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.wasIntentionallyActive {
		return
	}
	if m.status == model.StatusError || m.status == model.StatusBlocked {
		return
	}
	if m.status != model.StatusSpeaking {
		m.status = model.StatusActive
	}
	m.reconnectAttempts = 0
	m.reconnectDelay = 0
	m.lastErr = ""
	logx.Info().Str("session_id", m.sessionID).Msg("Voice session active")
}

// OnSpeechStart marks the assistant as speaking.
func (m *Manager) OnSpeechStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speaking = true
	m.speakingSince = m.now()
	if m.status == model.StatusActive {
		m.status = model.StatusSpeaking
	}
}

// OnSpeechEnd arms the echo guard for the measured speech duration.
func (m *Manager) OnSpeechEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var spoke time.Duration
	if !m.speakingSince.IsZero() {
		spoke = now.Sub(m.speakingSince)
	}
	guard := EchoGuard(m.cfg, spoke)
	m.echoGuardUntil = now.Add(guard)
	m.speaking = false
	m.speakingSince = time.Time{}
	if m.status == model.StatusSpeaking {
		m.status = model.StatusActive
	}
	logx.Debug().Dur("spoke", spoke).Dur("echo_guard", guard).Msg("Assistant finished speaking")
}

// EchoGuard is how long transcripts are ignored after the assistant spoke for d.
func EchoGuard(cfg model.SessionConfig, d time.Duration) time.Duration {
	return min(max(d+cfg.EchoGuardPadding, cfg.EchoGuardMin), cfg.EchoGuardMax)
}

// acceptLocked applies the transcript gate and returns the reason for a rejection.
func (m *Manager) acceptLocked(ev model.TranscriptEvent) (string, bool) {
	switch {
	case m.closed:
		return "closed", false
	case ev.Role != model.RoleUser:
		return "not_user", false
	case !ev.IsFinal:
		return "partial", false
	case m.speaking:
		return "speaking", false
	case m.now().Before(m.echoGuardUntil):
		return "echo_guard", false
	case len(strings.TrimSpace(ev.Text)) < m.cfg.MinTranscriptChars:
		return "too_short", false
	}
	return "", true
}

func (m *Manager) deliver(ctx context.Context, ev model.TranscriptEvent) {
	h := m.handler.Load()

	m.mu.Lock()
	reason, ok := m.acceptLocked(ev)
	if ok && h == nil {
		reason, ok = "no_handler", false
	}
	if ok {
		m.wg.Add(1)
	}
	m.mu.Unlock()

	if !ok {
		metrics.IncTranscriptDropped(reason)
		logx.Debug().Str("reason", reason).Str("role", string(ev.Role)).Msg("Transcript rejected")
		return
	}

	text := strings.TrimSpace(ev.Text)
	logx.Debug().Str("transcript", text).Msg("Final user transcript")
	go func() {
		defer m.wg.Done()
		(*h)(ctx, text)
	}()
}

// Active reports whether the transport is connected.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == model.StatusActive || m.status == model.StatusSpeaking
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		SessionID:              m.sessionID,
		Status:                 m.status,
		WasIntentionallyActive: m.wasIntentionallyActive,
		ReconnectAttempts:      m.reconnectAttempts,
		ReconnectPending:       m.reconnectTimer != nil,
		ReconnectDelay:         m.reconnectDelay,
		Speaking:               m.speaking,
		SpeakingSince:          m.speakingSince,
		EchoGuardUntil:         m.echoGuardUntil,
		LastError:              m.lastErr,
	}
}
