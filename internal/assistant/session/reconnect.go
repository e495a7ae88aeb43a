package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// ErrorClass groups transport errors by how the session recovers from them.
type ErrorClass string

const (
	ErrorAuth     ErrorClass = "auth"
	ErrorBlocked  ErrorClass = "blocked"
	ErrorEjection ErrorClass = "ejection"
	ErrorGeneric  ErrorClass = "generic"
)

// ClassifyError maps a transport error to its recovery class.
func ClassifyError(e model.TransportError) ErrorClass {
	msg := strings.ToLower(e.Message)
	typ := strings.ToLower(e.Type)
	switch {
	case e.Status == http.StatusUnauthorized ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid api key"):
		return ErrorAuth
	case strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "notallowederror") ||
		strings.Contains(typ, "notallowederror"):
		return ErrorBlocked
	case typ == "daily-error" ||
		strings.Contains(msg, "ejection") ||
		strings.Contains(msg, "ejected") ||
		strings.Contains(msg, "meeting has ended"):
		return ErrorEjection
	}
	return ErrorGeneric
}

// NextReconnectDelay is the wait after a reconnect that waited prev and failed:
// the error delay first, doubling up to the cap, then the long interval forever.
func NextReconnectDelay(cfg model.SessionConfig, prev time.Duration) time.Duration {
	switch {
	case prev < cfg.ErrorReconnectDelay:
		return cfg.ErrorReconnectDelay
	case prev >= cfg.MaxReconnectDelay:
		return cfg.LongReconnectDelay
	}
	return min(prev*2, cfg.MaxReconnectDelay)
}

// OnTransportEnded reconnects after an ending the user did not ask for.
func (m *Manager) OnTransportEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speaking = false
	m.speakingSince = time.Time{}
	if !m.wasIntentionallyActive || m.closed {
		m.status = model.StatusIdle
		return
	}
	logx.Warn().Str("session_id", m.sessionID).Msg("Voice session ended unexpectedly, reconnecting")
	m.scheduleReconnectLocked(m.cfg.EndedReconnectDelay, "ended")
}

// OnTransportError recovers from a transport error according to its class.
func (m *Manager) OnTransportError(e model.TransportError) {
	class := ClassifyError(e)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = e.Error()
	m.speaking = false
	m.speakingSince = time.Time{}

	switch class {
	case ErrorAuth:
		logx.Error().Str("session_id", m.sessionID).Str("error", e.Error()).Msg("Voice transport authentication failed, check the API key")
		m.status = model.StatusError
		m.wasIntentionallyActive = false
		m.cancelReconnectLocked()
		return
	case ErrorBlocked:
		logx.Error().Str("session_id", m.sessionID).Str("error", e.Error()).Msg("Microphone access blocked")
		m.status = model.StatusBlocked
		m.wasIntentionallyActive = false
		m.cancelReconnectLocked()
		return
	}

	if !m.wasIntentionallyActive || m.closed {
		m.status = model.StatusIdle
		return
	}

	delay := m.cfg.ErrorReconnectDelay
	if class == ErrorEjection {
		delay = m.cfg.EjectionReconnectDelay
	}
	logx.Warn().
		Str("session_id", m.sessionID).
		Str("class", string(class)).
		Str("error", e.Error()).
		Dur("delay", delay).
		Msg("Voice transport error, reconnecting")
	m.scheduleReconnectLocked(delay, string(class))
}

// scheduleReconnectLocked replaces any pending reconnect with one after delay.
func (m *Manager) scheduleReconnectLocked(delay time.Duration, trigger string) {
	if m.closed || !m.wasIntentionallyActive {
		return
	}
	m.cancelReconnectLocked()
	m.status = model.StatusConnecting
	m.reconnectDelay = delay
	metrics.IncReconnect(trigger)

	m.reconnectSeq++
	seq := m.reconnectSeq
	m.wg.Add(1)
	m.reconnectTimer = m.after(delay, func() {
		defer m.wg.Done()
		m.reconnect(seq, delay)
	})
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer == nil {
		return
	}
	if m.reconnectTimer.Stop() {
		m.wg.Done()
	}
	m.reconnectTimer = nil
}

func (m *Manager) reconnect(seq uint64, delay time.Duration) {
	m.mu.Lock()
	if m.reconnectTimer == nil || m.reconnectSeq != seq {
		// superseded or cancelled after firing
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	if m.closed || !m.wasIntentionallyActive {
		m.mu.Unlock()
		return
	}
	m.reconnectAttempts++
	attempt := m.reconnectAttempts
	id := m.sessionID
	m.mu.Unlock()

	logx.Info().Str("session_id", id).Int("attempt", attempt).Msg("Attempting reconnection")
	err := m.transport.Start(m.ctx, id)

	m.mu.Lock()
	if err != nil {
		m.lastErr = err.Error()
		next := NextReconnectDelay(m.cfg, delay)
		logx.Error().Err(err).Str("session_id", id).Int("attempt", attempt).Dur("retry_in", next).Msg("Reconnection failed")
		m.scheduleReconnectLocked(next, "retry")
		m.mu.Unlock()
		return
	}
	stopped := !m.wasIntentionallyActive || m.closed
	m.mu.Unlock()

	if stopped {
		// Stop raced the attempt
		_ = m.transport.Stop()
		return
	}
	logx.Info().Str("session_id", id).Int("attempt", attempt).Msg("Reconnection successful")
	m.markConnected()
}
