package session

import (
	"context"
	"strings"
	"time"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

const systemRole = "system"

// EstimateSpeech approximates how long the assistant takes to say text.
func EstimateSpeech(cfg model.SessionConfig, text string) time.Duration {
	words := len(strings.Fields(text))
	return max(time.Duration(words)*cfg.SpeakPerWord, cfg.SpeakMinDuration)
}

// Speak asks the transport to say text. The echo guard is armed before sending so
// the assistant's voice is ignored even if speech-start arrives late. Calls closer
// together than the throttle interval are dropped.
func (m *Manager) Speak(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	m.mu.Lock()
	if m.status != model.StatusActive && m.status != model.StatusSpeaking {
		m.mu.Unlock()
		metrics.IncSpeak("not_connected")
		logx.Debug().Str("text", text).Msg("Session not connected, skipping speech")
		return false
	}
	now := m.now()
	if !m.limiter.AllowN(now, 1) {
		m.mu.Unlock()
		metrics.IncSpeak("throttled")
		logx.Debug().Str("text", text).Msg("Speech throttled")
		return false
	}
	until := now.Add(EstimateSpeech(m.cfg, text) + m.cfg.SpeakGuardPadding)
	if until.After(m.echoGuardUntil) {
		m.echoGuardUntil = until
	}
	m.mu.Unlock()

	err := m.transport.Send(ctx, model.SystemUtterance{
		Role:    systemRole,
		Content: `Say this to the user: "` + text + `"`,
	})
	if err != nil {
		metrics.IncSpeak("error")
		logx.Error().Err(err).Msg("Failed to send speech")
		return false
	}
	metrics.IncSpeak("sent")
	return true
}

var _ model.Speaker = (*Manager)(nil)
