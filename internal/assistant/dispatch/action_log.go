package dispatch

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

const defaultActionLogSize = 20

// ActionLogMirror copies entries to an external store.
type ActionLogMirror interface {
	Append(ctx context.Context, e model.ActionLogEntry) error
}

// ActionLog keeps the most recent dispatch outcomes, newest first.
type ActionLog struct {
	mu      sync.RWMutex
	entries []model.ActionLogEntry
	size    int
	mirror  ActionLogMirror
	now     func() time.Time
}

func NewActionLog(size int, mirror ActionLogMirror) *ActionLog {
	if size <= 0 {
		size = defaultActionLogSize
	}
	return &ActionLog{size: size, mirror: mirror, now: time.Now}
}

// Record adds an entry, evicting the oldest beyond the log size.
func (l *ActionLog) Record(ctx context.Context, description string, success bool) {
	e := model.ActionLogEntry{Timestamp: l.now(), Description: description, Success: success}

	l.mu.Lock()
	l.entries = slices.Insert(l.entries, 0, e)
	if len(l.entries) > l.size {
		l.entries = l.entries[:l.size]
	}
	l.mu.Unlock()

	ev := logx.Info()
	if !success {
		ev = logx.Warn()
	}
	ev.Str("action", description).Bool("success", success).Msg("Voice action")

	if l.mirror == nil {
		return
	}
	if err := l.mirror.Append(ctx, e); err != nil {
		logx.Warn().Err(err).Msg("action log mirror append failed")
	}
}

// Entries returns a copy of the log, newest first.
func (l *ActionLog) Entries() []model.ActionLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Last returns the newest entry.
func (l *ActionLog) Last() (model.ActionLogEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return model.ActionLogEntry{}, false
	}
	return l.entries[0], true
}

// LoggingSpeaker records every utterance in the action log before speaking it.
type LoggingSpeaker struct {
	Speaker model.Speaker
	Log     *ActionLog
}

func (s LoggingSpeaker) Speak(ctx context.Context, text string) bool {
	if s.Log != nil {
		s.Log.Record(ctx, text, true)
	}
	if s.Speaker == nil {
		return false
	}
	return s.Speaker.Speak(ctx, text)
}
