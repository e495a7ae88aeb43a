package storefront

import (
	"context"
	"sync"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// Bus fans field-updated notifications out to in-process subscribers.
// Slow subscribers miss updates rather than block the checkout dialogue.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan model.FieldUpdate]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan model.FieldUpdate]struct{})}
}

// Subscribe returns a channel of updates and a function that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan model.FieldUpdate, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan model.FieldUpdate, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) FieldUpdated(ctx context.Context, u model.FieldUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- u:
		case <-ctx.Done():
			metrics.IncNotifyDropped("canceled")
			return
		default:
			metrics.IncNotifyDropped("full")
			logx.Debug().Str("step", u.Step).Msg("field update dropped for slow subscriber")
		}
	}
}

var _ model.Notifier = (*Bus)(nil)
