package repo

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// RedisNotifier publishes field updates as JSON on a Redis channel.
type RedisNotifier struct {
	rdb     redis.Cmdable
	channel string
}

func NewRedisNotifier(rdb redis.Cmdable, channel string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel}
}

// FieldUpdated is fire and forget; failures are logged and counted.
func (n *RedisNotifier) FieldUpdated(ctx context.Context, u model.FieldUpdate) {
	b, err := json.Marshal(u)
	if err != nil {
		logx.Error().Err(err).Msg("failed to marshal field update")
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, b).Err(); err != nil {
		metrics.IncNotifyDropped("publish")
		logx.Warn().Err(err).Str("channel", n.channel).Str("step", u.Step).Msg("failed to publish field update")
	}
}

// Tee fans a field update out to every notifier.
type Tee []model.Notifier

func (t Tee) FieldUpdated(ctx context.Context, u model.FieldUpdate) {
	for _, n := range t {
		if n != nil {
			n.FieldUpdated(ctx, u)
		}
	}
}

var (
	_ model.Notifier = (*RedisNotifier)(nil)
	_ model.Notifier = Tee(nil)
)
