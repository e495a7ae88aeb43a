package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	errx "github.com/arckit11/v-novaa/internal/core/error"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// RedisActionLog mirrors the dispatcher action log into a capped Redis list, newest first.
type RedisActionLog struct {
	rdb       redis.Cmdable
	prefix    string
	sessionID string
	size      int
	ttl       time.Duration
}

func NewRedisActionLog(rdb redis.Cmdable, prefix, sessionID string, size int, ttl time.Duration) *RedisActionLog {
	if size <= 0 {
		size = 20
	}
	return &RedisActionLog{rdb: rdb, prefix: prefix, sessionID: sessionID, size: size, ttl: ttl}
}

func (r *RedisActionLog) key() string {
	return sessionKey(r.prefix, r.sessionID, "actions")
}

func (r *RedisActionLog) Append(ctx context.Context, e model.ActionLogEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal action log entry: %w", err)
	}

	key := r.key()
	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, int64(r.size-1))
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append action log entry")
		return errx.WrapRedis(err)
	}
	return nil
}

// Entries returns the mirrored entries, newest first.
func (r *RedisActionLog) Entries(ctx context.Context) ([]model.ActionLogEntry, error) {
	key := r.key()
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load action log from redis")
		return nil, errx.WrapRedis(err)
	}

	entries := make([]model.ActionLogEntry, 0, len(rows))
	for i, s := range rows {
		var e model.ActionLogEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			logx.Warn().Err(err).Str("key", key).Int("index", i).Msg("skipping malformed action log entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
