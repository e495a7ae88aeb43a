package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	errx "github.com/arckit11/v-novaa/internal/core/error"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// RedisUserInfoStore keeps the checkout form of one voice session in a Redis hash.
type RedisUserInfoStore struct {
	rdb       redis.Cmdable
	prefix    string
	sessionID string
	ttl       time.Duration
}

func NewRedisUserInfoStore(rdb redis.Cmdable, prefix, sessionID string, ttl time.Duration) *RedisUserInfoStore {
	return &RedisUserInfoStore{rdb: rdb, prefix: prefix, sessionID: sessionID, ttl: ttl}
}

func (r *RedisUserInfoStore) key() string {
	return sessionKey(r.prefix, r.sessionID, "user_info")
}

// Get returns the stored record. A missing hash is an empty record.
func (r *RedisUserInfoStore) Get(ctx context.Context) (model.UserInfo, error) {
	key := r.key()
	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load user info from redis")
		return model.UserInfo{}, errx.WrapRedis(err)
	}
	return model.UserInfoFromMap(fields), nil
}

// Update merges the non-empty entries of partial. Unknown keys are rejected.
func (r *RedisUserInfoStore) Update(ctx context.Context, partial map[string]string) error {
	values := make(map[string]any, len(partial))
	for k, v := range partial {
		if !knownKey(k) {
			return fmt.Errorf("unknown user info field %q", k)
		}
		if v == "" {
			continue
		}
		values[k] = v
	}
	if len(values) == 0 {
		return nil
	}

	key := r.key()
	if err := r.rdb.HSet(ctx, key, values).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write user info to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on user info key")
		}
	}
	return nil
}

// Clear drops the stored record.
func (r *RedisUserInfoStore) Clear(ctx context.Context) error {
	key := r.key()
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to clear user info")
		return errx.WrapRedis(err)
	}
	return nil
}

func knownKey(k string) bool {
	for _, key := range model.UserInfoKeys {
		if key == k {
			return true
		}
	}
	return false
}

func sessionKey(prefix, sessionID, name string) string {
	if prefix == "" {
		return fmt.Sprintf("session:%s:%s", sessionID, name)
	}
	return fmt.Sprintf("%s:session:%s:%s", prefix, sessionID, name)
}

var _ model.UserInfoStore = (*RedisUserInfoStore)(nil)
