package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	errx "github.com/arckit11/v-novaa/internal/core/error"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestUserInfoStoreRoundTrip(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	store := NewRedisUserInfoStore(rdb, "vnovaa", "s1", time.Hour)

	info, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.UserInfo{}, info)

	require.NoError(t, store.Update(ctx, map[string]string{model.KeyName: "Ada Lovelace", model.KeyEmail: ""}))
	require.NoError(t, store.Update(ctx, map[string]string{model.KeyEmail: "ada@example.com"}))

	info, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", info.Name)
	assert.Equal(t, "ada@example.com", info.Email)

	assert.Equal(t, "Ada Lovelace", mr.HGet("vnovaa:session:s1:user_info", "name"))
	assert.Equal(t, time.Hour, mr.TTL("vnovaa:session:s1:user_info"))
}

func TestUserInfoStoreRejectsUnknownField(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewRedisUserInfoStore(rdb, "", "s1", 0)

	err := store.Update(context.Background(), map[string]string{"shoeSize": "42"})
	require.Error(t, err)
	assert.False(t, mr.Exists("session:s1:user_info"))
}

func TestUserInfoStoreSessionsAreIsolated(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	a := NewRedisUserInfoStore(rdb, "p", "a", 0)
	b := NewRedisUserInfoStore(rdb, "p", "b", 0)

	require.NoError(t, a.Update(ctx, map[string]string{model.KeyPhone: "5551234567"}))
	info, err := b.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, info.Phone)

	require.NoError(t, a.Clear(ctx))
	info, err = a.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, info.Phone)
}

func TestUserInfoStoreWrapsRedisErrors(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewRedisUserInfoStore(rdb, "p", "s", 0)
	mr.SetError("ERR boom")

	_, err := store.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, 502, errx.StatusOf(err, 0))
}

func TestActionLogKeepsNewestEntries(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	log := NewRedisActionLog(rdb, "p", "s", 3, time.Minute)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, log.Append(ctx, model.ActionLogEntry{
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			Description: fmt.Sprintf("entry %d", i),
			Success:     i%2 == 0,
		}))
	}

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 4", entries[0].Description)
	assert.Equal(t, "entry 2", entries[2].Description)
	assert.True(t, entries[0].Success)
	assert.True(t, entries[0].Timestamp.Equal(base.Add(4*time.Second)))
	assert.Equal(t, time.Minute, mr.TTL("p:session:s:actions"))
}

func TestActionLogSkipsMalformedRows(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	log := NewRedisActionLog(rdb, "p", "s", 0, 0)

	require.NoError(t, log.Append(ctx, model.ActionLogEntry{Description: "ok"}))
	_, err := mr.Lpush("p:session:s:actions", "{broken")
	require.NoError(t, err)

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].Description)
}

func TestNotifierPublishes(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "checkout:field-updated")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(rdb, "checkout:field-updated")
	n.FieldUpdated(ctx, model.FieldUpdate{Step: "email", Message: "Email saved", UpdatedFields: []string{"email"}})

	select {
	case msg := <-sub.Channel():
		var got model.FieldUpdate
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "email", got.Step)
		assert.Equal(t, []string{"email"}, got.UpdatedFields)
	case <-time.After(2 * time.Second):
		t.Fatal("no field update published")
	}
}

type countingNotifier struct{ n int }

func (c *countingNotifier) FieldUpdated(context.Context, model.FieldUpdate) { c.n++ }

func TestTeeFansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	Tee{a, nil, b}.FieldUpdated(context.Background(), model.FieldUpdate{Step: "name"})
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
