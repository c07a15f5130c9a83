package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/trafficlaw/internal/models"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client, RedisStoreConfig{TTL: time.Hour}), mr
}

func exchange(i int) []models.Message {
	return []models.Message{
		models.HumanMessage(fmt.Sprintf("câu hỏi %d", i)),
		models.AIMessage(fmt.Sprintf("trả lời %d", i)),
	}
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	history, err := store.History(ctx, "s1", 3)
	require.NoError(t, err)
	assert.Empty(t, history)

	for i := 1; i <= 4; i++ {
		require.NoError(t, store.Append(ctx, "s1", exchange(i)...))
	}
	require.NoError(t, store.Append(ctx, "s2", exchange(9)...))

	history, err = store.History(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, history, 6)
	assert.Equal(t, exchange(2)[0], history[0])
	assert.Equal(t, exchange(4)[1], history[5])

	history, err = store.History(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 8)

	history, err = store.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, store.Clear(ctx, "s1"))
	history, err = store.History(ctx, "s1", 3)
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = store.History(ctx, "s2", 3)
	require.NoError(t, err)
	assert.Equal(t, exchange(9), history)

	_, err = store.History(ctx, " ", 3)
	assert.ErrorIs(t, err, ErrInvalidSessionID)
	assert.ErrorIs(t, store.Append(ctx, "", exchange(1)...), ErrInvalidSessionID)
	assert.ErrorIs(t, store.Clear(ctx, ""), ErrInvalidSessionID)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	store, _ := setupRedisStore(t)
	testStore(t, store)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", exchange(1)...))
	assert.Equal(t, time.Hour, mr.TTL("trafficlaw:session:s1"))

	mr.FastForward(2 * time.Hour)
	history, err := store.History(ctx, "s1", 3)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisStoreTrim(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStoreFromClient(client, RedisStoreConfig{MaxMessages: 4})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", exchange(i)...))
	}
	values, err := mr.List("trafficlaw:session:s1")
	require.NoError(t, err)
	assert.Len(t, values, 4)
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisStoreConfig{URL: "not a url"})
	assert.Error(t, err)
}

func TestLastTurnsCopies(t *testing.T) {
	msgs := exchange(1)
	out := lastTurns(msgs, 1)
	out[0].Content = "changed"
	assert.Equal(t, "câu hỏi 1", msgs[0].Content)
}
