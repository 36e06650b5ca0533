package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStore_CheckAndSet_NewEvent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "stripe-webhook", "evt_1", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "new event id should return true")
	seenAt, err := s.Get("webhook-event:stripe-webhook:evt_1")
	require.NoError(t, err)
	assert.NotEmpty(t, seenAt)
	assert.Equal(t, 24*time.Hour, s.TTL("webhook-event:stripe-webhook:evt_1"))
}

func TestNonceStore_CheckAndSet_EmptyEventID(t *testing.T) {
	s := miniredis.RunT(t)
	store := NewNonceStore(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))

	_, err := store.CheckAndSet(context.Background(), "stripe-webhook", "", time.Hour)
	assert.Error(t, err)
}

func TestNonceStore_CheckAndSet_Redelivery(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "stripe-webhook", "evt_2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CheckAndSet(ctx, "stripe-webhook", "evt_2", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "redelivered event should return false")
}

func TestNonceStore_CheckAndSet_DifferentScopes(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	ok1, err := store.CheckAndSet(ctx, "scope-a", "n-123", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := store.CheckAndSet(ctx, "scope-b", "n-123", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok2, "same nonce under another scope should be new")
}

func TestNonceStore_CheckAndSet_Expired(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "stripe-webhook", "evt_3", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	s.FastForward(2 * time.Second)

	ok, err = store.CheckAndSet(ctx, "stripe-webhook", "evt_3", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired nonce should be accepted again")
}
