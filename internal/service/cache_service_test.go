package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheService_TTL(t *testing.T) {
	cs := NewCacheService(context.Background(), 0)
	now := time.Now()
	cs.now = func() time.Time { return now }

	cs.Set("k", 1, time.Minute)
	v, ok := cs.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = cs.Get("k")
	assert.False(t, ok)

	cs.sweep()
	assert.Equal(t, 0, cs.Len())
}

func TestCacheService_InvalidateProvider(t *testing.T) {
	cs := NewCacheService(context.Background(), 0)
	a, b := uuid.New(), uuid.New()

	cs.Set(ProviderDetailCacheKey(a), "a", time.Minute)
	cs.Set(ProviderDetailCacheKey(b), "b", time.Minute)

	cs.InvalidateProvider(a)

	_, ok := cs.Get(ProviderDetailCacheKey(a))
	assert.False(t, ok)
	_, ok = cs.Get(ProviderDetailCacheKey(b))
	assert.True(t, ok)
}

func TestCacheService_GetOrSet(t *testing.T) {
	cs := NewCacheService(context.Background(), 0)
	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := cs.GetOrSet(context.Background(), "k", time.Minute, fn)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 1, calls)

	_, err := cs.GetOrSet(context.Background(), "other", time.Minute, func() (interface{}, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, err)
	_, ok := cs.Get("other")
	assert.False(t, ok, "ошибки не кешируются")
}
