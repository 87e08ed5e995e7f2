package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_BlocksAfterMaxFails(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(Policy{Window: time.Minute, MaxFails: 3, BlockFor: 5 * time.Minute})
	m.now = func() time.Time { return now }
	ip := HashIP("10.0.0.1")

	for i := 0; i < 2; i++ {
		blocked, _, err := m.Failure(ctx, "a@x.io", ip)
		require.NoError(t, err)
		require.False(t, blocked)
	}
	blocked, d, err := m.Failure(ctx, "a@x.io", ip)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 5*time.Minute, d)

	ok, retry, err := m.Allow(ctx, "a@x.io", ip)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5*time.Minute, retry)

	// other address and other login are unaffected
	ok, _, _ = m.Allow(ctx, "a@x.io", HashIP("10.0.0.2"))
	require.True(t, ok)
	ok, _, _ = m.Allow(ctx, "b@x.io", ip)
	require.True(t, ok)

	now = now.Add(6 * time.Minute)
	ok, _, _ = m.Allow(ctx, "a@x.io", ip)
	require.True(t, ok)
}

func TestMemory_WindowResetsAndSuccessClears(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})
	m.now = func() time.Time { return now }
	ip := HashIP("10.0.0.1")

	_, _, _ = m.Failure(ctx, "a@x.io", ip)
	now = now.Add(2 * time.Minute)
	blocked, _, _ := m.Failure(ctx, "a@x.io", ip)
	require.False(t, blocked, "stale failure outside window must not count")

	require.NoError(t, m.Success(ctx, "a@x.io", ip))
	blocked, _, _ = m.Failure(ctx, "a@x.io", ip)
	require.False(t, blocked)
}
