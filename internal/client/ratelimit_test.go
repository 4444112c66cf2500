package client

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterRefillsWithClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r := newRateLimiter(60, mock)

	for range 60 {
		require.True(t, r.allow())
	}
	require.False(t, r.allow())

	mock.Add(time.Second)
	require.True(t, r.allow())
	require.False(t, r.allow())

	mock.Add(time.Minute)
	for range 60 {
		require.True(t, r.allow())
	}
	require.False(t, r.allow())
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0, clock.NewMock())
	for range 1000 {
		require.True(t, r.allow())
	}
}
