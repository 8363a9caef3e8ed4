package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowIsPerKey(t *testing.T) {
	l := New(0.001, 2)

	assert.True(t, l.Allow("optionchain"))
	assert.True(t, l.Allow("optionchain"))
	assert.False(t, l.Allow("optionchain"))

	assert.True(t, l.Allow("quotes"), "other endpoints keep their own bucket")
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(0.001, 1)
	require.True(t, l.Allow("quotes"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "quotes"))
}

func TestUnlimitedWhenRateNotPositive(t *testing.T) {
	l := New(0, 1)
	for range 100 {
		require.True(t, l.Allow("x"))
	}
}
