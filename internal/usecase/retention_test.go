package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetention struct {
	deleted int64
	err     error
	cutoff  time.Time
}

func (f *fakeRetention) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestCleanupSumsAndJoinsErrors(t *testing.T) {
	pg := &fakeRetention{deleted: 120}
	ch := &fakeRetention{err: errors.New("readonly")}
	m := newFakeMetrics()
	c := NewCleaner(7, m, nil, pg, ch)
	c.now = func() time.Time { return snapTime }

	n, err := c.Cleanup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readonly")
	assert.Equal(t, int64(120), n)
	assert.True(t, snapTime.AddDate(0, 0, -7).Equal(pg.cutoff))
	assert.True(t, pg.cutoff.Equal(ch.cutoff))
	assert.Equal(t, 1, m.errors["retention"])

	ch.err = nil
	_, err = c.Cleanup(context.Background())
	require.NoError(t, err)
}

func TestCleanerDefaultsDays(t *testing.T) {
	c := NewCleaner(0, newFakeMetrics(), nil)
	assert.Equal(t, 7, c.days)
}
