package outcome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	cases := []struct {
		exit      float64
		label     string
		hitTarget bool
		hitStop   bool
	}{
		{150, models.OutcomeWin, true, false},
		{70, models.OutcomeLoss, false, true},
		{100.5, models.OutcomeFlat, false, false},
		{99.5, models.OutcomeFlat, false, false},
		{110, models.OutcomeWin, false, false},
		{90, models.OutcomeLoss, false, false},
	}
	for _, c := range cases {
		label, _, hitT, hitS := Classify(100, c.exit, 25, 45)
		assert.Equal(t, c.label, label, "exit %v", c.exit)
		assert.Equal(t, c.hitTarget, hitT)
		assert.Equal(t, c.hitStop, hitS)
	}
}

func TestBuild(t *testing.T) {
	o := Build(7, 30, 100, 25, 45, nil)
	assert.Equal(t, models.OutcomeOpen, o.Label)
	assert.Nil(t, o.ExitLTP)
	assert.Zero(t, o.ExpectancyComponent)

	o = Build(7, 30, 100, 25, 45, &models.LTPPoint{Time: t0, LTP: 120})
	assert.Equal(t, models.OutcomeWin, o.Label)
	require.NotNil(t, o.ReturnPct)
	assert.InDelta(t, 20.0, *o.ReturnPct, 1e-12)
	assert.InDelta(t, 20.0, *o.PnLPoints, 1e-12)
	assert.InDelta(t, 0.2, o.ExpectancyComponent, 1e-12)
	assert.Equal(t, t0, *o.ExitTime)
}

type fakePrices struct {
	byTime map[time.Time]float64
	err    error
}

func (f *fakePrices) LTPAtOrAfter(_ context.Context, _ string, _ models.OptionType, _ float64, at time.Time) (*models.LTPPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.byTime[at]
	if !ok {
		return nil, nil
	}
	return &models.LTPPoint{Time: at, LTP: v}, nil
}

type fakeStore struct {
	outcomes []models.TradeOutcome
	pending  []models.SignalRecord
	since    time.Time
}

func (f *fakeStore) UpsertOutcome(_ context.Context, o models.TradeOutcome) error {
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeStore) PendingSignals(_ context.Context, _ string, since time.Time) ([]models.SignalRecord, error) {
	f.since = since
	return f.pending, nil
}

func entry(v float64) *float64 { return &v }

func TestLabelSignal(t *testing.T) {
	prices := &fakePrices{byTime: map[time.Time]float64{
		t0.Add(10 * time.Minute): 100.4,
		t0.Add(30 * time.Minute): 160,
	}}
	store := &fakeStore{}
	l := NewLabeler(prices, store, store, nil)

	sig := models.SignalRecord{ID: 3, Symbol: "X", Side: "CE", StrikePrice: 22500, SnapshotTime: t0, EntryLTP: entry(100)}
	require.NoError(t, l.LabelSignal(context.Background(), sig))
	require.Len(t, store.outcomes, 3)
	assert.Equal(t, models.OutcomeFlat, store.outcomes[0].Label)
	assert.Equal(t, models.OutcomeWin, store.outcomes[1].Label)
	assert.True(t, store.outcomes[1].HitTarget)
	assert.Equal(t, models.OutcomeOpen, store.outcomes[2].Label)
	assert.Equal(t, 60, store.outcomes[2].HorizonMin)

	store.outcomes = nil
	sig.EntryLTP = entry(0)
	require.NoError(t, l.LabelSignal(context.Background(), sig))
	assert.Empty(t, store.outcomes)
}

func TestProcessPending(t *testing.T) {
	store := &fakeStore{pending: []models.SignalRecord{
		{ID: 1, SnapshotTime: t0, EntryLTP: entry(100)},
		{ID: 2, SnapshotTime: t0},
	}}
	l := NewLabeler(&fakePrices{}, store, store, nil)
	n, err := l.ProcessPending(context.Background(), "X", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, t0.Add(-7*time.Hour), store.since)
	assert.Len(t, store.outcomes, 3)

	l = NewLabeler(&fakePrices{err: errors.New("down")}, store, store, nil)
	n, err = l.ProcessPending(context.Background(), "X", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
