package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// monday 2026-10-12 10:00 IST
var snapTime = time.Date(2026, 10, 12, 10, 0, 0, 0, ist)

func iv(v float64) *float64 { return &v }

func testRows(at time.Time) []models.ChainRow {
	var rows []models.ChainRow
	for i := range 9 {
		strike := 21800 + float64(i)*50
		rows = append(rows,
			models.ChainRow{StrikePrice: strike, OptionType: models.CE, OpenInterest: 1000 + float64(i)*150, OIChange: 40, Volume: 5000, LTP: 250 - float64(i)*25, IV: iv(14), SnapshotTime: at},
			models.ChainRow{StrikePrice: strike, OptionType: models.PE, OpenInterest: 2200 - float64(i)*120, OIChange: 60, Volume: 5200, LTP: 40 + float64(i)*25, IV: iv(15), SnapshotTime: at},
		)
	}
	return rows
}

func testSnapshot() models.Snapshot {
	return models.Snapshot{Symbol: "NSE:NIFTY50-INDEX", Spot: 22010, SnapshotTime: snapTime, Rows: testRows(snapTime)}
}

type memStore struct {
	mu         sync.Mutex
	err        error
	snapshots  int
	savedRows  []models.ChainRow
	summaries  int
	scalps     int
	pending    int
	signals    []models.SignalRecord
	outcomes   []models.TradeOutcome
	historyReq int
	statsReq   int
}

func (s *memStore) SaveSnapshot(_ context.Context, _ string, rows []models.ChainRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots++
	s.savedRows = rows
	return s.err
}

func (s *memStore) SnapshotTimes(context.Context, string, time.Time, int) ([]time.Time, error) {
	return nil, s.err
}

func (s *memStore) SnapshotAt(context.Context, string, time.Time) ([]models.ChainRow, error) {
	return nil, s.err
}

func (s *memStore) LTPPath(context.Context, string, models.OptionType, float64, time.Time, time.Time) ([]models.LTPPoint, error) {
	return nil, s.err
}

func (s *memStore) LTPAtOrAfter(context.Context, string, models.OptionType, float64, time.Time) (*models.LTPPoint, error) {
	return nil, nil
}

func (s *memStore) SaveSummary(context.Context, models.ChainSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries++
	return s.err
}

func (s *memStore) RecentSummaries(context.Context, string, time.Time, int) ([]models.SummaryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyReq++
	return nil, s.err
}

func (s *memStore) SaveScalp(context.Context, string, time.Time, float64, models.ScalpScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalps++
	return s.err
}

func (s *memStore) InsertSignal(_ context.Context, rec models.SignalRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	rec.ID = int64(len(s.signals) + 1)
	s.signals = append(s.signals, rec)
	return rec.ID, nil
}

func (s *memStore) SignalsInRange(context.Context, string, time.Time, time.Time) ([]models.SignalRecord, error) {
	return s.signals, s.err
}

func (s *memStore) PendingSignals(context.Context, string, time.Time) ([]models.SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
	return nil, s.err
}

func (s *memStore) UpsertOutcome(_ context.Context, o models.TradeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	return nil
}

func (s *memStore) CalibrationSamples(context.Context, string, int) ([]models.CalibrationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsReq++
	return nil, s.err
}

func (s *memStore) RecentPerformance(context.Context, string, int) (models.Performance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsReq++
	return models.Performance{}, s.err
}

type fakeSource struct {
	spot     float64
	rows     []models.ChainRow
	spotErr  error
	chainErr error
	calls    int
}

func (f *fakeSource) FetchSpotPrice(context.Context, string) (float64, error) {
	f.calls++
	return f.spot, f.spotErr
}

func (f *fakeSource) FetchOptionChain(context.Context, string) ([]models.ChainRow, error) {
	return f.rows, f.chainErr
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *fakeLock) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLock) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type fakeDecisions struct {
	saved map[string]models.Decision
}

func (f *fakeDecisions) SaveDecision(_ context.Context, d models.Decision) error {
	if f.saved == nil {
		f.saved = map[string]models.Decision{}
	}
	f.saved[d.Symbol] = d
	return nil
}

func (f *fakeDecisions) LatestDecision(_ context.Context, symbol string) (models.Decision, error) {
	return f.saved[symbol], nil
}

type fakePublisher struct {
	published []models.SignalRecord
}

func (p *fakePublisher) PublishSignal(_ context.Context, rec models.SignalRecord) error {
	p.published = append(p.published, rec)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	mu      sync.Mutex
	cycles  map[string]int
	errors  map[string]int
	signals int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{cycles: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordCycle(_, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[result]++
}

func (m *fakeMetrics) RecordStageLatency(string, float64) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordDecision(string, int, float64) {}

func (m *fakeMetrics) RecordSignal(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
}

var (
	_ domrepo.SnapshotStore = (*memStore)(nil)
	_ domrepo.SummaryStore  = (*memStore)(nil)
	_ domrepo.SignalStore   = (*memStore)(nil)
	_ domrepo.OutcomeStore  = (*memStore)(nil)
	_ domrepo.Metrics       = (*fakeMetrics)(nil)
)
