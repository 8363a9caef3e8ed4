package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/cache"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

var _ domrepo.OutcomeStore = (*CachedOutcomeStore)(nil)

// CachedOutcomeStore serves calibration samples from the cache for ttl.
// Samples only change when outcomes are labeled, so a short TTL spares one
// aggregate query per cycle. Writes invalidate nothing; stale samples live
// at most ttl.
type CachedOutcomeStore struct {
	domrepo.OutcomeStore
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedOutcomeStore(inner domrepo.OutcomeStore, c cache.Service, ttl time.Duration) *CachedOutcomeStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedOutcomeStore{OutcomeStore: inner, cache: c, ttl: ttl, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CachedOutcomeStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CachedOutcomeStore) CalibrationSamples(ctx context.Context, symbol string, lookbackDays int) ([]models.CalibrationSample, error) {
	key := cache.Key("calib", symbol, strconv.Itoa(lookbackDays))
	samples, err := cache.GetTyped[[]models.CalibrationSample](ctx, s.cache, key)
	if err == nil {
		return samples, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("calibration cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	samples, err = s.OutcomeStore.CalibrationSamples(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	if samples == nil {
		samples = []models.CalibrationSample{}
	}
	if err := s.cache.Set(ctx, key, samples, s.ttl); err != nil {
		s.l.Warn("calibration cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return samples, nil
}
