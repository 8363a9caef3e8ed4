package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/cache"
)

// DecisionCache keeps the most recent decision per symbol.
type DecisionCache struct {
	cache cache.Service
	ttl   time.Duration
}

func NewDecisionCache(c cache.Service, ttl time.Duration) *DecisionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DecisionCache{cache: c, ttl: ttl}
}

func (d *DecisionCache) SaveDecision(ctx context.Context, dec models.Decision) error {
	if err := d.cache.Set(ctx, cache.Key("decision", dec.Symbol), dec, d.ttl); err != nil {
		return fmt.Errorf("cache decision %s: %w", dec.Symbol, err)
	}
	return nil
}

// LatestDecision returns cache.ErrCacheMiss (wrapped) when no cycle has run
// for symbol within the TTL.
func (d *DecisionCache) LatestDecision(ctx context.Context, symbol string) (models.Decision, error) {
	dec, err := cache.GetTyped[models.Decision](ctx, d.cache, cache.Key("decision", symbol))
	if err != nil {
		return models.Decision{}, fmt.Errorf("latest decision %s: %w", symbol, err)
	}
	return dec, nil
}
