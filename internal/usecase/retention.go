package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

// Cleaner prunes every store holding cycle history.
type Cleaner struct {
	stores  []domrepo.RetentionStore
	days    int
	metrics domrepo.Metrics
	now     func() time.Time
	l       *applogger.Logger
}

func NewCleaner(days int, metrics domrepo.Metrics, l *applogger.Logger, stores ...domrepo.RetentionStore) *Cleaner {
	if l == nil {
		l = applogger.Nop()
	}
	if days < 1 {
		days = 7
	}
	return &Cleaner{stores: stores, days: days, metrics: metrics, now: time.Now, l: l}
}

// Cleanup deletes rows older than the retention window. Every store is
// attempted; the joined error reports the ones that failed.
func (c *Cleaner) Cleanup(ctx context.Context) (int64, error) {
	cutoff := c.now().AddDate(0, 0, -c.days)
	var (
		total int64
		errs  []error
	)
	for _, s := range c.stores {
		n, err := s.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			c.metrics.RecordError("retention")
			errs = append(errs, err)
			continue
		}
		total += n
	}
	c.l.Info("retention cleanup",
		applogger.Time("cutoff", cutoff),
		applogger.Int64("deleted", total),
		applogger.Int("failed_stores", len(errs)),
	)
	if len(errs) > 0 {
		return total, fmt.Errorf("retention cleanup: %w", errors.Join(errs...))
	}
	return total, nil
}
