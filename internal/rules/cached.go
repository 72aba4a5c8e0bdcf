package rules

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/paycore/payroll-engine/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedCatalog puts a Cache in front of a Selector. Concurrent misses for the same key
// share a single load. Cache failures are logged and fall through to the source.
type CachedCatalog struct {
	source Selector
	cache  Cache
	group  singleflight.Group
	logger *slog.Logger
}

func NewCachedCatalog(source Selector, cache Cache, logger *slog.Logger) *CachedCatalog {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachedCatalog{source: source, cache: cache, logger: logger}
}

// SelectRules returns the cached selection for the query, loading it on a miss.
func (c *CachedCatalog) SelectRules(ctx context.Context, q Query) ([]RuleSpec, error) {
	key := q.Key()
	specs, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "rule cache read failed", "key", key, "error", err)
	}
	if ok {
		return specs, nil
	}

	// The load outlives a cancelled caller so the other waiters still get a result.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		specs, err := c.source.SelectRules(loadCtx, q)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(loadCtx, key, specs); err != nil {
			c.logger.WarnContext(loadCtx, "rule cache write failed", "key", key, "error", err)
		}
		c.logger.DebugContext(loadCtx, "rules loaded", "key", key, "count", len(specs))
		return specs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load rules for %s: %w", key, res.Err)
		}
		return res.Val.([]RuleSpec), nil
	}
}

func (c *CachedCatalog) TaxContext(ctx context.Context, q Query) (domain.TaxContext, error) {
	specs, err := c.SelectRules(ctx, q)
	if err != nil {
		return domain.TaxContext{}, err
	}
	return BuildContext(specs)
}
