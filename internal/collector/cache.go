package collector

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/cache"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
)

// WithCache 给 collector 包一层记录缓存：命中则不再打网络。
//
// 包装后的 collector 不再对外暴露 RateLimited：只有缓存未命中时才调用内层的 Wait，
// 避免命中缓存也要排队。若内层实现 Searcher，包装后同样实现（搜索结果不缓存）。
func WithCache(c Collector, store cache.Store, logger *slog.Logger) Collector {
	if c == nil {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	base := &cached{inner: c, store: store, logger: logger}
	if s, ok := c.(Searcher); ok {
		return &cachedSearcher{cached: base, searcher: s}
	}
	return base
}

type cached struct {
	inner  Collector
	store  cache.Store
	logger *slog.Logger
}

func (c *cached) Name() string { return c.inner.Name() }

func (c *cached) Fetch(ctx context.Context, id string) (domain.Record, error) {
	name := NormName(c.inner.Name())
	if rec, ok, err := c.store.ReadRecord(name, id); err == nil && ok {
		c.logger.Debug("record cache hit", logging.String("collector", name), logging.String("id", id))
		return rec, nil
	} else if err != nil {
		// 坏缓存：忽略，走网络（成功后会覆盖写回）。
		c.logger.Debug("record cache unreadable", logging.String("collector", name), logging.Error(err))
	}

	if rl, ok := c.inner.(RateLimited); ok {
		if err := rl.Wait(ctx); err != nil {
			return domain.Record{}, err
		}
	}
	rec, err := c.inner.Fetch(ctx, id)
	if err != nil || rec.IsEmpty() {
		return rec, err
	}
	if werr := c.store.WriteRecord(name, id, rec); werr != nil && !errors.Is(werr, cache.ErrReadOnly) {
		c.logger.Warn("record cache write failed", logging.String("collector", name), logging.Error(werr))
	}
	return rec, nil
}

type cachedSearcher struct {
	*cached
	searcher Searcher
}

func (c *cachedSearcher) Search(ctx context.Context, query string) ([]domain.Record, error) {
	if rl, ok := c.inner.(RateLimited); ok {
		if err := rl.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return c.searcher.Search(ctx, query)
}
