package main

import (
	"log/slog"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector/javbus"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector/javdb"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector/javlibrary"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/config"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/cache"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/httpx"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/match"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/merge"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resolver"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/session"
)

// collectorFactory 按最终配置构造启用的 collector。
type collectorFactory func(eff config.Effective, logger *slog.Logger) ([]collector.Collector, error)

// buildCollectors 构造内置站点的 collector。配置中启用但没有实现的站点只记录日志。
func buildCollectors(eff config.Effective, logger *slog.Logger) ([]collector.Collector, error) {
	client, err := httpx.NewClient(eff.HTTP)
	if err != nil {
		return nil, err
	}
	var out []collector.Collector
	for _, name := range eff.Enabled() {
		s := eff.Collectors[name]
		switch name {
		case javbus.Name:
			out = append(out, javbus.New(client, s.BaseURL))
		case javdb.Name:
			out = append(out, javdb.New(client, s.BaseURL, s.Interval))
		case javlibrary.Name:
			out = append(out, javlibrary.New(client, s.BaseURL, s.Interval))
		default:
			logger.Debug("collector not available", logging.String(logging.FieldCollector, name))
		}
	}
	return out, nil
}

// buildResolver 把配置、collector、缓存与观察者组装成 Resolver。
func buildResolver(eff config.Effective, cs []collector.Collector, logger *slog.Logger, obs session.Observer) (*resolver.Resolver, error) {
	if eff.CacheDir != "" {
		store := cache.New(eff.CacheDir, eff.CacheReadOnly, eff.CacheTTL)
		wrapped := make([]collector.Collector, 0, len(cs))
		for _, c := range cs {
			wrapped = append(wrapped, collector.WithCache(c, store, logger))
		}
		cs = wrapped
	}
	reg, err := collector.NewRegistry(cs...)
	if err != nil {
		return nil, err
	}

	opts := eff.Session
	opts.Logger = logging.NewComponentLogger(logger, "session")
	opts.Observer = obs

	return resolver.New(resolver.Config{
		Registry: reg,
		Table:    eff.Table,
		Tags:     merge.NewTagNormalizer(eff.TagAliases),
		Scorer:   match.NewScorer(eff.Threshold, eff.ExcludeKeywords, logging.NewComponentLogger(logger, "match")),
		Session:  opts,
		Logger:   logger,
	})
}
