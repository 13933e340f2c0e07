package aggregator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
	"github.com/Pandusss/cryptowatcher-sub000/internal/store"
)

// ChartProvider serves historical candles for one source.
type ChartProvider interface {
	Name() string
	// Available reports whether the source lists this external symbol.
	Available(externalID string) bool
	Chart(ctx context.Context, externalID, period string) ([]model.ChartPoint, error)
}

// Router is the cold-cache path: it walks a coin's price priority across
// sources. Prices come from the Price Store only (never substituted from a
// non-priority source); charts fall back to every remaining registered
// provider in registration order when the priority-listed ones fail.
type Router struct {
	reg    *registry.Registry
	store  store.PriceStore
	cache  store.ChartCache
	charts []ChartProvider
	byName map[string]ChartProvider
}

func NewRouter(reg *registry.Registry, st store.PriceStore, cache store.ChartCache, charts ...ChartProvider) *Router {
	byName := make(map[string]ChartProvider, len(charts))
	for _, p := range charts {
		byName[p.Name()] = p
	}
	return &Router{reg: reg, store: st, cache: cache, charts: charts, byName: byName}
}

// Price returns the cached snapshot for a coin, or nil when no
// priority-listed source has produced one. Absence is reported as absence.
func (r *Router) Price(ctx context.Context, coinID string) *model.PriceSnapshot {
	coin := r.reg.Coin(coinID)
	if coin == nil {
		return nil
	}

	// every priority source feeds the same store key, so one read answers
	// for all of them; dangling priority entries are skipped, not errors
	for _, source := range coin.PricePriority {
		if coin.ExternalID(source) != "" {
			return r.store.Get(ctx, coinID)
		}
	}
	return nil
}

// Prices batch-reads snapshots for the given coins in one store round trip.
func (r *Router) Prices(ctx context.Context, coinIDs []string) map[string]model.PriceSnapshot {
	return r.store.GetMany(ctx, coinIDs)
}

// Chart returns a historical series for the coin, trying priority-listed
// providers first and every other registered provider after that. Results
// are cached with a short TTL.
func (r *Router) Chart(ctx context.Context, coinID, period string) []model.ChartPoint {
	coin := r.reg.Coin(coinID)
	if coin == nil {
		return nil
	}

	if cached := r.cache.GetChart(ctx, coinID, period); len(cached) > 0 {
		return cached
	}

	tried := make(map[string]bool, len(coin.PricePriority))
	for _, source := range coin.PricePriority {
		tried[source] = true
		if points := r.tryChart(ctx, coin, source, period); points != nil {
			r.cache.SetChart(ctx, coinID, period, points)
			return points
		}
	}

	// chart-only fallback: every remaining provider, registration order
	for _, p := range r.charts {
		if tried[p.Name()] {
			continue
		}
		if points := r.tryChart(ctx, coin, p.Name(), period); points != nil {
			r.cache.SetChart(ctx, coinID, period, points)
			return points
		}
	}

	log.Warn().Str("coin", coinID).Str("period", period).Msg("no chart from any provider")
	return nil
}

func (r *Router) tryChart(ctx context.Context, coin *model.Coin, source, period string) []model.ChartPoint {
	p := r.byName[source]
	if p == nil {
		return nil
	}
	ext := coin.ExternalID(source)
	if ext == "" || !p.Available(ext) {
		return nil
	}

	points, err := p.Chart(ctx, ext, period)
	if err != nil {
		log.Warn().Err(err).Str("coin", coin.ID).Str("provider", source).Msg("chart fetch failed")
		return nil
	}
	if len(points) == 0 {
		return nil
	}
	return points
}
