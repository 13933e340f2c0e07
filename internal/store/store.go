package store

import (
	"context"
	"time"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// PriceStore is the TTL-governed cache of the latest snapshot per coin.
//
// All reads degrade to "no data" when the backend is unavailable; callers
// treat a nil snapshot identically to "not cached". Writes are best-effort
// for the same reason: connectors keep streaming whether or not the cache
// is reachable.
type PriceStore interface {
	Set(ctx context.Context, coinID string, snap model.PriceSnapshot)
	Get(ctx context.Context, coinID string) *model.PriceSnapshot
	// GetMany fetches many snapshots in a single backend round trip;
	// missing or expired coins are absent from the result.
	GetMany(ctx context.Context, coinIDs []string) map[string]model.PriceSnapshot
}

// ChartCache holds short-lived chart series to absorb burst requests.
type ChartCache interface {
	GetChart(ctx context.Context, coinID, period string) []model.ChartPoint
	SetChart(ctx context.Context, coinID, period string, points []model.ChartPoint)
}

// StaticCache holds descriptive coin data. Static entries live for an hour,
// image URLs for a week; both are far more stable than prices.
type StaticCache interface {
	GetStatic(ctx context.Context, coinID string) *model.CoinStatic
	SetStatic(ctx context.Context, coinID string, data model.CoinStatic)
	GetImageURL(ctx context.Context, coinID string) string
	SetImageURL(ctx context.Context, coinID, url string)
}

const (
	staticTTL = time.Hour
	imageTTL  = 7 * 24 * time.Hour
)

func priceKey(coinID string) string { return "coin_price:" + coinID }

func chartKey(coinID, period string) string { return "coin_chart:" + coinID + ":" + period }

func staticKey(coinID string) string { return "coin_static:" + coinID }

func imageKey(coinID string) string { return "coin_image_url:" + coinID }
