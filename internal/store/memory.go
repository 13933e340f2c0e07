package store

import (
	"context"
	"sync"
	"time"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

type memEntry struct {
	snap      model.PriceSnapshot
	expiresAt time.Time
}

type memChart struct {
	points    []model.ChartPoint
	expiresAt time.Time
}

type memStatic struct {
	data      model.CoinStatic
	expiresAt time.Time
}

type memImage struct {
	url       string
	expiresAt time.Time
}

// Memory is an in-process PriceStore with the same TTL semantics as the
// redis store. Used when no cache backend is configured, and by tests.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	chartTTL time.Duration
	prices   map[string]memEntry
	charts   map[string]memChart
	statics  map[string]memStatic
	images   map[string]memImage

	// now is swappable so tests can step the clock.
	now func() time.Time
}

func NewMemory(ttl, chartTTL time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		chartTTL: chartTTL,
		prices:   make(map[string]memEntry),
		charts:   make(map[string]memChart),
		statics:  make(map[string]memStatic),
		images:   make(map[string]memImage),
		now:      time.Now,
	}
}

// SetClock replaces the time source. Test hook.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Memory) Set(_ context.Context, coinID string, snap model.PriceSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[coinID] = memEntry{snap: snap, expiresAt: m.now().Add(m.ttl)}
}

func (m *Memory) Get(_ context.Context, coinID string) *model.PriceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.prices[coinID]
	if !ok || m.now().After(e.expiresAt) {
		delete(m.prices, coinID)
		return nil
	}
	snap := e.snap
	return &snap
}

func (m *Memory) GetMany(ctx context.Context, coinIDs []string) map[string]model.PriceSnapshot {
	out := make(map[string]model.PriceSnapshot, len(coinIDs))
	for _, id := range coinIDs {
		if snap := m.Get(ctx, id); snap != nil {
			out[id] = *snap
		}
	}
	return out
}

func (m *Memory) GetChart(_ context.Context, coinID, period string) []model.ChartPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := chartKey(coinID, period)
	e, ok := m.charts[key]
	if !ok || m.now().After(e.expiresAt) {
		delete(m.charts, key)
		return nil
	}
	return e.points
}

func (m *Memory) SetChart(_ context.Context, coinID, period string, points []model.ChartPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charts[chartKey(coinID, period)] = memChart{points: points, expiresAt: m.now().Add(m.chartTTL)}
}

func (m *Memory) GetStatic(_ context.Context, coinID string) *model.CoinStatic {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.statics[coinID]
	if !ok || m.now().After(e.expiresAt) {
		delete(m.statics, coinID)
		return nil
	}
	data := e.data
	return &data
}

func (m *Memory) SetStatic(_ context.Context, coinID string, data model.CoinStatic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statics[coinID] = memStatic{data: data, expiresAt: m.now().Add(staticTTL)}
}

func (m *Memory) GetImageURL(_ context.Context, coinID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.images[coinID]
	if !ok || m.now().After(e.expiresAt) {
		delete(m.images, coinID)
		return ""
	}
	return e.url
}

func (m *Memory) SetImageURL(_ context.Context, coinID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[coinID] = memImage{url: url, expiresAt: m.now().Add(imageTTL)}
}

var (
	_ PriceStore  = (*Memory)(nil)
	_ ChartCache  = (*Memory)(nil)
	_ StaticCache = (*Memory)(nil)
)
