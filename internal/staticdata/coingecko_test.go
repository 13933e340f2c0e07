package staticdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
	"github.com/Pandusss/cryptowatcher-sub000/internal/store"
)

const coinsDoc = `
[[coins]]
id = "bitcoin"
name = "Bitcoin"
symbol = "BTC"
price_priority = ["binance"]
[coins.external_ids]
binance = "BTCUSDT"
coingecko = "bitcoin"

[[coins]]
id = "ethereum"
name = "Ethereum"
symbol = "ETH"
price_priority = ["binance"]
[coins.external_ids]
binance = "ETHUSDT"
`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coins.toml")
	if err := os.WriteFile(path, []byte(coinsDoc), 0o644); err != nil {
		t.Fatalf("write coins doc: %v", err)
	}
	return registry.New(path)
}

func TestStaticFetchAndCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/coins/bitcoin" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"name":"Bitcoin","symbol":"btc","image":{"large":"https://img/btc-large.png","small":"https://img/btc-small.png"}}`))
	}))
	defer srv.Close()

	cache := store.NewMemory(10*time.Second, time.Minute)
	svc := NewService(testRegistry(t), cache, srv.URL, "")

	data := svc.Static(context.Background(), "bitcoin")
	if data == nil {
		t.Fatal("Static returned nil")
	}
	if data.Name != "Bitcoin" || data.Symbol != "BTC" || data.ImageURL != "https://img/btc-large.png" {
		t.Errorf("unexpected static data %+v", data)
	}
	if data.Slug != "bitcoin" {
		t.Errorf("Slug = %q, want bitcoin", data.Slug)
	}

	// second lookup is served from cache
	if svc.Static(context.Background(), "bitcoin") == nil {
		t.Fatal("cached Static returned nil")
	}
	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1", hits)
	}

	if u := svc.ImageURL(context.Background(), "bitcoin"); u != "https://img/btc-large.png" {
		t.Errorf("ImageURL = %q", u)
	}
}

func TestStaticNoMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	}))
	defer srv.Close()

	cache := store.NewMemory(10*time.Second, time.Minute)
	svc := NewService(testRegistry(t), cache, srv.URL, "")

	// ethereum has no coingecko external id
	if data := svc.Static(context.Background(), "ethereum"); data != nil {
		t.Errorf("Static = %+v, want nil for unmapped coin", data)
	}
	if data := svc.Static(context.Background(), "nope"); data != nil {
		t.Errorf("Static = %+v, want nil for unknown coin", data)
	}
}

func TestStaticBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("ids = %q, want bitcoin", got)
		}
		w.Write([]byte(`[{"id":"bitcoin","name":"Bitcoin","symbol":"btc","image":"https://img/btc.png"}]`))
	}))
	defer srv.Close()

	cache := store.NewMemory(10*time.Second, time.Minute)
	svc := NewService(testRegistry(t), cache, srv.URL, "")

	result := svc.StaticBatch(context.Background(), []string{"bitcoin", "ethereum"})
	if len(result) != 2 {
		t.Fatalf("got %d entries, want 2", len(result))
	}
	if result["bitcoin"] == nil || result["bitcoin"].Symbol != "BTC" {
		t.Errorf("bitcoin entry = %+v", result["bitcoin"])
	}
	if result["ethereum"] != nil {
		t.Errorf("ethereum entry = %+v, want nil", result["ethereum"])
	}
}

func TestStaticUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cache := store.NewMemory(10*time.Second, time.Minute)
	svc := NewService(testRegistry(t), cache, srv.URL, "")

	if data := svc.Static(context.Background(), "bitcoin"); data != nil {
		t.Errorf("Static = %+v, want nil on upstream error", data)
	}
}
