package exchange

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
	"github.com/Pandusss/cryptowatcher-sub000/internal/store"
)

const gateCoins = `
[[coins]]
id = "bitcoin"
name = "Bitcoin"
symbol = "BTC"
price_priority = ["binance", "okx"]
[coins.external_ids]
binance = "BTCUSDT"
okx = "BTC-USDT"

[[coins]]
id = "ethereum"
name = "Ethereum"
symbol = "ETH"
price_priority = ["okx", "binance"]
[coins.external_ids]
binance = "ETHUSDT"
okx = "ETH-USDT"
`

func gateFixture(t *testing.T) (*registry.Registry, *store.Memory) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coins.toml")
	if err := os.WriteFile(path, []byte(gateCoins), 0o644); err != nil {
		t.Fatalf("write coins: %v", err)
	}
	return registry.New(path), store.NewMemory(time.Minute, time.Minute)
}

func testDriver(adapter Adapter, reg *registry.Registry, st store.PriceStore) *Driver {
	d := NewDriver(adapter, reg, st)
	d.tracked = make(map[string]struct{})
	for _, c := range reg.CoinsBySource(adapter.Name()) {
		d.tracked[c.ID] = struct{}{}
	}
	return d
}

func TestGateWritesTopPriorityOnly(t *testing.T) {
	reg, st := gateFixture(t)
	ctx := context.Background()

	binance := testDriver(NewBinance("wss://x"), reg, st)
	okx := testDriver(NewOKX("wss://x"), reg, st)

	binance.processTick(ctx, model.RawTick{Symbol: "BTCUSDT", Price: 50000})
	if snap := st.Get(ctx, "bitcoin"); snap == nil || snap.Price != 50000 {
		t.Fatalf("binance is top priority for bitcoin, want 50000, got %v", snap)
	}

	// okx tick arrives later in wall-clock time but must not clobber
	okx.processTick(ctx, model.RawTick{Symbol: "BTC-USDT", Price: 49000})
	if snap := st.Get(ctx, "bitcoin"); snap == nil || snap.Price != 50000 {
		t.Fatalf("lower-priority okx overwrote bitcoin: %v", snap)
	}

	// for ethereum the roles reverse
	binance.processTick(ctx, model.RawTick{Symbol: "ETHUSDT", Price: 3000})
	if snap := st.Get(ctx, "ethereum"); snap != nil {
		t.Fatalf("binance is not priority for ethereum, got %v", snap)
	}
	okx.processTick(ctx, model.RawTick{Symbol: "ETH-USDT", Price: 3010})
	if snap := st.Get(ctx, "ethereum"); snap == nil || snap.Price != 3010 {
		t.Fatalf("okx is top priority for ethereum, got %v", snap)
	}
}

func TestGateDropsAndCounters(t *testing.T) {
	reg, st := gateFixture(t)
	ctx := context.Background()

	d := testDriver(NewBinance("wss://x"), reg, st)

	d.processTick(ctx, model.RawTick{Symbol: "", Price: 100})
	d.processTick(ctx, model.RawTick{Symbol: "XRPUSDT", Price: 100})   // unmapped
	d.processTick(ctx, model.RawTick{Symbol: "ETHUSDT", Price: 3000})  // wrong priority
	d.processTick(ctx, model.RawTick{Symbol: "BTCUSDT", Price: 0})     // zero price
	d.processTick(ctx, model.RawTick{Symbol: "BTCUSDT", Price: -5})    // glitch
	d.processTick(ctx, model.RawTick{Symbol: "BTCUSDT", Price: 50000}) // ok

	if d.stats.noSymbol != 1 || d.stats.unmapped != 1 || d.stats.wrongPriority != 1 {
		t.Errorf("drop counters wrong: %+v", d.stats)
	}
	if d.stats.zeroPrice != 2 {
		t.Errorf("zero/negative prices should count as zeroPrice, got %d", d.stats.zeroPrice)
	}
	if d.stats.updated != 1 {
		t.Errorf("expected one update, got %d", d.stats.updated)
	}
	if snap := st.Get(ctx, "bitcoin"); snap == nil || snap.Price != 50000 {
		t.Errorf("valid tick not written: %v", snap)
	}
}

func TestGateUntrackedCoin(t *testing.T) {
	reg, st := gateFixture(t)
	ctx := context.Background()

	d := testDriver(NewBinance("wss://x"), reg, st)
	delete(d.tracked, "bitcoin")

	d.processTick(ctx, model.RawTick{Symbol: "BTCUSDT", Price: 50000})
	if d.stats.untracked != 1 {
		t.Errorf("expected untracked drop, got %+v", d.stats)
	}
	if snap := st.Get(ctx, "bitcoin"); snap != nil {
		t.Errorf("untracked coin written: %v", snap)
	}
}

func TestStatsLogCoversEveryDropReason(t *testing.T) {
	reg, st := gateFixture(t)
	d := testDriver(NewBinance("wss://x"), reg, st)
	d.processTick(context.Background(), model.RawTick{Symbol: "", Price: 100})

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	d.logStats()

	out := buf.String()
	for _, field := range []string{"drop_no_symbol", "drop_unmapped", "drop_untracked", "drop_wrong_priority", "drop_zero_price"} {
		if !strings.Contains(out, field) {
			t.Errorf("stats event missing %s: %s", field, out)
		}
	}
	if !strings.Contains(out, `"drop_no_symbol":1`) {
		t.Errorf("no-symbol drop not counted: %s", out)
	}
}

func TestDriverStartStopsWithoutCoins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coins.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write coins: %v", err)
	}
	reg := registry.New(path)
	st := store.NewMemory(time.Minute, time.Minute)

	d := NewDriver(NewBinance("wss://x"), reg, st)
	d.Start(context.Background())
	// no coins mapped: connector must stay stopped, Stop is a no-op
	d.Stop()
}
