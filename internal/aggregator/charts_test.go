package aggregator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
)

func intervalRecorder(t *testing.T, param, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query().Get(param))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

// Each provider speaks its own interval dialect; 7d hourly candles in
// particular are "1h" on binance, "1H" on OKX and "60m" on MEXC.
func TestChartProviderIntervals(t *testing.T) {
	reg := registry.New(filepath.Join(t.TempDir(), "missing.toml"))
	ctx := context.Background()
	periods := []string{"1d", "7d", "30d", "1y"}

	binanceSrv, binanceSeen := intervalRecorder(t, "interval", `[]`)
	binance := NewBinanceChart(binanceSrv.URL, reg)
	for _, p := range periods {
		if _, err := binance.Chart(ctx, "BTCUSDT", p); err != nil {
			t.Fatalf("binance %s: %v", p, err)
		}
	}
	wantBinance := []string{"5m", "1h", "4h", "1d"}
	for i, want := range wantBinance {
		if (*binanceSeen)[i] != want {
			t.Errorf("binance %s interval = %q, want %q", periods[i], (*binanceSeen)[i], want)
		}
	}

	okxSrv, okxSeen := intervalRecorder(t, "bar", `{"code":"0","data":[]}`)
	okx := NewOKXChart(okxSrv.URL, reg)
	for _, p := range periods {
		if _, err := okx.Chart(ctx, "BTC-USDT", p); err != nil {
			t.Fatalf("okx %s: %v", p, err)
		}
	}
	wantOKX := []string{"5m", "1H", "4H", "1D"}
	for i, want := range wantOKX {
		if (*okxSeen)[i] != want {
			t.Errorf("okx %s bar = %q, want %q", periods[i], (*okxSeen)[i], want)
		}
	}

	mexcSrv, mexcSeen := intervalRecorder(t, "interval", `[]`)
	mexc := NewMEXCChart(mexcSrv.URL, reg)
	for _, p := range periods {
		if _, err := mexc.Chart(ctx, "BTCUSDT", p); err != nil {
			t.Fatalf("mexc %s: %v", p, err)
		}
	}
	wantMEXC := []string{"5m", "60m", "4h", "1d"}
	for i, want := range wantMEXC {
		if (*mexcSeen)[i] != want {
			t.Errorf("mexc %s interval = %q, want %q", periods[i], (*mexcSeen)[i], want)
		}
	}
}
