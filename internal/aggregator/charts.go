package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Pandusss/cryptowatcher-sub000/internal/exchange"
	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
	"github.com/Pandusss/cryptowatcher-sub000/internal/registry"
)

const chartHTTPTimeout = 10 * time.Second

type periodSpec struct {
	interval     string
	bar          string // OKX naming
	mexcInterval string // MEXC rejects "1h", its hourly interval is "60m"
	limit        int
}

var periodMap = map[string]periodSpec{
	"1d":  {interval: "5m", bar: "5m", mexcInterval: "5m", limit: 288},
	"7d":  {interval: "1h", bar: "1H", mexcInterval: "60m", limit: 168},
	"30d": {interval: "4h", bar: "4H", mexcInterval: "4h", limit: 180},
	"1y":  {interval: "1d", bar: "1D", mexcInterval: "1d", limit: 365},
}

// formatChartDate renders a candle timestamp for the frontend: full ISO
// timestamp for intraday periods, midnight-UTC date for longer ones.
func formatChartDate(tsMillis int64, period string) string {
	ts := time.UnixMilli(tsMillis).UTC()
	if period == "1d" || period == "7d" {
		return ts.Format("2006-01-02T15:04:05Z07:00")
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05Z07:00")
}

func fetchJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

// BinanceChart loads klines from the Binance spot REST API.
type BinanceChart struct {
	baseURL string // e.g. https://api.binance.com
	reg     *registry.Registry
	client  *http.Client
}

func NewBinanceChart(baseURL string, reg *registry.Registry) *BinanceChart {
	return &BinanceChart{
		baseURL: baseURL,
		reg:     reg,
		client:  &http.Client{Timeout: chartHTTPTimeout},
	}
}

func (b *BinanceChart) Name() string { return exchange.SourceBinance }

func (b *BinanceChart) Available(externalID string) bool {
	return b.reg.FindByExternalID(b.Name(), externalID) != nil
}

func (b *BinanceChart) Chart(ctx context.Context, externalID, period string) ([]model.ChartPoint, error) {
	spec, ok := periodMap[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	q := url.Values{}
	q.Set("symbol", externalID)
	q.Set("interval", spec.interval)
	q.Set("limit", strconv.Itoa(spec.limit))

	// kline row: [openTime, open, high, low, close, volume, ...]
	var klines [][]any
	if err := fetchJSON(ctx, b.client, b.baseURL+"/api/v3/klines?"+q.Encode(), &klines); err != nil {
		return nil, err
	}

	points := make([]model.ChartPoint, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}
		points = append(points, model.ChartPoint{
			Date:   formatChartDate(int64(toFloat(k[0])), period),
			Price:  toFloat(k[4]),
			Volume: toFloat(k[5]),
		})
	}
	return points, nil
}

// OKXChart loads candles from the OKX market REST API.
type OKXChart struct {
	baseURL string // e.g. https://www.okx.com
	reg     *registry.Registry
	client  *http.Client
}

func NewOKXChart(baseURL string, reg *registry.Registry) *OKXChart {
	return &OKXChart{
		baseURL: baseURL,
		reg:     reg,
		client:  &http.Client{Timeout: chartHTTPTimeout},
	}
}

func (o *OKXChart) Name() string { return exchange.SourceOKX }

func (o *OKXChart) Available(externalID string) bool {
	return o.reg.FindByExternalID(o.Name(), externalID) != nil
}

func (o *OKXChart) Chart(ctx context.Context, externalID, period string) ([]model.ChartPoint, error) {
	spec, ok := periodMap[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	q := url.Values{}
	q.Set("instId", externalID)
	q.Set("bar", spec.bar)
	q.Set("limit", strconv.Itoa(spec.limit))

	// candle row: [ts, open, high, low, close, vol, ...], newest first
	var resp struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	if err := fetchJSON(ctx, o.client, o.baseURL+"/api/v5/market/candles?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx error %s: %s", resp.Code, resp.Msg)
	}

	points := make([]model.ChartPoint, 0, len(resp.Data))
	for i := len(resp.Data) - 1; i >= 0; i-- {
		row := resp.Data[i]
		if len(row) < 6 {
			continue
		}
		ts, _ := strconv.ParseInt(row[0], 10, 64)
		price, _ := strconv.ParseFloat(row[4], 64)
		volume, _ := strconv.ParseFloat(row[5], 64)
		points = append(points, model.ChartPoint{
			Date:   formatChartDate(ts, period),
			Price:  price,
			Volume: volume,
		})
	}
	return points, nil
}

// MEXCChart loads klines from the MEXC spot REST API (binance-shaped rows).
type MEXCChart struct {
	baseURL string // e.g. https://api.mexc.com
	reg     *registry.Registry
	client  *http.Client
}

func NewMEXCChart(baseURL string, reg *registry.Registry) *MEXCChart {
	return &MEXCChart{
		baseURL: baseURL,
		reg:     reg,
		client:  &http.Client{Timeout: chartHTTPTimeout},
	}
}

func (m *MEXCChart) Name() string { return exchange.SourceMEXC }

func (m *MEXCChart) Available(externalID string) bool {
	return m.reg.FindByExternalID(m.Name(), externalID) != nil
}

func (m *MEXCChart) Chart(ctx context.Context, externalID, period string) ([]model.ChartPoint, error) {
	spec, ok := periodMap[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	q := url.Values{}
	q.Set("symbol", externalID)
	q.Set("interval", spec.mexcInterval)
	q.Set("limit", strconv.Itoa(spec.limit))

	var klines [][]any
	if err := fetchJSON(ctx, m.client, m.baseURL+"/api/v3/klines?"+q.Encode(), &klines); err != nil {
		return nil, err
	}

	points := make([]model.ChartPoint, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}
		points = append(points, model.ChartPoint{
			Date:   formatChartDate(int64(toFloat(k[0])), period),
			Price:  toFloat(k[4]),
			Volume: toFloat(k[5]),
		})
	}
	return points, nil
}

var (
	_ ChartProvider = (*BinanceChart)(nil)
	_ ChartProvider = (*OKXChart)(nil)
	_ ChartProvider = (*MEXCChart)(nil)
)
