package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// Binance streams every spot ticker over the !ticker@arr endpoint, so there
// is no per-symbol subscription: the arbitration gate filters the firehose.
type Binance struct {
	wsURL string // e.g. wss://stream.binance.com:9443
}

func NewBinance(wsURL string) *Binance {
	return &Binance{wsURL: strings.TrimSpace(wsURL)}
}

func (b *Binance) Name() string { return SourceBinance }

func (b *Binance) DialURL(_ []string) (string, error) {
	if b.wsURL == "" {
		return "", errors.New("binance ws_url empty")
	}
	u, err := url.Parse(b.wsURL)
	if err != nil {
		return "", err
	}
	u.Path = "/ws/!ticker@arr"
	return u.String(), nil
}

func (b *Binance) Subscribe(context.Context, *websocket.Conn, []string) error {
	// all tickers arrive without subscribing
	return nil
}

type binanceTicker struct {
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	ChangePct string `json:"P"`
	Volume    string `json:"v"`
}

func (b *Binance) Parse(_ int, data []byte) ([]model.RawTick, []byte) {
	var tickers []binanceTicker
	if err := json.Unmarshal(data, &tickers); err != nil {
		// non-array payloads are not tickers
		return nil, nil
	}

	ticks := make([]model.RawTick, 0, len(tickers))
	for _, t := range tickers {
		price, _ := strconv.ParseFloat(t.LastPrice, 64)
		change, _ := strconv.ParseFloat(t.ChangePct, 64)
		volume, _ := strconv.ParseFloat(t.Volume, 64)
		ticks = append(ticks, model.RawTick{
			Symbol:   strings.ToUpper(strings.TrimSpace(t.Symbol)),
			Price:    price,
			Change24: change,
			Volume24: volume,
		})
	}
	return ticks, nil
}

var _ Adapter = (*Binance)(nil)
