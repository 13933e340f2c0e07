package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// okxSubBatch caps subscription args per request; OKX rejects oversized
// subscribe frames.
const okxSubBatch = 100

type OKX struct {
	wsURL string // e.g. wss://ws.okx.com:8443/ws/v5/public
}

func NewOKX(wsURL string) *OKX {
	return &OKX{wsURL: strings.TrimSpace(wsURL)}
}

func (o *OKX) Name() string { return SourceOKX }

func (o *OKX) DialURL(_ []string) (string, error) {
	if o.wsURL == "" {
		return "", errors.New("okx ws_url empty")
	}
	return o.wsURL, nil
}

type okxSubArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type okxSubReq struct {
	Op   string      `json:"op"`
	Args []okxSubArg `json:"args"`
}

func (o *OKX) Subscribe(ctx context.Context, conn *websocket.Conn, symbols []string) error {
	for start := 0; start < len(symbols); start += okxSubBatch {
		end := start + okxSubBatch
		if end > len(symbols) {
			end = len(symbols)
		}
		args := make([]okxSubArg, 0, end-start)
		for _, sym := range symbols[start:end] {
			sym = strings.TrimSpace(sym)
			if sym == "" {
				continue
			}
			args = append(args, okxSubArg{Channel: "tickers", InstID: sym})
		}
		if len(args) == 0 {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(okxSubReq{Op: "subscribe", Args: args}); err != nil {
			return err
		}
	}
	return nil
}

type okxTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	Open24 string `json:"open24h"`
	Vol24  string `json:"vol24h"`
}

type okxMsg struct {
	Event string      `json:"event,omitempty"`
	Code  string      `json:"code,omitempty"`
	Msg   string      `json:"msg,omitempty"`
	Arg   *okxSubArg  `json:"arg,omitempty"`
	Data  []okxTicker `json:"data,omitempty"`
}

func (o *OKX) Parse(_ int, data []byte) ([]model.RawTick, []byte) {
	var msg okxMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, nil
	}

	switch msg.Event {
	case "":
	case "subscribe":
		// individual confirmations are logged, never blocked upon
		if msg.Arg != nil {
			log.Debug().Str("feed", SourceOKX).Str("inst", msg.Arg.InstID).Msg("subscription confirmed")
		}
		return nil, nil
	case "error":
		log.Error().Str("feed", SourceOKX).Str("code", msg.Code).Str("msg", msg.Msg).Msg("okx stream error")
		return nil, nil
	default:
		return nil, nil
	}

	ticks := make([]model.RawTick, 0, len(msg.Data))
	for _, t := range msg.Data {
		price, _ := strconv.ParseFloat(t.Last, 64)
		open24, _ := strconv.ParseFloat(t.Open24, 64)
		volume, _ := strconv.ParseFloat(t.Vol24, 64)

		// OKX reports the 24h open, not a percent change
		change := 0.0
		if open24 > 0 {
			change = (price - open24) / open24 * 100
		}
		ticks = append(ticks, model.RawTick{
			Symbol:   strings.TrimSpace(t.InstID),
			Price:    price,
			Change24: change,
			Volume24: volume,
		})
	}
	return ticks, nil
}

var _ Adapter = (*OKX)(nil)
