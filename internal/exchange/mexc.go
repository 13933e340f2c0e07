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

// mexcSubBatch caps channels per SUBSCRIPTION request (MEXC limit is 30).
const mexcSubBatch = 30

const mexcChannelPrefix = "spot@public.miniTicker.v3.api@"

// MEXC subscribes per-symbol miniTicker channels. The server drives its own
// keepalive with {"ping":N} frames that must be answered with {"pong":N}
// right away or the connection is dropped.
type MEXC struct {
	wsURL string // e.g. wss://wbs-api.mexc.com/ws
}

func NewMEXC(wsURL string) *MEXC {
	return &MEXC{wsURL: strings.TrimSpace(wsURL)}
}

func (m *MEXC) Name() string { return SourceMEXC }

func (m *MEXC) DialURL(_ []string) (string, error) {
	if m.wsURL == "" {
		return "", errors.New("mexc ws_url empty")
	}
	return m.wsURL, nil
}

type mexcSubReq struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

func (m *MEXC) Subscribe(ctx context.Context, conn *websocket.Conn, symbols []string) error {
	channels := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		channels = append(channels, mexcChannelPrefix+sym+"@UTC+0")
	}

	for start := 0; start < len(channels); start += mexcSubBatch {
		end := start + mexcSubBatch
		if end > len(channels) {
			end = len(channels)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(mexcSubReq{Method: "SUBSCRIPTION", Params: channels[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

type mexcMiniTicker struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Rate   string `json:"r"`
	Volume string `json:"v"`
}

type mexcMsg struct {
	Ping    *int64          `json:"ping,omitempty"`
	ID      *int64          `json:"id,omitempty"`
	Code    *int            `json:"code,omitempty"`
	Msg     string          `json:"msg,omitempty"`
	Channel string          `json:"c,omitempty"`
	Data    *mexcMiniTicker `json:"d,omitempty"`
}

func (m *MEXC) Parse(_ int, data []byte) ([]model.RawTick, []byte) {
	var msg mexcMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, nil
	}

	// server keepalive, answered out-of-band from tick accounting
	if msg.Ping != nil {
		reply, _ := json.Marshal(map[string]int64{"pong": *msg.Ping})
		return nil, reply
	}

	// subscription ack
	if msg.Code != nil {
		if *msg.Code != 0 {
			log.Error().Str("feed", SourceMEXC).Int("code", *msg.Code).Str("msg", msg.Msg).Msg("subscription rejected")
		}
		return nil, nil
	}

	if msg.Data == nil || !strings.HasPrefix(msg.Channel, mexcChannelPrefix) {
		return nil, nil
	}

	t := msg.Data
	price, _ := strconv.ParseFloat(t.Price, 64)
	// rate is a fraction (0.0123 = +1.23%)
	rate, _ := strconv.ParseFloat(t.Rate, 64)
	volume, _ := strconv.ParseFloat(t.Volume, 64)

	return []model.RawTick{{
		Symbol:   strings.ToUpper(strings.TrimSpace(t.Symbol)),
		Price:    price,
		Change24: rate * 100,
		Volume24: volume,
	}}, nil
}

var _ Adapter = (*MEXC)(nil)
