package exchange

import (
	"math"
	"testing"

	"github.com/gorilla/websocket"
)

func TestBinanceParse(t *testing.T) {
	b := NewBinance("wss://stream.binance.com:9443")

	msg := `[{"s":"btcusdt","c":"50000.5","P":"2.5","v":"1234.5"},{"s":"ETHUSDT","c":"3000","P":"-1.2","v":"99"}]`
	ticks, reply := b.Parse(websocket.TextMessage, []byte(msg))
	if reply != nil {
		t.Errorf("binance never replies, got %q", reply)
	}
	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}
	if ticks[0].Symbol != "BTCUSDT" || ticks[0].Price != 50000.5 || ticks[0].Change24 != 2.5 {
		t.Errorf("unexpected first tick: %+v", ticks[0])
	}

	if ticks, _ := b.Parse(websocket.TextMessage, []byte(`{"result":null,"id":1}`)); ticks != nil {
		t.Errorf("non-array message should yield no ticks, got %v", ticks)
	}
}

func TestBinanceDialURL(t *testing.T) {
	b := NewBinance("wss://stream.binance.com:9443")
	u, err := b.DialURL(nil)
	if err != nil {
		t.Fatalf("DialURL: %v", err)
	}
	if u != "wss://stream.binance.com:9443/ws/!ticker@arr" {
		t.Errorf("unexpected url: %s", u)
	}
}

func TestOKXParse(t *testing.T) {
	o := NewOKX("wss://ws.okx.com:8443/ws/v5/public")

	ack := `{"event":"subscribe","arg":{"channel":"tickers","instId":"BTC-USDT"}}`
	if ticks, _ := o.Parse(websocket.TextMessage, []byte(ack)); ticks != nil {
		t.Errorf("ack should yield no ticks, got %v", ticks)
	}

	msg := `{"arg":{"channel":"tickers","instId":"BTC-USDT"},"data":[{"instId":"BTC-USDT","last":"51000","open24h":"50000","vol24h":"321"}]}`
	ticks, _ := o.Parse(websocket.TextMessage, []byte(msg))
	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(ticks))
	}
	if ticks[0].Symbol != "BTC-USDT" || ticks[0].Price != 51000 {
		t.Errorf("unexpected tick: %+v", ticks[0])
	}
	// (51000-50000)/50000 = +2%
	if math.Abs(ticks[0].Change24-2.0) > 1e-9 {
		t.Errorf("change pct from open24h: got %v, want 2.0", ticks[0].Change24)
	}
}

func TestMEXCParsePing(t *testing.T) {
	m := NewMEXC("wss://wbs-api.mexc.com/ws")

	ticks, reply := m.Parse(websocket.TextMessage, []byte(`{"ping":1718000000}`))
	if ticks != nil {
		t.Errorf("ping should yield no ticks, got %v", ticks)
	}
	if string(reply) != `{"pong":1718000000}` {
		t.Errorf("unexpected pong reply: %s", reply)
	}
}

func TestMEXCParseTicker(t *testing.T) {
	m := NewMEXC("wss://wbs-api.mexc.com/ws")

	msg := `{"c":"spot@public.miniTicker.v3.api@BTCUSDT@UTC+0","d":{"s":"BTCUSDT","p":"50000","r":"0.0123","v":"42"},"t":1718000000000}`
	ticks, reply := m.Parse(websocket.TextMessage, []byte(msg))
	if reply != nil {
		t.Errorf("ticker should not produce a reply, got %q", reply)
	}
	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(ticks))
	}
	tk := ticks[0]
	if tk.Symbol != "BTCUSDT" || tk.Price != 50000 || tk.Volume24 != 42 {
		t.Errorf("unexpected tick: %+v", tk)
	}
	if math.Abs(tk.Change24-1.23) > 1e-9 {
		t.Errorf("rate should convert to percent, got %v", tk.Change24)
	}

	ackOK := `{"id":0,"code":0,"msg":"spot@public.miniTicker.v3.api@BTCUSDT@UTC+0"}`
	if ticks, _ := m.Parse(websocket.TextMessage, []byte(ackOK)); ticks != nil {
		t.Errorf("ack should yield no ticks, got %v", ticks)
	}
}
