package exchange

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// Source names as they appear in the coins document.
const (
	SourceBinance = "binance"
	SourceOKX     = "okx"
	SourceMEXC    = "mexc"
)

// Adapter is the per-exchange strategy plugged into the shared Driver: it
// knows the wire protocol (dial URL, subscription shape, ticker fields)
// while the Driver owns the connect/subscribe/stream/reconnect state
// machine and the arbitration gate.
type Adapter interface {
	Name() string

	// DialURL builds the websocket URL for the given exchange-native
	// symbols. Exchanges with a fixed endpoint ignore the symbols.
	DialURL(symbols []string) (string, error)

	// Subscribe sends the subscription requests after connecting, batched
	// when the exchange caps subscriptions per message. Confirmation
	// messages are not waited for.
	Subscribe(ctx context.Context, conn *websocket.Conn, symbols []string) error

	// Parse extracts zero or more ticker records from one inbound message.
	// A non-nil reply is a keepalive answer the driver writes back
	// immediately, outside of tick accounting.
	Parse(messageType int, data []byte) (ticks []model.RawTick, reply []byte)
}
