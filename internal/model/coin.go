package model

// Coin is the internal identity for a tradable asset, independent of any
// exchange's native symbol.
type Coin struct {
	ID      string
	Name    string
	Symbol  string
	Enabled bool

	// ExternalIDs maps a source name ("binance", "okx", ...) to that
	// source's native symbol for this coin (e.g. "BTCUSDT", "BTC-USDT").
	ExternalIDs map[string]string

	// PricePriority ranks sources for this coin; the first entry is the
	// only one allowed to stream prices into the store.
	PricePriority []string
}

// ExternalID returns the source-native symbol, or "" when the coin is not
// listed on the source.
func (c *Coin) ExternalID(source string) string {
	if c == nil {
		return ""
	}
	return c.ExternalIDs[source]
}

// TopPriority reports whether source is the authoritative price source.
func (c *Coin) TopPriority(source string) bool {
	return c != nil && len(c.PricePriority) > 0 && c.PricePriority[0] == source
}
