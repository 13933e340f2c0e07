package model

// PriceSnapshot is the latest cached market data for one coin.
type PriceSnapshot struct {
	Price           float64 `json:"price"`
	PercentChange24 float64 `json:"percent_change_24h"`
	Volume24        float64 `json:"volume_24h"`
	PriceDecimals   int     `json:"priceDecimals"`
}

// RawTick is one ticker record extracted from an exchange stream message,
// still keyed by the exchange-native symbol.
type RawTick struct {
	Symbol   string
	Price    float64
	Change24 float64
	Volume24 float64
}

// PriceDecimals derives display precision from price magnitude: large prices
// get two decimals, sub-unit prices enough digits to show movement.
func PriceDecimals(price float64) int {
	switch {
	case price >= 1:
		return 2
	case price >= 0.01:
		return 4
	case price >= 0.0001:
		return 6
	default:
		return 8
	}
}

// Snapshot builds a PriceSnapshot from a tick, deriving display precision.
func (t RawTick) Snapshot() PriceSnapshot {
	return PriceSnapshot{
		Price:           t.Price,
		PercentChange24: t.Change24,
		Volume24:        t.Volume24,
		PriceDecimals:   PriceDecimals(t.Price),
	}
}

// ChartPoint is one point of a historical price series.
type ChartPoint struct {
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}
