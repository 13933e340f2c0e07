package model

// CoinStatic is the slow-moving descriptive data for a coin, sourced from
// CoinGecko rather than the exchanges.
type CoinStatic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Slug     string `json:"slug"`
	ImageURL string `json:"imageUrl"`
}
