package models

type Product struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Unit *string `json:"unit"`
}

type Price struct {
	ID        int64   `json:"id"`
	MarketID  string  `json:"marketId"`
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
}

// Offer is a price joined with its market, used for cross-market comparison.
type Offer struct {
	PriceID    int64   `json:"priceId"`
	MarketID   string  `json:"marketId"`
	MarketName string  `json:"marketName"`
	City       *string `json:"city"`
	ProductID  string  `json:"productId"`
	Price      float64 `json:"price"`
}
