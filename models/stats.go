package models

import "time"

const (
	EventView       = "view"
	EventClick      = "click"
	EventComparison = "comparison"
)

// MarketEvent is one tracked interaction with a market or one of its products.
type MarketEvent struct {
	ID        int64     `json:"id"`
	MarketID  string    `json:"marketId"`
	ProductID *string   `json:"productId"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}
