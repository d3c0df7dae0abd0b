package models

import "time"

const (
	SubscriptionPending  = "pending"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"

	KindUser     = "user"
	KindBusiness = "business"
)

type Plan struct {
	ID    string  `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Kind  string  `json:"kind" yaml:"kind"`
	Price float64 `json:"price" yaml:"price"`
}

type Subscription struct {
	ID         string    `json:"id"`
	Kind       *string   `json:"kind"`
	UserID     *string   `json:"user_id"`
	BusinessID *string   `json:"businessId"`
	Plan       *string   `json:"plan"`
	PlanID     *string   `json:"planId"`
	Status     string    `json:"status"`
	PaymentRef *string   `json:"payment_ref"`
	Amount     *float64  `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
