package models

import (
	"bytes"
	"encoding/json"
)

// Optional tells an absent JSON field apart from an explicit null, so partial
// updates can clear a column.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// BusinessInput carries create/update fields. Absent fields are left untouched
// and an explicit null clears the field; name cannot be cleared.
type BusinessInput struct {
	Name              *string          `json:"name"`
	Category          Optional[string] `json:"category"`
	ContactEmail      Optional[string] `json:"contactEmail"`
	Phone             Optional[string] `json:"phone"`
	Address           Optional[string] `json:"address"`
	City              Optional[string] `json:"city"`
	State             Optional[string] `json:"state"`
	ZipCode           Optional[string] `json:"zipCode"`
	CNPJ              Optional[string] `json:"cnpj"`
	InscricaoEstadual Optional[string] `json:"inscricaoEstadual"`
}

func (in BusinessInput) Apply(b *Business) {
	if in.Name != nil {
		b.Name = *in.Name
	}
	assign(&b.Category, in.Category)
	assign(&b.ContactEmail, in.ContactEmail)
	assign(&b.Phone, in.Phone)
	assign(&b.Address, in.Address)
	assign(&b.City, in.City)
	assign(&b.State, in.State)
	assign(&b.ZipCode, in.ZipCode)
	assign(&b.CNPJ, in.CNPJ)
	assign(&b.InscricaoEstadual, in.InscricaoEstadual)
}

type MarketInput struct {
	BusinessID        *string           `json:"businessId"`
	Name              *string           `json:"name"`
	CategorySlug      Optional[string]  `json:"categorySlug"`
	AddressLine       Optional[string]  `json:"addressLine"`
	City              Optional[string]  `json:"city"`
	State             Optional[string]  `json:"state"`
	ZipCode           Optional[string]  `json:"zipCode"`
	Phone             Optional[string]  `json:"phone"`
	Email             Optional[string]  `json:"email"`
	CNPJ              Optional[string]  `json:"cnpj"`
	InscricaoEstadual Optional[string]  `json:"inscricaoEstadual"`
	Latitude          Optional[float64] `json:"latitude"`
	Longitude         Optional[float64] `json:"longitude"`
}

// Apply copies every present field except BusinessID onto m.
func (in MarketInput) Apply(m *Market) {
	if in.Name != nil {
		m.Name = *in.Name
	}
	assign(&m.CategorySlug, in.CategorySlug)
	assign(&m.AddressLine, in.AddressLine)
	assign(&m.City, in.City)
	assign(&m.State, in.State)
	assign(&m.ZipCode, in.ZipCode)
	assign(&m.Phone, in.Phone)
	assign(&m.Email, in.Email)
	assign(&m.CNPJ, in.CNPJ)
	assign(&m.InscricaoEstadual, in.InscricaoEstadual)
	assign(&m.Latitude, in.Latitude)
	assign(&m.Longitude, in.Longitude)
}

func assign[T any](dst **T, src Optional[T]) {
	if !src.Set {
		return
	}
	if src.Value == nil {
		*dst = nil
		return
	}
	v := *src.Value
	*dst = &v
}

type ProductRequest struct {
	ID   string  `json:"id"`
	Name string  `json:"name" binding:"required"`
	Unit *string `json:"unit"`
}

type PriceRequest struct {
	MarketID  string  `json:"marketId" binding:"required"`
	ProductID string  `json:"productId" binding:"required"`
	Price     float64 `json:"price" binding:"required,gt=0"`
}

type EventRequest struct {
	MarketID  string  `json:"marketId" binding:"required"`
	ProductID *string `json:"productId"`
	Kind      string  `json:"kind" binding:"required,oneof=view click comparison"`
}

// CheckoutRequest keeps Price loose because clients send numbers or numeric strings.
type CheckoutRequest struct {
	Plan  string `json:"plan"`
	Price any    `json:"price"`
}
