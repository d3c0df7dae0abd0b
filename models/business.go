package models

type Business struct {
	ID                string  `json:"id"`
	OwnerID           string  `json:"ownerId"`
	Name              string  `json:"name"`
	Category          *string `json:"category"`
	ContactEmail      *string `json:"contactEmail"`
	Phone             *string `json:"phone"`
	Address           *string `json:"address"`
	City              *string `json:"city"`
	State             *string `json:"state"`
	ZipCode           *string `json:"zipCode"`
	CNPJ              *string `json:"cnpj"`
	InscricaoEstadual *string `json:"inscricaoEstadual"`
	IsVerified        bool    `json:"isVerified"`
}

// Market is a storefront; BusinessID is nil for seeded demo markets.
type Market struct {
	ID                string   `json:"id"`
	BusinessID        *string  `json:"businessId"`
	Name              string   `json:"name"`
	CategorySlug      *string  `json:"categorySlug"`
	AddressLine       *string  `json:"addressLine"`
	City              *string  `json:"city"`
	State             *string  `json:"state"`
	ZipCode           *string  `json:"zipCode"`
	Phone             *string  `json:"phone"`
	Email             *string  `json:"email"`
	CNPJ              *string  `json:"cnpj"`
	InscricaoEstadual *string  `json:"inscricaoEstadual"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
}
