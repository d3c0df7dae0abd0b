package models

import "time"

const (
	AccountUser     = "user"
	AccountBusiness = "business"
	AccountAdmin    = "admin"

	RoleUser  = "user"
	RoleAdmin = "admin"

	PlanFree    = "free"
	PlanPro     = "pro"
	PlanPremium = "premium"
)

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          *string   `json:"name"`
	AccountType   string    `json:"accountType"`
	Plan          string    `json:"plan"`
	PasswordHash  *string   `json:"-"`
	Role          string    `json:"role"`
	IsAdmin       bool      `json:"isAdmin"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MeResponse is the shape returned by /auth/me; "type" mirrors accountType for older clients.
type MeResponse struct {
	User
	Type string `json:"type"`
}

// AuthSession is an opaque bearer token issued alongside the JWT.
type AuthSession struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"userId"`
	Token     string     `json:"-"`
	Provider  string     `json:"provider"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Expired reports whether the session has a deadline that already passed.
func (s AuthSession) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
