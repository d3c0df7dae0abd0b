package database

import (
	"context"
	"errors"
	"time"

	"compareeconomize/backend/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// MarketFilter narrows ListMarkets. A nil BusinessIDs slice means "any business";
// an empty non-nil slice matches nothing.
type MarketFilter struct {
	BusinessIDs []string
}

type PriceFilter struct {
	MarketID  string
	ProductID string
}

// Store captures the persistence operations needed by handlers.
type Store interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)

	CreateSession(ctx context.Context, session models.AuthSession) error
	GetSessionByToken(ctx context.Context, token string) (models.AuthSession, error)
	DeleteSession(ctx context.Context, token string) error

	CreateBusiness(ctx context.Context, b models.Business) (models.Business, error)
	GetBusiness(ctx context.Context, id string) (models.Business, error)
	ListBusinessesByOwner(ctx context.Context, ownerID string) ([]models.Business, error)
	UpdateBusiness(ctx context.Context, b models.Business) (models.Business, error)

	CreateMarket(ctx context.Context, m models.Market) (models.Market, error)
	GetMarket(ctx context.Context, id string) (models.Market, error)
	ListMarkets(ctx context.Context, filter MarketFilter) ([]models.Market, error)
	UpdateMarket(ctx context.Context, m models.Market) (models.Market, error)
	CountMarkets(ctx context.Context) (int, error)

	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	UpsertProduct(ctx context.Context, p models.Product) (models.Product, error)

	ListPrices(ctx context.Context, filter PriceFilter) ([]models.Price, error)
	UpsertPrice(ctx context.Context, p models.Price) (models.Price, error)
	ListOffers(ctx context.Context, productID string) ([]models.Offer, error)

	UpsertPlan(ctx context.Context, p models.Plan) error
	ListPlans(ctx context.Context) ([]models.Plan, error)

	CreateSubscription(ctx context.Context, s models.Subscription) (models.Subscription, error)
	GetSubscriptionByRef(ctx context.Context, paymentRef string) (models.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	// ActivateSubscription marks the subscription active and, when userID is set,
	// moves that user to plan, atomically.
	ActivateSubscription(ctx context.Context, subscriptionID, userID, plan string) error
	SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) error

	RecordEvent(ctx context.Context, e models.MarketEvent) error
	// ListBusinessEvents returns events of every market of the business at or after since.
	ListBusinessEvents(ctx context.Context, businessID string, since time.Time) ([]models.MarketEvent, error)

	Close()
}
