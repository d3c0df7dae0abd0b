package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"compareeconomize/backend/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in process memory. It backs local runs without
// DATABASE_URL and the handler tests.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string]models.User
	sessions      map[string]models.AuthSession
	businesses    map[string]models.Business
	businessOrder []string
	markets       map[string]models.Market
	products      map[string]models.Product
	prices        []models.Price
	plans         map[string]models.Plan
	subscriptions map[string]models.Subscription
	events        []models.MarketEvent
	nextID        int64
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[string]models.User{},
		sessions:      map[string]models.AuthSession{},
		businesses:    map[string]models.Business{},
		markets:       map[string]models.Market{},
		products:      map[string]models.Product{},
		plans:         map[string]models.Plan{},
		subscriptions: map[string]models.Subscription{},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) seq() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateUser(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return models.User{}, ErrAlreadyExists
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return models.User{}, ErrAlreadyExists
		}
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) UpdateUser(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	u.Email = existing.Email
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now()
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) CreateSession(_ context.Context, sess models.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Token]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.users[sess.UserID]; !ok {
		return ErrNotFound
	}
	sess.ID = s.seq()
	sess.CreatedAt = s.now()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *MemoryStore) GetSessionByToken(_ context.Context, token string) (models.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return models.AuthSession{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) CreateBusiness(_ context.Context, b models.Business) (models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[b.ID]; ok {
		return models.Business{}, ErrAlreadyExists
	}
	s.businesses[b.ID] = b
	s.businessOrder = append(s.businessOrder, b.ID)
	return b, nil
}

func (s *MemoryStore) GetBusiness(_ context.Context, id string) (models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[id]
	if !ok {
		return models.Business{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) ListBusinessesByOwner(_ context.Context, ownerID string) ([]models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Business{}
	for _, id := range s.businessOrder {
		if b := s.businesses[id]; b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateBusiness(_ context.Context, b models.Business) (models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.businesses[b.ID]
	if !ok {
		return models.Business{}, ErrNotFound
	}
	b.OwnerID = existing.OwnerID
	b.IsVerified = existing.IsVerified
	s.businesses[b.ID] = b
	return b, nil
}

func (s *MemoryStore) CreateMarket(_ context.Context, m models.Market) (models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; ok {
		return models.Market{}, ErrAlreadyExists
	}
	s.markets[m.ID] = m
	return m, nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id string) (models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return models.Market{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context, filter MarketFilter) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var allowed map[string]bool
	if filter.BusinessIDs != nil {
		allowed = make(map[string]bool, len(filter.BusinessIDs))
		for _, id := range filter.BusinessIDs {
			allowed[id] = true
		}
	}
	out := []models.Market{}
	for _, m := range s.markets {
		if allowed != nil && (m.BusinessID == nil || !allowed[*m.BusinessID]) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateMarket(_ context.Context, m models.Market) (models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.markets[m.ID]
	if !ok {
		return models.Market{}, ErrNotFound
	}
	m.BusinessID = existing.BusinessID
	s.markets[m.ID] = m
	return m, nil
}

func (s *MemoryStore) CountMarkets(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markets), nil
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpsertProduct(_ context.Context, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) ListPrices(_ context.Context, filter PriceFilter) ([]models.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Price{}
	for _, p := range s.prices {
		if filter.MarketID != "" && p.MarketID != filter.MarketID {
			continue
		}
		if filter.ProductID != "" && p.ProductID != filter.ProductID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpsertPrice(_ context.Context, p models.Price) (models.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[p.MarketID]; !ok {
		return models.Price{}, ErrNotFound
	}
	if _, ok := s.products[p.ProductID]; !ok {
		return models.Price{}, ErrNotFound
	}
	for i, existing := range s.prices {
		if existing.MarketID == p.MarketID && existing.ProductID == p.ProductID {
			s.prices[i].Price = p.Price
			return s.prices[i], nil
		}
	}
	p.ID = s.seq()
	s.prices = append(s.prices, p)
	return p, nil
}

func (s *MemoryStore) ListOffers(_ context.Context, productID string) ([]models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Offer{}
	for _, p := range s.prices {
		if p.ProductID != productID {
			continue
		}
		m, ok := s.markets[p.MarketID]
		if !ok {
			continue
		}
		out = append(out, models.Offer{
			PriceID:    p.ID,
			MarketID:   p.MarketID,
			MarketName: m.Name,
			City:       m.City,
			ProductID:  p.ProductID,
			Price:      p.Price,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].MarketName < out[j].MarketName
	})
	return out, nil
}

func (s *MemoryStore) UpsertPlan(_ context.Context, p models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
	return nil
}

func (s *MemoryStore) ListPlans(_ context.Context) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateSubscription(_ context.Context, sub models.Subscription) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[sub.ID]; ok {
		return models.Subscription{}, ErrAlreadyExists
	}
	if sub.PaymentRef != nil {
		for _, existing := range s.subscriptions {
			if existing.PaymentRef != nil && *existing.PaymentRef == *sub.PaymentRef {
				return models.Subscription{}, ErrAlreadyExists
			}
		}
	}
	now := s.now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	s.subscriptions[sub.ID] = sub
	return sub, nil
}

func (s *MemoryStore) GetSubscriptionByRef(_ context.Context, paymentRef string) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions {
		if sub.PaymentRef != nil && *sub.PaymentRef == paymentRef {
			return sub, nil
		}
	}
	return models.Subscription{}, ErrNotFound
}

func (s *MemoryStore) ListSubscriptionsByUser(_ context.Context, userID string) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Subscription{}
	for _, sub := range s.subscriptions {
		if sub.UserID != nil && *sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ActivateSubscription(_ context.Context, subscriptionID, userID, plan string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subscriptionID]
	if !ok {
		return ErrNotFound
	}
	now := s.now()
	sub.Status = models.SubscriptionActive
	sub.UpdatedAt = now
	s.subscriptions[subscriptionID] = sub
	if u, ok := s.users[userID]; ok {
		u.Plan = plan
		u.UpdatedAt = now
		s.users[userID] = u
	}
	return nil
}

func (s *MemoryStore) SetSubscriptionStatus(_ context.Context, subscriptionID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subscriptionID]
	if !ok {
		return ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = s.now()
	s.subscriptions[subscriptionID] = sub
	return nil
}

func (s *MemoryStore) RecordEvent(_ context.Context, e models.MarketEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[e.MarketID]; !ok {
		return ErrNotFound
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.ID = s.seq()
	s.events = append(s.events, e)
	return nil
}

func (s *MemoryStore) ListBusinessEvents(_ context.Context, businessID string, since time.Time) ([]models.MarketEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.MarketEvent{}
	for _, e := range s.events {
		m, ok := s.markets[e.MarketID]
		if !ok || m.BusinessID == nil || *m.BusinessID != businessID {
			continue
		}
		if e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
