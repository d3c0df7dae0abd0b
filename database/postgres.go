package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"compareeconomize/backend/models"
)

// Ensure PostgresStore satisfies the Store interface at compile time.
var _ Store = (*PostgresStore)(nil)

// PostgresStore provides Postgres-backed persistence.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrAlreadyExists
		case "23503":
			return ErrNotFound
		}
	}
	return err
}

// -------------------- users --------------------

const userColumns = `id, email, name, account_type, plan, password_hash, role, is_admin, email_verified, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AccountType, &u.Plan, &u.PasswordHash, &u.Role, &u.IsAdmin, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, account_type, plan, password_hash, role, is_admin, email_verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+userColumns,
		u.ID, u.Email, u.Name, u.AccountType, u.Plan, u.PasswordHash, u.Role, u.IsAdmin, u.EmailVerified)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u models.User) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users SET name=$2, account_type=$3, plan=$4, password_hash=$5, role=$6, is_admin=$7, email_verified=$8, updated_at=now()
		WHERE id=$1
		RETURNING `+userColumns,
		u.ID, u.Name, u.AccountType, u.Plan, u.PasswordHash, u.Role, u.IsAdmin, u.EmailVerified)
	return scanUser(row)
}

// -------------------- sessions --------------------

func (s *PostgresStore) CreateSession(ctx context.Context, sess models.AuthSession) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO auth_sessions (user_id, token, provider, expires_at) VALUES ($1,$2,$3,$4)`,
		sess.UserID, sess.Token, sess.Provider, sess.ExpiresAt)
	return mapErr(err)
}

func (s *PostgresStore) GetSessionByToken(ctx context.Context, token string) (models.AuthSession, error) {
	var sess models.AuthSession
	var provider *string
	err := s.pool.QueryRow(ctx, `SELECT id, user_id, token, provider, created_at, expires_at FROM auth_sessions WHERE token=$1`, token).
		Scan(&sess.ID, &sess.UserID, &sess.Token, &provider, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return models.AuthSession{}, mapErr(err)
	}
	if provider != nil {
		sess.Provider = *provider
	}
	return sess, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE token=$1`, token)
	return err
}

// -------------------- businesses --------------------

const businessColumns = `id, owner_id, name, category, contact_email, phone, address, city, state, zip_code, cnpj, inscricao_estadual, is_verified`

func scanBusiness(row pgx.Row) (models.Business, error) {
	var b models.Business
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Category, &b.ContactEmail, &b.Phone, &b.Address, &b.City, &b.State, &b.ZipCode, &b.CNPJ, &b.InscricaoEstadual, &b.IsVerified)
	if err != nil {
		return models.Business{}, mapErr(err)
	}
	return b, nil
}

func (s *PostgresStore) CreateBusiness(ctx context.Context, b models.Business) (models.Business, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO businesses (`+businessColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING `+businessColumns,
		b.ID, b.OwnerID, b.Name, b.Category, b.ContactEmail, b.Phone, b.Address, b.City, b.State, b.ZipCode, b.CNPJ, b.InscricaoEstadual, b.IsVerified)
	return scanBusiness(row)
}

func (s *PostgresStore) GetBusiness(ctx context.Context, id string) (models.Business, error) {
	return scanBusiness(s.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id=$1`, id))
}

func (s *PostgresStore) ListBusinessesByOwner(ctx context.Context, ownerID string) ([]models.Business, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+businessColumns+` FROM businesses WHERE owner_id=$1 ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateBusiness(ctx context.Context, b models.Business) (models.Business, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE businesses SET name=$2, category=$3, contact_email=$4, phone=$5, address=$6, city=$7, state=$8, zip_code=$9, cnpj=$10, inscricao_estadual=$11
		WHERE id=$1
		RETURNING `+businessColumns,
		b.ID, b.Name, b.Category, b.ContactEmail, b.Phone, b.Address, b.City, b.State, b.ZipCode, b.CNPJ, b.InscricaoEstadual)
	return scanBusiness(row)
}

// -------------------- markets --------------------

const marketColumns = `id, business_id, name, category_slug, address_line, city, state, zip_code, phone, email, cnpj, inscricao_estadual, latitude, longitude`

func scanMarket(row pgx.Row) (models.Market, error) {
	var m models.Market
	err := row.Scan(&m.ID, &m.BusinessID, &m.Name, &m.CategorySlug, &m.AddressLine, &m.City, &m.State, &m.ZipCode, &m.Phone, &m.Email, &m.CNPJ, &m.InscricaoEstadual, &m.Latitude, &m.Longitude)
	if err != nil {
		return models.Market{}, mapErr(err)
	}
	return m, nil
}

func (s *PostgresStore) CreateMarket(ctx context.Context, m models.Market) (models.Market, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO markets (`+marketColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING `+marketColumns,
		m.ID, m.BusinessID, m.Name, m.CategorySlug, m.AddressLine, m.City, m.State, m.ZipCode, m.Phone, m.Email, m.CNPJ, m.InscricaoEstadual, m.Latitude, m.Longitude)
	return scanMarket(row)
}

func (s *PostgresStore) GetMarket(ctx context.Context, id string) (models.Market, error) {
	return scanMarket(s.pool.QueryRow(ctx, `SELECT `+marketColumns+` FROM markets WHERE id=$1`, id))
}

func (s *PostgresStore) ListMarkets(ctx context.Context, filter MarketFilter) ([]models.Market, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case filter.BusinessIDs == nil:
		rows, err = s.pool.Query(ctx, `SELECT `+marketColumns+` FROM markets ORDER BY name ASC`)
	case len(filter.BusinessIDs) == 0:
		return []models.Market{}, nil
	default:
		rows, err = s.pool.Query(ctx, `SELECT `+marketColumns+` FROM markets WHERE business_id = ANY($1) ORDER BY name ASC`, filter.BusinessIDs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Market{}
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateMarket(ctx context.Context, m models.Market) (models.Market, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE markets SET name=$2, category_slug=$3, address_line=$4, city=$5, state=$6, zip_code=$7, phone=$8, email=$9, cnpj=$10, inscricao_estadual=$11, latitude=$12, longitude=$13
		WHERE id=$1
		RETURNING `+marketColumns,
		m.ID, m.Name, m.CategorySlug, m.AddressLine, m.City, m.State, m.ZipCode, m.Phone, m.Email, m.CNPJ, m.InscricaoEstadual, m.Latitude, m.Longitude)
	return scanMarket(row)
}

func (s *PostgresStore) CountMarkets(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM markets`).Scan(&n)
	return n, err
}

// -------------------- products & prices --------------------

func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, unit FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := s.pool.QueryRow(ctx, `SELECT id, name, unit FROM products WHERE id=$1`, id).Scan(&p.ID, &p.Name, &p.Unit)
	return p, mapErr(err)
}

func (s *PostgresStore) UpsertProduct(ctx context.Context, p models.Product) (models.Product, error) {
	var out models.Product
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, unit) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, unit=EXCLUDED.unit
		RETURNING id, name, unit`, p.ID, p.Name, p.Unit).Scan(&out.ID, &out.Name, &out.Unit)
	return out, mapErr(err)
}

func (s *PostgresStore) ListPrices(ctx context.Context, filter PriceFilter) ([]models.Price, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, market_id, product_id, price FROM prices
		WHERE ($1 = '' OR market_id = $1) AND ($2 = '' OR product_id = $2)
		ORDER BY id DESC`, filter.MarketID, filter.ProductID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Price{}
	for rows.Next() {
		var p models.Price
		if err := rows.Scan(&p.ID, &p.MarketID, &p.ProductID, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertPrice(ctx context.Context, p models.Price) (models.Price, error) {
	var out models.Price
	err := s.pool.QueryRow(ctx, `
		INSERT INTO prices (market_id, product_id, price) VALUES ($1,$2,$3)
		ON CONFLICT (market_id, product_id) DO UPDATE SET price=EXCLUDED.price
		RETURNING id, market_id, product_id, price`, p.MarketID, p.ProductID, p.Price).
		Scan(&out.ID, &out.MarketID, &out.ProductID, &out.Price)
	return out, mapErr(err)
}

func (s *PostgresStore) ListOffers(ctx context.Context, productID string) ([]models.Offer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.market_id, m.name, m.city, p.product_id, p.price
		FROM prices p JOIN markets m ON m.id = p.market_id
		WHERE p.product_id = $1
		ORDER BY p.price ASC, m.name ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Offer{}
	for rows.Next() {
		var o models.Offer
		if err := rows.Scan(&o.PriceID, &o.MarketID, &o.MarketName, &o.City, &o.ProductID, &o.Price); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// -------------------- plans & subscriptions --------------------

func (s *PostgresStore) UpsertPlan(ctx context.Context, p models.Plan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plans (id, name, kind, price) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, kind=EXCLUDED.kind, price=EXCLUDED.price`,
		p.ID, p.Name, p.Kind, p.Price)
	return err
}

func (s *PostgresStore) ListPlans(ctx context.Context) ([]models.Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, kind, price FROM plans ORDER BY price ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Plan{}
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const subscriptionColumns = `id, kind, user_id, business_id, plan, plan_id, status, payment_ref, amount, created_at, updated_at`

func scanSubscription(row pgx.Row) (models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.Kind, &s.UserID, &s.BusinessID, &s.Plan, &s.PlanID, &s.Status, &s.PaymentRef, &s.Amount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Subscription{}, mapErr(err)
	}
	return s, nil
}

func (s *PostgresStore) CreateSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (id, kind, user_id, business_id, plan, plan_id, status, payment_ref, amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+subscriptionColumns,
		sub.ID, sub.Kind, sub.UserID, sub.BusinessID, sub.Plan, sub.PlanID, sub.Status, sub.PaymentRef, sub.Amount)
	return scanSubscription(row)
}

func (s *PostgresStore) GetSubscriptionByRef(ctx context.Context, paymentRef string) (models.Subscription, error) {
	return scanSubscription(s.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE payment_ref=$1`, paymentRef))
}

func (s *PostgresStore) ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActivateSubscription(ctx context.Context, subscriptionID, userID, plan string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE subscriptions SET status=$2, updated_at=now() WHERE id=$1`, subscriptionID, models.SubscriptionActive)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if userID == "" {
			return nil
		}
		// A missing user is not an error: the payment is still recorded.
		_, err = tx.Exec(ctx, `UPDATE users SET plan=$2, updated_at=now() WHERE id=$1`, userID, plan)
		return err
	})
}

func (s *PostgresStore) SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE subscriptions SET status=$2, updated_at=now() WHERE id=$1`, subscriptionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -------------------- events --------------------

func (s *PostgresStore) RecordEvent(ctx context.Context, e models.MarketEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO market_events (market_id, product_id, kind, created_at) VALUES ($1,$2,$3,$4)`,
		e.MarketID, e.ProductID, e.Kind, e.CreatedAt)
	return mapErr(err)
}

func (s *PostgresStore) ListBusinessEvents(ctx context.Context, businessID string, since time.Time) ([]models.MarketEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.market_id, e.product_id, e.kind, e.created_at
		FROM market_events e JOIN markets m ON m.id = e.market_id
		WHERE m.business_id = $1 AND e.created_at >= $2
		ORDER BY e.created_at ASC`, businessID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.MarketEvent{}
	for rows.Next() {
		var e models.MarketEvent
		if err := rows.Scan(&e.ID, &e.MarketID, &e.ProductID, &e.Kind, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
