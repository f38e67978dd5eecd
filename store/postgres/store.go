// Package postgres provides a PostgreSQL-backed Store using pgx and goqu.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

const dialect = "postgres"

const (
	tableConfig        = "escrow_config"
	tableProviders     = "escrow_providers"
	tablePlans         = "escrow_plans"
	tableSubscriptions = "escrow_subscriptions"
	tableBalances      = "escrow_balances"
	tableRoyalties     = "escrow_royalties"
	tableLicenses      = "escrow_licenses"
	tableCounters      = "escrow_counters"
)

const (
	counterPlan         = "plan"
	counterSubscription = "subscription"
)

// Store implements store.Store on PostgreSQL. Addresses are stored as
// checksummed hex text; amounts and intervals as bigint (smallest
// currency unit and nanoseconds respectively).
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store. Call Migrate before use.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing connection pool.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ==================== Config ====================

func (s *Store) SaveConfig(ctx context.Context, cfg *types.Config) error {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableConfig).
		Rows(goqu.Record{
			"singleton":      true,
			"admin":          cfg.Admin.Hex(),
			"fee_bps":        int64(cfg.FeeBps),
			"initialized_at": cfg.InitializedAt,
		}).
		OnConflict(goqu.DoNothing()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build save config: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: save config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return escrow.ErrAlreadyInitialized
	}
	return nil
}

func (s *Store) GetConfig(ctx context.Context) (*types.Config, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableConfig).
		Select("admin", "fee_bps", "initialized_at").
		Where(goqu.Ex{"singleton": true}).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: build get config: %w", err)
	}

	var (
		admin  string
		feeBps int64
		at     time.Time
	)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&admin, &feeBps, &at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrConfigNotFound
		}
		return nil, fmt.Errorf("postgres: get config: %w", err)
	}
	return &types.Config{
		Admin:         types.HexToAddress(admin),
		FeeBps:        uint64(feeBps),
		InitializedAt: at,
	}, nil
}

// ==================== Providers ====================

func (s *Store) CreateProvider(ctx context.Context, p *provider.Provider) error {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableProviders).
		Rows(goqu.Record{
			"address":    p.Address.Hex(),
			"name":       p.Name,
			"created_at": p.CreatedAt,
			"updated_at": p.UpdatedAt,
		}).
		OnConflict(goqu.DoNothing()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build create provider: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: create provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return escrow.ErrProviderExists
	}
	return nil
}

func (s *Store) GetProvider(ctx context.Context, addr types.Address) (*provider.Provider, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableProviders).
		Select("name", "created_at", "updated_at").
		Where(goqu.Ex{"address": addr.Hex()}).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: build get provider: %w", err)
	}

	p := &provider.Provider{Address: addr}
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrProviderNotFound
		}
		return nil, fmt.Errorf("postgres: get provider: %w", err)
	}
	return p, nil
}

// ==================== Plans ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var next int64
	err = tx.QueryRow(ctx,
		`UPDATE `+tableCounters+` SET value = value + 1 WHERE name = $1 RETURNING value - 1`,
		counterPlan,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("postgres: advance plan counter: %w", err)
	}
	p.ID = id.PlanID(next)

	query, args, err := goqu.Dialect(dialect).
		Insert(tablePlans).
		Rows(goqu.Record{
			"id":           int64(p.ID),
			"provider":     p.Provider.Hex(),
			"price":        int64(p.Price),
			"interval_ns":  int64(p.Interval),
			"metadata":     p.Metadata,
			"ip_asset":     p.IPAsset.Hex(),
			"metadata_uri": p.MetadataURI,
			"created_at":   p.CreatedAt,
			"updated_at":   p.UpdatedAt,
		}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build create plan: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: create plan: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tablePlans).
		Select("provider", "price", "interval_ns", "metadata", "ip_asset", "metadata_uri", "created_at", "updated_at").
		Where(goqu.Ex{"id": int64(planID)}).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: build get plan: %w", err)
	}

	var (
		providerHex string
		price       int64
		intervalNs  int64
		assetHex    string
	)
	p := &plan.Plan{ID: planID}
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&providerHex, &price, &intervalNs, &p.Metadata, &assetHex, &p.MetadataURI, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrPlanNotFound
		}
		return nil, fmt.Errorf("postgres: get plan: %w", err)
	}
	p.Provider = types.HexToAddress(providerHex)
	p.Price = types.Amount(price)
	p.Interval = time.Duration(intervalNs)
	p.IPAsset = types.HexToAddress(assetHex)
	return p, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	query, args, err := goqu.Dialect(dialect).
		Update(tablePlans).
		Set(goqu.Record{
			"provider":     p.Provider.Hex(),
			"price":        int64(p.Price),
			"interval_ns":  int64(p.Interval),
			"metadata":     p.Metadata,
			"ip_asset":     p.IPAsset.Hex(),
			"metadata_uri": p.MetadataURI,
			"updated_at":   p.UpdatedAt,
		}).
		Where(goqu.Ex{"id": int64(p.ID)}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build update plan: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return escrow.ErrPlanNotFound
	}
	return nil
}

func (s *Store) NextPlanID(ctx context.Context) (id.PlanID, error) {
	next, err := s.counterValue(ctx, counterPlan)
	return id.PlanID(next), err
}

// ==================== Subscriptions ====================

func (s *Store) NextSubscriptionID(ctx context.Context) (id.SubscriptionID, error) {
	next, err := s.counterValue(ctx, counterSubscription)
	return id.SubscriptionID(next), err
}

func (s *Store) PutSubscription(ctx context.Context, sub *subscription.Subscription) error {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableSubscriptions).
		Rows(subscriptionRecord(sub)).
		OnConflict(goqu.DoUpdate("id", subscriptionRecord(sub))).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build put subscription: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: put subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableSubscriptions).
		Select("plan_id", "subscriber", "last_payment", "active", "content_ip", "created_at", "updated_at").
		Where(goqu.Ex{"id": int64(subID)}).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: build get subscription: %w", err)
	}

	var (
		planID        int64
		subscriberHex string
		contentHex    string
	)
	sub := &subscription.Subscription{ID: subID}
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&planID, &subscriberHex, &sub.LastPayment, &sub.Active, &contentHex, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("postgres: get subscription: %w", err)
	}
	sub.PlanID = id.PlanID(planID)
	sub.Subscriber = types.HexToAddress(subscriberHex)
	sub.ContentIP = types.HexToAddress(contentHex)
	return sub, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	rec := subscriptionRecord(sub)
	delete(rec, "id")
	query, args, err := goqu.Dialect(dialect).
		Update(tableSubscriptions).
		Set(rec).
		Where(goqu.Ex{"id": int64(sub.ID)}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build update subscription: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) AdvanceSubscriptionID(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE `+tableCounters+` SET value = value + 1 WHERE name = $1`,
		counterSubscription,
	)
	if err != nil {
		return fmt.Errorf("postgres: advance subscription counter: %w", err)
	}
	return nil
}

func subscriptionRecord(sub *subscription.Subscription) goqu.Record {
	return goqu.Record{
		"id":           int64(sub.ID),
		"plan_id":      int64(sub.PlanID),
		"subscriber":   sub.Subscriber.Hex(),
		"last_payment": sub.LastPayment,
		"active":       sub.Active,
		"content_ip":   sub.ContentIP.Hex(),
		"created_at":   sub.CreatedAt,
		"updated_at":   sub.UpdatedAt,
	}
}

// ==================== Balances ====================

func (s *Store) GetBalance(ctx context.Context, user types.Address) (types.Amount, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableBalances).
		Select("balance").
		Where(goqu.Ex{"address": user.Hex()}).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("postgres: build get balance: %w", err)
	}

	var balance int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: get balance: %w", err)
	}
	return types.Amount(balance), nil
}

func (s *Store) SetBalance(ctx context.Context, user types.Address, balance types.Amount) error {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableBalances).
		Rows(goqu.Record{"address": user.Hex(), "balance": int64(balance)}).
		OnConflict(goqu.DoUpdate("address", goqu.Record{"balance": int64(balance)})).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build set balance: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: set balance: %w", err)
	}
	return nil
}

// ==================== Royalties ====================

func (s *Store) CreditRoyalty(ctx context.Context, asset types.Address, amount types.Amount) (types.Amount, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+tableRoyalties+` (ip_asset, balance) VALUES ($1, $2)
		 ON CONFLICT (ip_asset) DO UPDATE SET balance = `+tableRoyalties+`.balance + EXCLUDED.balance
		 RETURNING balance`,
		asset.Hex(), int64(amount),
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("postgres: credit royalty: %w", err)
	}
	return types.Amount(balance), nil
}

func (s *Store) GetRoyaltyBalance(ctx context.Context, asset types.Address) (types.Amount, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableRoyalties).
		Select("balance").
		Where(goqu.Ex{"ip_asset": asset.Hex()}).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("postgres: build get royalty balance: %w", err)
	}

	var balance int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: get royalty balance: %w", err)
	}
	return types.Amount(balance), nil
}

func (s *Store) SetLicenseHolder(ctx context.Context, holder types.Address) error {
	query, args, err := goqu.Dialect(dialect).
		Insert(tableLicenses).
		Rows(goqu.Record{"holder": holder.Hex()}).
		OnConflict(goqu.DoNothing()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: build set license holder: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: set license holder: %w", err)
	}
	return nil
}

func (s *Store) HasLicense(ctx context.Context, holder types.Address) (bool, error) {
	query, args, err := goqu.Dialect(dialect).
		From(tableLicenses).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"holder": holder.Hex()}).
		Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("postgres: build has license: %w", err)
	}

	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("postgres: has license: %w", err)
	}
	return n > 0, nil
}

// ==================== Core ====================

func (s *Store) counterValue(ctx context.Context, name string) (uint64, error) {
	var value int64
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM `+tableCounters+` WHERE name = $1`, name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("postgres: read counter %s: %w", name, err)
	}
	return uint64(value), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
