// Package mongo provides a MongoDB-backed Store using the official driver.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Collection name constants.
const (
	colConfig        = "escrow_config"
	colProviders     = "escrow_providers"
	colPlans         = "escrow_plans"
	colSubscriptions = "escrow_subscriptions"
	colBalances      = "escrow_balances"
	colRoyalties     = "escrow_royalties"
	colLicenses      = "escrow_licenses"
	colCounters      = "escrow_counters"
)

const (
	counterPlan         = "plan"
	counterSubscription = "subscription"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and returns a Store. Call Migrate before use.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("escrow/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("escrow/mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// NewFromDatabase wraps an existing database handle. Close becomes a
// no-op; the caller owns the client lifecycle.
func NewFromDatabase(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Migrate seeds the identifier counters. Collections are keyed by _id, so
// no secondary indexes are needed.
func (s *Store) Migrate(ctx context.Context) error {
	// Counters start at 1: the stored value is the next identifier.
	for _, name := range []string{counterPlan, counterSubscription} {
		_, err := s.db.Collection(colCounters).UpdateOne(ctx,
			bson.M{"_id": name},
			bson.M{"$setOnInsert": bson.M{"value": int64(1)}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("escrow/mongo: migrate counter %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return s.db.Client().Ping(ctx, nil)
	}
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client if this store owns it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// ==================== Config ====================

func (s *Store) SaveConfig(ctx context.Context, cfg *types.Config) error {
	_, err := s.db.Collection(colConfig).InsertOne(ctx, &configModel{
		ID:            configDocID,
		Admin:         cfg.Admin.Hex(),
		FeeBps:        int64(cfg.FeeBps),
		InitializedAt: cfg.InitializedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrAlreadyInitialized
		}
		return fmt.Errorf("escrow/mongo: save config: %w", err)
	}
	return nil
}

func (s *Store) GetConfig(ctx context.Context) (*types.Config, error) {
	var m configModel
	err := s.db.Collection(colConfig).FindOne(ctx, bson.M{"_id": configDocID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrConfigNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get config: %w", err)
	}
	return &types.Config{
		Admin:         types.HexToAddress(m.Admin),
		FeeBps:        uint64(m.FeeBps),
		InitializedAt: m.InitializedAt,
	}, nil
}

// ==================== Providers ====================

func (s *Store) CreateProvider(ctx context.Context, p *provider.Provider) error {
	_, err := s.db.Collection(colProviders).InsertOne(ctx, toProviderModel(p))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrProviderExists
		}
		return fmt.Errorf("escrow/mongo: create provider: %w", err)
	}
	return nil
}

func (s *Store) GetProvider(ctx context.Context, addr types.Address) (*provider.Provider, error) {
	var m providerModel
	err := s.db.Collection(colProviders).FindOne(ctx, bson.M{"_id": addr.Hex()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrProviderNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get provider: %w", err)
	}
	return fromProviderModel(&m), nil
}

// ==================== Plans ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	assigned, err := s.advanceCounter(ctx, counterPlan)
	if err != nil {
		return err
	}
	p.ID = id.PlanID(assigned)

	if _, err := s.db.Collection(colPlans).InsertOne(ctx, toPlanModel(p)); err != nil {
		return fmt.Errorf("escrow/mongo: create plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	var m planModel
	err := s.db.Collection(colPlans).FindOne(ctx, bson.M{"_id": int64(planID)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrPlanNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get plan: %w", err)
	}
	return fromPlanModel(&m), nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	res, err := s.db.Collection(colPlans).ReplaceOne(ctx, bson.M{"_id": int64(p.ID)}, toPlanModel(p))
	if err != nil {
		return fmt.Errorf("escrow/mongo: update plan: %w", err)
	}
	if res.MatchedCount == 0 {
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
	_, err := s.db.Collection(colSubscriptions).ReplaceOne(ctx,
		bson.M{"_id": int64(sub.ID)},
		toSubscriptionModel(sub),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("escrow/mongo: put subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.db.Collection(colSubscriptions).FindOne(ctx, bson.M{"_id": int64(subID)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m), nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	res, err := s.db.Collection(colSubscriptions).ReplaceOne(ctx,
		bson.M{"_id": int64(sub.ID)},
		toSubscriptionModel(sub),
	)
	if err != nil {
		return fmt.Errorf("escrow/mongo: update subscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) AdvanceSubscriptionID(ctx context.Context) error {
	_, err := s.advanceCounter(ctx, counterSubscription)
	return err
}

// ==================== Balances ====================

func (s *Store) GetBalance(ctx context.Context, user types.Address) (types.Amount, error) {
	var m balanceModel
	err := s.db.Collection(colBalances).FindOne(ctx, bson.M{"_id": user.Hex()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("escrow/mongo: get balance: %w", err)
	}
	return types.Amount(m.Balance), nil
}

func (s *Store) SetBalance(ctx context.Context, user types.Address, balance types.Amount) error {
	_, err := s.db.Collection(colBalances).ReplaceOne(ctx,
		bson.M{"_id": user.Hex()},
		&balanceModel{Address: user.Hex(), Balance: int64(balance)},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("escrow/mongo: set balance: %w", err)
	}
	return nil
}

// ==================== Royalties ====================

func (s *Store) CreditRoyalty(ctx context.Context, asset types.Address, amount types.Amount) (types.Amount, error) {
	var m royaltyModel
	err := s.db.Collection(colRoyalties).FindOneAndUpdate(ctx,
		bson.M{"_id": asset.Hex()},
		bson.M{"$inc": bson.M{"balance": int64(amount)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return 0, fmt.Errorf("escrow/mongo: credit royalty: %w", err)
	}
	return types.Amount(m.Balance), nil
}

func (s *Store) GetRoyaltyBalance(ctx context.Context, asset types.Address) (types.Amount, error) {
	var m royaltyModel
	err := s.db.Collection(colRoyalties).FindOne(ctx, bson.M{"_id": asset.Hex()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("escrow/mongo: get royalty balance: %w", err)
	}
	return types.Amount(m.Balance), nil
}

func (s *Store) SetLicenseHolder(ctx context.Context, holder types.Address) error {
	_, err := s.db.Collection(colLicenses).ReplaceOne(ctx,
		bson.M{"_id": holder.Hex()},
		&licenseModel{Holder: holder.Hex()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("escrow/mongo: set license holder: %w", err)
	}
	return nil
}

func (s *Store) HasLicense(ctx context.Context, holder types.Address) (bool, error) {
	err := s.db.Collection(colLicenses).FindOne(ctx, bson.M{"_id": holder.Hex()}).Err()
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("escrow/mongo: has license: %w", err)
	}
	return true, nil
}

// ==================== Counters ====================

// advanceCounter increments a counter and returns the pre-increment value,
// i.e. the identifier being assigned. Migrate seeds counters at 1; an
// unseeded counter is initialized on first use.
func (s *Store) advanceCounter(ctx context.Context, name string) (uint64, error) {
	var m counterModel
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			_, insErr := s.db.Collection(colCounters).InsertOne(ctx, &counterModel{Name: name, Value: 2})
			if insErr != nil {
				return 0, fmt.Errorf("escrow/mongo: seed counter %s: %w", name, insErr)
			}
			return 1, nil
		}
		return 0, fmt.Errorf("escrow/mongo: advance counter %s: %w", name, err)
	}
	return uint64(m.Value), nil
}

func (s *Store) counterValue(ctx context.Context, name string) (uint64, error) {
	var m counterModel
	err := s.db.Collection(colCounters).FindOne(ctx, bson.M{"_id": name}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("escrow/mongo: read counter %s: %w", name, err)
	}
	return uint64(m.Value), nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
