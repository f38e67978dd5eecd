package mongo

import (
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Persistence models. Addresses are stored as checksummed hex strings,
// amounts as int64 (smallest currency unit), intervals as nanoseconds.

type configModel struct {
	ID            string    `bson:"_id"`
	Admin         string    `bson:"admin"`
	FeeBps        int64     `bson:"fee_bps"`
	InitializedAt time.Time `bson:"initialized_at"`
}

const configDocID = "config"

type providerModel struct {
	Address   string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toProviderModel(p *provider.Provider) *providerModel {
	return &providerModel{
		Address:   p.Address.Hex(),
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromProviderModel(m *providerModel) *provider.Provider {
	return &provider.Provider{
		Entity:  types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Address: types.HexToAddress(m.Address),
		Name:    m.Name,
	}
}

type planModel struct {
	ID          int64     `bson:"_id"`
	Provider    string    `bson:"provider"`
	Price       int64     `bson:"price"`
	IntervalNs  int64     `bson:"interval_ns"`
	Metadata    string    `bson:"metadata"`
	IPAsset     string    `bson:"ip_asset"`
	MetadataURI string    `bson:"metadata_uri"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	return &planModel{
		ID:          int64(p.ID),
		Provider:    p.Provider.Hex(),
		Price:       int64(p.Price),
		IntervalNs:  int64(p.Interval),
		Metadata:    p.Metadata,
		IPAsset:     p.IPAsset.Hex(),
		MetadataURI: p.MetadataURI,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) *plan.Plan {
	return &plan.Plan{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          id.PlanID(m.ID),
		Provider:    types.HexToAddress(m.Provider),
		Price:       types.Amount(m.Price),
		Interval:    time.Duration(m.IntervalNs),
		Metadata:    m.Metadata,
		IPAsset:     types.HexToAddress(m.IPAsset),
		MetadataURI: m.MetadataURI,
	}
}

type subscriptionModel struct {
	ID          int64     `bson:"_id"`
	PlanID      int64     `bson:"plan_id"`
	Subscriber  string    `bson:"subscriber"`
	LastPayment time.Time `bson:"last_payment"`
	Active      bool      `bson:"active"`
	ContentIP   string    `bson:"content_ip"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:          int64(s.ID),
		PlanID:      int64(s.PlanID),
		Subscriber:  s.Subscriber.Hex(),
		LastPayment: s.LastPayment,
		Active:      s.Active,
		ContentIP:   s.ContentIP.Hex(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          id.SubscriptionID(m.ID),
		PlanID:      id.PlanID(m.PlanID),
		Subscriber:  types.HexToAddress(m.Subscriber),
		LastPayment: m.LastPayment,
		Active:      m.Active,
		ContentIP:   types.HexToAddress(m.ContentIP),
	}
}

type balanceModel struct {
	Address string `bson:"_id"`
	Balance int64  `bson:"balance"`
}

type royaltyModel struct {
	IPAsset string `bson:"_id"`
	Balance int64  `bson:"balance"`
}

type licenseModel struct {
	Holder string `bson:"_id"`
}

type counterModel struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}
