// Package subscription holds the subscription registry model.
package subscription

import (
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Subscription binds one subscriber to one plan. It is created on the first
// successful charge and deactivated — permanently — when a renewal cannot be
// collected. There is no transition back to active.
type Subscription struct {
	types.Entity
	ID          id.SubscriptionID `json:"id"`
	PlanID      id.PlanID         `json:"plan_id"`
	Subscriber  types.Address     `json:"subscriber"`
	LastPayment time.Time         `json:"last_payment"`
	Active      bool              `json:"active"`
	ContentIP   types.Address     `json:"content_ip,omitempty"`
}

// Due reports whether a renewal charge is due at the given time.
func (s *Subscription) Due(now time.Time, interval time.Duration) bool {
	return !now.Before(s.LastPayment.Add(interval))
}
