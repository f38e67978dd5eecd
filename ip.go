package escrow

import (
	"context"
	"errors"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/types"
)

// ──────────────────────────────────────────────────
// IP bookkeeping
// ──────────────────────────────────────────────────

// RegisterPlanIPAsset links an external IP asset and metadata URI to a
// plan. Only the owning provider may call this. Re-registering replaces
// the previous linkage without complaint.
func (l *Ledger) RegisterPlanIPAsset(ctx context.Context, caller types.Address, planID id.PlanID, asset types.Address, metadataURI string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// An absent plan has no owner, so nobody is authorized.
			return ErrNotPlanOwner
		}
		return err
	}
	if p.Provider != caller {
		return ErrNotPlanOwner
	}
	if asset == types.ZeroAddress {
		return ErrNullAddress
	}

	p.IPAsset = asset
	p.MetadataURI = metadataURI
	p.Touch(l.now())
	if err := l.store.UpdatePlan(ctx, p); err != nil {
		return err
	}

	l.plugins.EmitIPAssetRegistered(ctx, plugin.IPAssetEvent{
		PlanID:      planID,
		IPAsset:     asset,
		MetadataURI: metadataURI,
	})
	l.logger.Info("ip asset registered", "plan_id", planID, "ip_asset", asset)
	return nil
}

// RecordLicenseAttachment records that license terms were attached to an
// IP asset in the external licensing system. Pure bookkeeping; nothing is
// persisted beyond the notification.
func (l *Ledger) RecordLicenseAttachment(ctx context.Context, asset types.Address, licenseTermsID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if asset == types.ZeroAddress {
		return ErrNullAddress
	}

	l.plugins.EmitIPLicenseAttached(ctx, plugin.LicenseAttachedEvent{
		IPAsset:        asset,
		LicenseTermsID: licenseTermsID,
	})
	l.logger.Info("ip license attached", "ip_asset", asset, "license_terms_id", licenseTermsID)
	return nil
}

// RecordLicenseMint records that a license token was minted to a
// licensee, marking them as a license holder.
func (l *Ledger) RecordLicenseMint(ctx context.Context, asset, licensee types.Address, tokenID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if asset == types.ZeroAddress || licensee == types.ZeroAddress {
		return ErrNullAddress
	}

	if err := l.store.SetLicenseHolder(ctx, licensee); err != nil {
		return err
	}

	l.plugins.EmitIPLicenseMinted(ctx, plugin.LicenseMintedEvent{
		IPAsset:  asset,
		Licensee: licensee,
		TokenID:  tokenID,
	})
	l.logger.Info("ip license minted", "ip_asset", asset, "licensee", licensee, "token_id", tokenID)
	return nil
}

// DistributeRoyalty accrues a royalty credit for an IP asset. Admin only.
// No funds move; the royalty ledger is a write-only accumulator read by
// the external payout system.
func (l *Ledger) DistributeRoyalty(ctx context.Context, caller, asset, recipient types.Address, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotAdmin
		}
		return err
	}
	if caller != cfg.Admin {
		return ErrNotAdmin
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if recipient == types.ZeroAddress {
		return ErrNullAddress
	}

	newBalance, err := l.store.CreditRoyalty(ctx, asset, amount)
	if err != nil {
		return err
	}

	l.plugins.EmitRoyaltyPaid(ctx, plugin.RoyaltyEvent{
		IPAsset:   asset,
		Recipient: recipient,
		Amount:    amount,
	})
	l.logger.Info("royalty accrued",
		"ip_asset", asset,
		"recipient", recipient,
		"amount", amount,
		"balance", newBalance,
	)
	return nil
}

// RegisterContentIP links content IP created under a subscription. Only
// the subscriber may call this, and only while the subscription is
// active. The linkage may be replaced by a later call.
func (l *Ledger) RegisterContentIP(ctx context.Context, caller types.Address, subID id.SubscriptionID, contentIP types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, err := l.store.GetSubscription(ctx, subID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotSubscriber
		}
		return err
	}
	if sub.Subscriber != caller {
		return ErrNotSubscriber
	}
	if !sub.Active {
		return ErrSubscriptionInactive
	}

	sub.ContentIP = contentIP
	sub.Touch(l.now())
	if err := l.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	l.plugins.EmitContentIPRegistered(ctx, plugin.ContentIPEvent{
		SubscriptionID: subID,
		Creator:        caller,
		IPAsset:        contentIP,
	})
	l.logger.Info("content ip registered", "subscription_id", subID, "creator", caller, "ip_asset", contentIP)
	return nil
}
