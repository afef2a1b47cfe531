package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// CASH BALANCE
// =============================================================================
// One scalar document at users/{uid}/balance. Adjustments are
// read-increment-write: safe for a single server serializing a user's
// requests, NOT safe under true concurrent writers to the same user. Moving
// to a transactional store would replace adjustBalance with a conditional
// write.

// Balance returns the current accumulated cash balance, zero when the
// document does not exist yet.
func (s *Service) Balance(ctx context.Context) (decimal.Decimal, error) {
	var rec balanceRecord
	ok, err := s.getDoc(ctx, s.balancePath(), &rec)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(rec.Accumulated)
	if err != nil {
		return decimal.Zero, &billing.MalformedRecordError{
			Path:   s.balancePath(),
			Reason: "unparseable accumulated value " + rec.Accumulated,
		}
	}
	return value, nil
}

// SetBalance overwrites the balance outright. Used by seeding and by the
// explicit balance endpoint; paired flows go through adjustBalance.
func (s *Service) SetBalance(ctx context.Context, value decimal.Decimal) error {
	err := s.store.Set(ctx, s.balancePath(), balanceRecord{Accumulated: value.String()})
	if err != nil {
		return s.storeErr("write balance", err)
	}
	return nil
}

// adjustBalance applies delta (positive credits, negative debits).
func (s *Service) adjustBalance(ctx context.Context, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	current, err := s.Balance(ctx)
	if err != nil {
		return err
	}
	next := current.Add(delta)
	if err := s.SetBalance(ctx, next); err != nil {
		return err
	}
	s.log.Debug().
		Str("delta", delta.String()).
		Str("balance", next.String()).
		Msg("balance adjusted")
	return nil
}

// requireFunds fails with InsufficientBalanceError when the balance cannot
// cover amount.
func (s *Service) requireFunds(ctx context.Context, amount decimal.Decimal) error {
	available, err := s.Balance(ctx)
	if err != nil {
		return err
	}
	if available.LessThan(amount) {
		return &billing.InsufficientBalanceError{Available: available, Requested: amount}
	}
	return nil
}

func (s *Service) storeErr(action string, err error) error {
	s.log.Error().Err(err).Msg(action + " failed")
	return fmt.Errorf("%w: %s: %v", billing.ErrStoreUnavailable, action, err)
}
