package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// INSTALLMENT PURCHASES
// =============================================================================
// The master record is the source of truth; monthly shares are derived at
// aggregation, never materialized. Status transitions:
//
//	active -> reversed   (store error correction, shares vanish from totals)
//	active -> settled    (pay off the remainder early, in cash)

// CreatePurchase stores an installment master and returns its id.
func (s *Service) CreatePurchase(ctx context.Context, in PurchaseInput) (string, error) {
	if in.Installments < 1 {
		return "", fmt.Errorf("%w: installment count must be at least 1", billing.ErrMalformedRecord)
	}
	if !in.TotalAmount.IsPositive() {
		return "", fmt.Errorf("%w: total amount must be positive", billing.ErrMalformedRecord)
	}
	start, err := billing.ParseMonth(in.StartMonth)
	if err != nil {
		return "", fmt.Errorf("%w: bad start month %q", billing.ErrMalformedRecord, in.StartMonth)
	}

	rec := purchaseRecord{
		CardName:     in.CardName,
		Description:  in.Description,
		TotalAmount:  in.TotalAmount.String(),
		Installments: in.Installments,
		StartMonth:   start.Key(),
		Status:       string(billing.PurchaseActive),
	}
	id, err := s.store.Push(ctx, s.installmentsPath(), rec)
	if err != nil {
		return "", s.storeErr("write installment purchase", err)
	}
	s.log.Info().
		Str("purchase", id).
		Str("card", in.CardName).
		Int("installments", in.Installments).
		Msg("installment purchase created")
	return id, nil
}

// ReversePurchase marks a purchase reversed. The master stays in history;
// remaining shares stop contributing to any bill.
func (s *Service) ReversePurchase(ctx context.Context, id string) error {
	if err := s.requirePurchase(ctx, id); err != nil {
		return err
	}
	err := s.store.Update(ctx, s.purchasePath(id), map[string]any{
		"status": string(billing.PurchaseReversed),
	})
	if err != nil {
		return s.storeErr("reverse installment purchase", err)
	}
	return nil
}

// SettlePurchase pays off the remaining shares in cash: debits the balance
// by the remainder and records a settlement-payment expense in the current
// bucket, then flips the master to settled.
func (s *Service) SettlePurchase(ctx context.Context, id string, asOf billing.Month) error {
	var rec purchaseRecord
	ok, err := s.getDoc(ctx, s.purchasePath(id), &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: purchase %s", billing.ErrRecordNotFound, id)
	}
	if rec.Status != string(billing.PurchaseActive) {
		return fmt.Errorf("%w: purchase %s is %s", billing.ErrMalformedRecord, id, rec.Status)
	}

	total, err := decimal.NewFromString(rec.TotalAmount)
	if err != nil {
		return &billing.MalformedRecordError{Path: s.purchasePath(id), Reason: "unparseable total"}
	}
	start, err := billing.ParseMonth(rec.StartMonth)
	if err != nil {
		return &billing.MalformedRecordError{Path: s.purchasePath(id), Reason: "bad start month"}
	}

	// The same share the aggregator bills each month, so the settled cash
	// equals the sum of the unbilled shares to the cent.
	share := billing.InstallmentPurchase{
		TotalAmount:  total,
		Installments: rec.Installments,
	}.Share()
	elapsed := asOf.MonthsSince(start)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > rec.Installments {
		elapsed = rec.Installments
	}
	remaining := total.Sub(share.Mul(decimal.NewFromInt(int64(elapsed))))
	if !remaining.IsPositive() {
		return fmt.Errorf("%w: nothing left to settle on %s", billing.ErrNothingToPay, id)
	}

	if err := s.requireFunds(ctx, remaining); err != nil {
		return err
	}
	if err := s.adjustBalance(ctx, remaining.Neg()); err != nil {
		return err
	}

	payment := expenseRecord{
		Date:          asOf.FirstDay().Format("2006-01-02"),
		Category:      billing.CategoryBillPayment,
		Description:   "Settlement of " + rec.Description,
		PaymentMethod: MethodCashBalance,
		Amount:        remaining.String(),
	}
	if _, err := s.store.Push(ctx, s.expenseMonth(asOf.Key()), payment); err != nil {
		if rbErr := s.adjustBalance(ctx, remaining); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("balance rollback failed after settlement write failure")
		}
		return s.storeErr("write settlement payment", err)
	}

	err = s.store.Update(ctx, s.purchasePath(id), map[string]any{
		"status": string(billing.PurchaseSettled),
	})
	if err != nil {
		return s.storeErr("mark purchase settled", err)
	}

	s.log.Info().
		Str("purchase", id).
		Str("remaining", remaining.String()).
		Msg("installment purchase settled")
	return nil
}

func (s *Service) requirePurchase(ctx context.Context, id string) error {
	var rec purchaseRecord
	ok, err := s.getDoc(ctx, s.purchasePath(id), &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: purchase %s", billing.ErrRecordNotFound, id)
	}
	return nil
}
