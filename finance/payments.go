package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// BILL PAYMENT
// =============================================================================
// Paying a bill writes a marker expense into the paid month's bucket; the
// rollover engine reads that marker back on the next aggregation. Uniqueness
// is enforced here at write time; the aggregation side still dedups markers
// written before this rule existed.

// PayBill marks the card's bill for month as paid, debiting the cash
// balance by amount.
func (s *Service) PayBill(ctx context.Context, cardName string, amount decimal.Decimal, month billing.Month) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", billing.ErrNothingToPay)
	}
	if err := s.requireFunds(ctx, amount); err != nil {
		return err
	}

	paid, err := s.isPaid(ctx, cardName, month)
	if err != nil {
		return err
	}
	if paid {
		return fmt.Errorf("%w: %s %s", billing.ErrBillAlreadyPaid, cardName, month.Key())
	}

	if err := s.adjustBalance(ctx, amount.Neg()); err != nil {
		return err
	}

	marker := expenseRecord{
		Date:          month.FirstDay().Format("2006-01-02"),
		Category:      billing.CategoryBillPayment,
		Description:   billing.BillPaymentDescription(cardName),
		PaymentMethod: MethodCashBalance,
		Amount:        amount.String(),
	}
	if _, err := s.store.Push(ctx, s.expenseMonth(month.Key()), marker); err != nil {
		// Compensate: the debit already landed, put it back before failing.
		if rbErr := s.adjustBalance(ctx, amount); rbErr != nil {
			s.log.Error().Err(rbErr).
				Str("card", cardName).
				Str("amount", amount.String()).
				Msg("balance rollback failed after marker write failure")
		}
		return s.storeErr("write payment marker", err)
	}

	s.log.Info().
		Str("card", cardName).
		Str("month", month.Key()).
		Str("amount", amount.String()).
		Msg("bill paid")
	return nil
}

// PayPartial records a partial payment against the card's bill. Partial
// markers never flip the bill to paid, so charges keep rolling forward.
func (s *Service) PayPartial(ctx context.Context, cardName string, amount decimal.Decimal, month billing.Month) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", billing.ErrNothingToPay)
	}
	if err := s.requireFunds(ctx, amount); err != nil {
		return err
	}
	if err := s.adjustBalance(ctx, amount.Neg()); err != nil {
		return err
	}

	marker := expenseRecord{
		Date:          month.FirstDay().Format("2006-01-02"),
		Category:      billing.CategoryBillPayment,
		Description:   billing.PartialPaymentDescription(cardName),
		PaymentMethod: MethodCashBalance,
		Amount:        amount.String(),
	}
	if _, err := s.store.Push(ctx, s.expenseMonth(month.Key()), marker); err != nil {
		if rbErr := s.adjustBalance(ctx, amount); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("balance rollback failed after partial marker failure")
		}
		return s.storeErr("write partial payment marker", err)
	}

	s.log.Info().
		Str("card", cardName).
		Str("month", month.Key()).
		Str("amount", amount.String()).
		Msg("partial payment recorded")
	return nil
}

// ReverseBillPayment undoes PayBill: deletes the marker and credits the
// balance by the recorded amount. Searches current expenses first, then the
// legacy pending storage.
func (s *Service) ReverseBillPayment(ctx context.Context, cardName string, month billing.Month) error {
	wanted := billing.BillPaymentDescription(cardName)

	var expenses map[string]expenseRecord
	if err := s.getTree(ctx, s.expenseMonth(month.Key()), &expenses); err != nil {
		return err
	}
	for _, id := range sortedKeys(expenses) {
		rec := expenses[id]
		if rec.Category != billing.CategoryBillPayment || rec.Description != wanted {
			continue
		}
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			return &billing.MalformedRecordError{
				Path:   s.expenseMonth(month.Key()) + "/" + id,
				Reason: "unparseable marker amount " + rec.Amount,
			}
		}
		if err := s.store.Delete(ctx, s.expenseMonth(month.Key())+"/"+id); err != nil {
			return s.storeErr("delete payment marker", err)
		}
		return s.creditReversal(ctx, cardName, month, amount)
	}

	var pending map[string]pendingRecord
	if err := s.getTree(ctx, s.pendingMonth(month.Key()), &pending); err != nil {
		return err
	}
	for _, id := range sortedKeys(pending) {
		rec := pending[id]
		if rec.Description != wanted || strings.ToLower(rec.Status) != billing.StatusPaid {
			continue
		}
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			amount = decimal.Zero
		}
		if err := s.store.Delete(ctx, s.pendingMonth(month.Key())+"/"+id); err != nil {
			return s.storeErr("delete legacy payment marker", err)
		}
		return s.creditReversal(ctx, cardName, month, amount)
	}

	return fmt.Errorf("%w: %s %s", billing.ErrPaymentRecordNotFound, cardName, month.Key())
}

func (s *Service) creditReversal(ctx context.Context, cardName string, month billing.Month, amount decimal.Decimal) error {
	if err := s.adjustBalance(ctx, amount); err != nil {
		return err
	}
	s.log.Info().
		Str("card", cardName).
		Str("month", month.Key()).
		Str("amount", amount.String()).
		Msg("bill payment reversed")
	return nil
}

// isPaid checks both marker styles for (cardName, month) before writing a
// new marker.
func (s *Service) isPaid(ctx context.Context, cardName string, month billing.Month) (bool, error) {
	wanted := billing.BillPaymentDescription(cardName)

	var expenses map[string]expenseRecord
	if err := s.getTree(ctx, s.expenseMonth(month.Key()), &expenses); err != nil {
		return false, err
	}
	for _, rec := range expenses {
		if rec.Category == billing.CategoryBillPayment && rec.Description == wanted {
			return true, nil
		}
	}

	var pending map[string]pendingRecord
	if err := s.getTree(ctx, s.pendingMonth(month.Key()), &pending); err != nil {
		return false, err
	}
	for _, rec := range pending {
		if rec.Description == wanted && strings.ToLower(rec.Status) == billing.StatusPaid {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// SINGLE LINE ITEM PAYMENT
// =============================================================================

// PayLineItem pays one statement line ahead of the bill: records a dedicated
// expense, then tries to match the line to an installment purchase by
// case-insensitive substring and amount within 1%. A hit writes a paid
// marker for that month's share so aggregation strikes the line; no match is
// fine, the expense alone still stands.
func (s *Service) PayLineItem(ctx context.Context, description string, amount decimal.Decimal, month billing.Month) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", billing.ErrNothingToPay)
	}
	if err := s.requireFunds(ctx, amount); err != nil {
		return err
	}
	if err := s.adjustBalance(ctx, amount.Neg()); err != nil {
		return err
	}

	record := expenseRecord{
		Date:          month.FirstDay().Format("2006-01-02"),
		Category:      billing.CategoryBillPayment,
		Description:   "Payment for item " + description,
		PaymentMethod: MethodCashBalance,
		Amount:        amount.String(),
	}
	if _, err := s.store.Push(ctx, s.expenseMonth(month.Key()), record); err != nil {
		if rbErr := s.adjustBalance(ctx, amount); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("balance rollback failed after line item payment failure")
		}
		return s.storeErr("write line item payment", err)
	}

	if err := s.flagMatchingInstallment(ctx, description, amount, month); err != nil {
		// Best effort only. The payment stands either way.
		s.log.Warn().Err(err).Msg("installment match skipped")
	}
	return nil
}

func (s *Service) flagMatchingInstallment(ctx context.Context, description string, amount decimal.Decimal, month billing.Month) error {
	ledger, err := s.LoadLedger(ctx)
	if err != nil {
		return err
	}

	needle := strings.ToLower(strings.TrimSpace(description))
	for _, p := range ledger.Purchases {
		if p.Status != billing.PurchaseActive {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Description), needle) &&
			!strings.Contains(needle, strings.ToLower(p.Description)) {
			continue
		}
		share := p.Share()
		if share.IsZero() || !withinOnePercent(share, amount) {
			continue
		}

		number := month.MonthsSince(p.StartMonth) + 1
		if number < 1 || number > p.Installments {
			continue
		}
		marker := markerRecord{
			PurchaseID: p.ID,
			Number:     number,
			Amount:     amount.String(),
			Status:     billing.StatusPaid,
		}
		path := s.markersMonth(month.Key()) + "/" + fmt.Sprintf("%s:%d", p.ID, number)
		if err := s.store.Set(ctx, path, marker); err != nil {
			return s.storeErr("write installment marker", err)
		}
		s.log.Info().
			Str("purchase", p.ID).
			Int("number", number).
			Msg("line item matched installment share")
		return nil
	}
	return nil
}

func withinOnePercent(expected, got decimal.Decimal) bool {
	diff := expected.Sub(got).Abs()
	tolerance := expected.Abs().Mul(decimal.NewFromFloat(0.01))
	return diff.LessThanOrEqual(tolerance)
}
