package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// FIXED BILLS
// =============================================================================
// Fixed bills carry a pending/paid status of their own. The cash balance
// moves when the status flips to paid with a cash method, and moves back
// when it flips to pending again or a paid bill is deleted.

// AddFixedBill records a fixed bill, always pending. Nothing touches the
// balance until the bill is marked paid.
func (s *Service) AddFixedBill(ctx context.Context, in FixedBillInput) (string, error) {
	month, err := monthOfDate(in.Date)
	if err != nil {
		return "", err
	}
	if !in.Amount.IsPositive() {
		return "", fmt.Errorf("%w: bill amount must be positive", billing.ErrMalformedRecord)
	}

	rec := fixedRecord{
		Date:          in.Date,
		Category:      in.Category,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Amount:        in.Amount.String(),
		Status:        billing.StatusPending,
	}
	id, err := s.store.Push(ctx, s.fixedMonth(month.Key()), rec)
	if err != nil {
		return "", s.storeErr("write fixed bill", err)
	}
	return id, nil
}

// SetFixedStatus flips a fixed bill between pending and paid. Paying with a
// cash method debits the balance; unpaying refunds it.
func (s *Service) SetFixedStatus(ctx context.Context, month billing.Month, id, status string) error {
	status = strings.ToLower(status)
	if status != billing.StatusPaid && status != billing.StatusPending {
		return fmt.Errorf("%w: status must be paid or pending", billing.ErrMalformedRecord)
	}

	path := s.fixedMonth(month.Key()) + "/" + id
	var rec fixedRecord
	ok, err := s.getDoc(ctx, path, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: fixed bill %s", billing.ErrRecordNotFound, id)
	}
	if strings.ToLower(rec.Status) == status {
		return nil
	}

	amount, err := decimal.NewFromString(rec.Amount)
	if err != nil {
		return &billing.MalformedRecordError{Path: path, Reason: "unparseable amount"}
	}

	cash := CashAffecting(rec.PaymentMethod)
	if cash && status == billing.StatusPaid {
		if err := s.requireFunds(ctx, amount); err != nil {
			return err
		}
		if err := s.adjustBalance(ctx, amount.Neg()); err != nil {
			return err
		}
	}

	if err := s.store.Update(ctx, path, map[string]any{"status": status}); err != nil {
		if cash && status == billing.StatusPaid {
			if rbErr := s.adjustBalance(ctx, amount); rbErr != nil {
				s.log.Error().Err(rbErr).Msg("balance rollback failed after status update failure")
			}
		}
		return s.storeErr("update fixed bill status", err)
	}

	if cash && status == billing.StatusPending {
		return s.adjustBalance(ctx, amount)
	}
	return nil
}

// UpdateFixedBill replaces a fixed bill's fields. When the bill is already
// paid with a cash method, the balance moves by the net delta.
func (s *Service) UpdateFixedBill(ctx context.Context, month billing.Month, id string, in FixedBillInput) error {
	path := s.fixedMonth(month.Key()) + "/" + id
	var old fixedRecord
	ok, err := s.getDoc(ctx, path, &old)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: fixed bill %s", billing.ErrRecordNotFound, id)
	}
	oldAmount, err := decimal.NewFromString(old.Amount)
	if err != nil {
		return &billing.MalformedRecordError{Path: path, Reason: "unparseable amount"}
	}

	delta := decimal.Zero
	if strings.ToLower(old.Status) == billing.StatusPaid {
		if CashAffecting(old.PaymentMethod) {
			delta = delta.Add(oldAmount)
		}
		if CashAffecting(in.PaymentMethod) {
			delta = delta.Sub(in.Amount)
		}
	}
	if delta.IsNegative() {
		if err := s.requireFunds(ctx, delta.Neg()); err != nil {
			return err
		}
	}
	if err := s.adjustBalance(ctx, delta); err != nil {
		return err
	}

	rec := fixedRecord{
		Date:          in.Date,
		Category:      in.Category,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Amount:        in.Amount.String(),
		Status:        old.Status,
	}
	if err := s.store.Set(ctx, path, rec); err != nil {
		if rbErr := s.adjustBalance(ctx, delta.Neg()); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("balance rollback failed after fixed bill update failure")
		}
		return s.storeErr("update fixed bill", err)
	}
	return nil
}

// DeleteFixedBill removes a fixed bill, refunding the balance when it was
// paid with a cash method.
func (s *Service) DeleteFixedBill(ctx context.Context, month billing.Month, id string) error {
	path := s.fixedMonth(month.Key()) + "/" + id
	var rec fixedRecord
	ok, err := s.getDoc(ctx, path, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: fixed bill %s", billing.ErrRecordNotFound, id)
	}

	if err := s.store.Delete(ctx, path); err != nil {
		return s.storeErr("delete fixed bill", err)
	}

	if strings.ToLower(rec.Status) == billing.StatusPaid && CashAffecting(rec.PaymentMethod) {
		if amount, err := decimal.NewFromString(rec.Amount); err == nil {
			return s.adjustBalance(ctx, amount)
		}
	}
	return nil
}
