package finance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// VARIABLE EXPENSES
// =============================================================================
// Cash-affecting expenses pair the document write with a balance debit and
// compensate whichever side landed when the other fails. Card expenses only
// touch the document tree; the card's statement picks them up at
// aggregation.

// AddExpense records an expense in its date's month bucket and returns the
// generated id.
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (string, error) {
	month, err := monthOfDate(in.Date)
	if err != nil {
		return "", err
	}
	if !in.Amount.IsPositive() {
		return "", fmt.Errorf("%w: expense amount must be positive", billing.ErrMalformedRecord)
	}

	cash := CashAffecting(in.PaymentMethod)
	if cash {
		if err := s.requireFunds(ctx, in.Amount); err != nil {
			return "", err
		}
		if err := s.adjustBalance(ctx, in.Amount.Neg()); err != nil {
			return "", err
		}
	}

	rec := expenseRecord{
		Date:          in.Date,
		Category:      in.Category,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Amount:        in.Amount.String(),
	}
	id, err := s.store.Push(ctx, s.expenseMonth(month.Key()), rec)
	if err != nil {
		if cash {
			if rbErr := s.adjustBalance(ctx, in.Amount); rbErr != nil {
				s.log.Error().Err(rbErr).Msg("balance rollback failed after expense write failure")
			}
		}
		return "", s.storeErr("write expense", err)
	}
	return id, nil
}

// UpdateExpense replaces an expense in place. The balance moves by the net
// cash delta across old and new amount and method.
func (s *Service) UpdateExpense(ctx context.Context, month billing.Month, id string, in ExpenseInput) error {
	path := s.expenseMonth(month.Key()) + "/" + id
	var old expenseRecord
	ok, err := s.getDoc(ctx, path, &old)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: expense %s", billing.ErrRecordNotFound, id)
	}
	oldAmount, err := decimal.NewFromString(old.Amount)
	if err != nil {
		return &billing.MalformedRecordError{Path: path, Reason: "unparseable amount"}
	}

	// Net cash movement: refund what the old record held, charge the new.
	delta := decimal.Zero
	if CashAffecting(old.PaymentMethod) {
		delta = delta.Add(oldAmount)
	}
	if CashAffecting(in.PaymentMethod) {
		delta = delta.Sub(in.Amount)
	}
	if delta.IsNegative() {
		if err := s.requireFunds(ctx, delta.Neg()); err != nil {
			return err
		}
	}
	if err := s.adjustBalance(ctx, delta); err != nil {
		return err
	}

	rec := expenseRecord{
		Date:          in.Date,
		Category:      in.Category,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Amount:        in.Amount.String(),
		ReceiptURL:    old.ReceiptURL,
		ReceiptPath:   old.ReceiptPath,
	}
	if err := s.store.Set(ctx, path, rec); err != nil {
		if rbErr := s.adjustBalance(ctx, delta.Neg()); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("balance rollback failed after expense update failure")
		}
		return s.storeErr("update expense", err)
	}
	return nil
}

// DeleteExpense removes an expense, refunding the balance for cash methods
// and dropping any attached receipt.
func (s *Service) DeleteExpense(ctx context.Context, month billing.Month, id string) error {
	path := s.expenseMonth(month.Key()) + "/" + id
	var rec expenseRecord
	ok, err := s.getDoc(ctx, path, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: expense %s", billing.ErrRecordNotFound, id)
	}

	if err := s.store.Delete(ctx, path); err != nil {
		return s.storeErr("delete expense", err)
	}

	if CashAffecting(rec.PaymentMethod) {
		amount, err := decimal.NewFromString(rec.Amount)
		if err == nil {
			if err := s.adjustBalance(ctx, amount); err != nil {
				return err
			}
		}
	}
	if rec.ReceiptPath != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, rec.ReceiptPath); err != nil {
			s.log.Warn().Err(err).Str("path", rec.ReceiptPath).Msg("orphaned receipt blob")
		}
	}
	return nil
}

// AttachReceipt uploads a receipt file and links it to the expense,
// replacing any previous attachment.
func (s *Service) AttachReceipt(ctx context.Context, month billing.Month, id, filename string, r io.Reader) error {
	path := s.expenseMonth(month.Key()) + "/" + id
	var rec expenseRecord
	ok, err := s.getDoc(ctx, path, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: expense %s", billing.ErrRecordNotFound, id)
	}
	if s.blobs == nil {
		return fmt.Errorf("%w: no attachment storage configured", billing.ErrStoreUnavailable)
	}

	ref, err := s.blobs.Upload(ctx, filename, r)
	if err != nil {
		return s.storeErr("upload receipt", err)
	}

	old := rec.ReceiptPath
	err = s.store.Update(ctx, path, map[string]any{
		"receiptUrl":  ref.URL,
		"receiptPath": ref.Path,
	})
	if err != nil {
		s.blobs.Delete(ctx, ref.Path)
		return s.storeErr("link receipt", err)
	}
	if old != "" {
		if err := s.blobs.Delete(ctx, old); err != nil {
			s.log.Warn().Err(err).Str("path", old).Msg("orphaned receipt blob")
		}
	}
	return nil
}

func monthOfDate(date string) (billing.Month, error) {
	when, err := time.Parse("2006-01-02", date)
	if err != nil {
		return billing.Month{}, fmt.Errorf("%w: bad date %q", billing.ErrMalformedRecord, date)
	}
	return billing.MonthOf(when), nil
}
