package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// INCOME
// =============================================================================
// Income always moves the cash balance: adding credits, deleting debits,
// editing applies the difference.

func (s *Service) AddIncome(ctx context.Context, in IncomeInput) (string, error) {
	month, err := monthOfDate(in.Date)
	if err != nil {
		return "", err
	}
	if !in.Amount.IsPositive() {
		return "", fmt.Errorf("%w: income amount must be positive", billing.ErrMalformedRecord)
	}

	rec := incomeRecord{Date: in.Date, Description: in.Description, Amount: in.Amount.String()}
	id, err := s.store.Push(ctx, s.incomeMonth(month.Key()), rec)
	if err != nil {
		return "", s.storeErr("write income", err)
	}
	if err := s.adjustBalance(ctx, in.Amount); err != nil {
		// The credit never landed, so the record must not stand alone.
		if rbErr := s.store.Delete(ctx, s.incomeMonth(month.Key())+"/"+id); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("income rollback failed after balance credit failure")
		}
		return "", err
	}
	return id, nil
}

func (s *Service) UpdateIncome(ctx context.Context, month billing.Month, id string, in IncomeInput) error {
	path := s.incomeMonth(month.Key()) + "/" + id
	var old incomeRecord
	ok, err := s.getDoc(ctx, path, &old)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: income %s", billing.ErrRecordNotFound, id)
	}
	oldAmount, err := decimal.NewFromString(old.Amount)
	if err != nil {
		return &billing.MalformedRecordError{Path: path, Reason: "unparseable amount"}
	}

	rec := incomeRecord{Date: in.Date, Description: in.Description, Amount: in.Amount.String()}
	if err := s.store.Set(ctx, path, rec); err != nil {
		return s.storeErr("update income", err)
	}
	if err := s.adjustBalance(ctx, in.Amount.Sub(oldAmount)); err != nil {
		if rbErr := s.store.Set(ctx, path, old); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("income rollback failed after balance adjust failure")
		}
		return err
	}
	return nil
}

func (s *Service) DeleteIncome(ctx context.Context, month billing.Month, id string) error {
	path := s.incomeMonth(month.Key()) + "/" + id
	var rec incomeRecord
	ok, err := s.getDoc(ctx, path, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: income %s", billing.ErrRecordNotFound, id)
	}

	if err := s.store.Delete(ctx, path); err != nil {
		return s.storeErr("delete income", err)
	}
	if amount, err := decimal.NewFromString(rec.Amount); err == nil {
		if err := s.adjustBalance(ctx, amount.Neg()); err != nil {
			if rbErr := s.store.Set(ctx, path, rec); rbErr != nil {
				s.log.Error().Err(rbErr).Msg("income restore failed after balance debit failure")
			}
			return err
		}
	}
	return nil
}
