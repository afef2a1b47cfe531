package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// SUMMARIES
// =============================================================================

// MonthSummary totals one month's money movement.
type MonthSummary struct {
	Month        string          `json:"month"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	FixedPaid    decimal.Decimal `json:"fixedPaid"`
	FixedPending decimal.Decimal `json:"fixedPending"`
	Balance      decimal.Decimal `json:"balance"`
}

// YearSummary holds twelve month summaries plus year totals.
type YearSummary struct {
	Year          int             `json:"year"`
	Months        []MonthSummary  `json:"months"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
}

// Summary totals income, variable expenses and fixed bills for one month.
// Payment markers are excluded from the expense total; the charges they
// settle are already counted on their own months.
func (s *Service) Summary(ctx context.Context, month billing.Month) (MonthSummary, error) {
	sum := MonthSummary{Month: month.Key()}

	var incomes map[string]incomeRecord
	if err := s.getTree(ctx, s.incomeMonth(month.Key()), &incomes); err != nil {
		return MonthSummary{}, err
	}
	for _, rec := range incomes {
		if amount, err := decimal.NewFromString(rec.Amount); err == nil {
			sum.Income = sum.Income.Add(amount)
		}
	}

	var expenses map[string]expenseRecord
	if err := s.getTree(ctx, s.expenseMonth(month.Key()), &expenses); err != nil {
		return MonthSummary{}, err
	}
	for _, rec := range expenses {
		if rec.Category == billing.CategoryBillPayment {
			continue
		}
		if amount, err := decimal.NewFromString(rec.Amount); err == nil {
			sum.Expenses = sum.Expenses.Add(amount)
		}
	}

	var fixed map[string]fixedRecord
	if err := s.getTree(ctx, s.fixedMonth(month.Key()), &fixed); err != nil {
		return MonthSummary{}, err
	}
	for _, rec := range fixed {
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			continue
		}
		if rec.Status == billing.StatusPaid {
			sum.FixedPaid = sum.FixedPaid.Add(amount)
		} else {
			sum.FixedPending = sum.FixedPending.Add(amount)
		}
	}

	balance, err := s.Balance(ctx)
	if err != nil {
		return MonthSummary{}, err
	}
	sum.Balance = balance
	return sum, nil
}

// AnnualSummary assembles the twelve month summaries of a year.
func (s *Service) AnnualSummary(ctx context.Context, year int) (YearSummary, error) {
	out := YearSummary{Year: year}
	for m := 1; m <= 12; m++ {
		month := billing.Month{Year: year, Month: time.Month(m)}
		sum, err := s.Summary(ctx, month)
		if err != nil {
			return YearSummary{}, err
		}
		out.Months = append(out.Months, sum)
		out.TotalIncome = out.TotalIncome.Add(sum.Income)
		out.TotalExpenses = out.TotalExpenses.Add(sum.Expenses).Add(sum.FixedPaid).Add(sum.FixedPending)
	}
	return out, nil
}
