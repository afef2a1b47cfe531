/*
seed.go - Demo data loader for testing and demonstrations

PURPOSE:

	Populates a user's tree with realistic data: two cards, a few months of
	expenses and fixed bills, an installment purchase mid-flight, income and
	an opening balance. Used by the dev server and by hand when poking at
	the API.

NOTE:

	Seeding overwrites the user's whole tree. Only use in development/demo
	environments.

SEE ALSO:
  - api/handlers.go: the /api/seed endpoint
*/
package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// Seed wipes the user's tree and loads the demo dataset. The displayed
// month anchors the data so demos always show a live statement.
func (s *Service) Seed(ctx context.Context, anchor billing.Month) error {
	if err := s.store.Delete(ctx, s.userPath()); err != nil {
		return s.storeErr("reset user tree", err)
	}
	if err := s.SetBalance(ctx, decimal.NewFromInt(5000)); err != nil {
		return err
	}

	cards := []CardInput{
		{Name: "Visa Infinite", Icon: "visa", ClosingDay: 10, DueDay: 20, CreditLimit: "8000"},
		{Name: "Master Black", Icon: "mastercard", ClosingDay: 25, DueDay: 5, CreditLimit: "12000"},
	}
	for _, card := range cards {
		if _, err := s.CreateCard(ctx, card); err != nil {
			return fmt.Errorf("seed card %s: %w", card.Name, err)
		}
	}

	prev := anchor.Prev()
	expenses := []ExpenseInput{
		{Date: prev.FirstDay().AddDate(0, 0, 4).Format("2006-01-02"), Category: "Groceries",
			Description: "Weekly groceries", PaymentMethod: "Visa Infinite", Amount: decimal.NewFromFloat(312.40)},
		{Date: prev.FirstDay().AddDate(0, 0, 14).Format("2006-01-02"), Category: "Transport",
			Description: "Fuel", PaymentMethod: "Master Black", Amount: decimal.NewFromFloat(180)},
		{Date: anchor.FirstDay().AddDate(0, 0, 2).Format("2006-01-02"), Category: "Dining",
			Description: "Dinner out", PaymentMethod: MethodPix, Amount: decimal.NewFromFloat(96.50)},
		{Date: anchor.FirstDay().AddDate(0, 0, 6).Format("2006-01-02"), Category: "Groceries",
			Description: "Market run", PaymentMethod: "Visa Infinite", Amount: decimal.NewFromFloat(254.10)},
	}
	for _, e := range expenses {
		if _, err := s.AddExpense(ctx, e); err != nil {
			return fmt.Errorf("seed expense %s: %w", e.Description, err)
		}
	}

	fixed := []FixedBillInput{
		{Date: anchor.FirstDay().AddDate(0, 0, 9).Format("2006-01-02"), Category: "Housing",
			Description: "Rent", PaymentMethod: MethodDirectDebit, Amount: decimal.NewFromInt(1800)},
		{Date: anchor.FirstDay().AddDate(0, 0, 11).Format("2006-01-02"), Category: "Utilities",
			Description: "Internet", PaymentMethod: "Visa Infinite", Amount: decimal.NewFromFloat(119.90)},
	}
	for _, f := range fixed {
		if _, err := s.AddFixedBill(ctx, f); err != nil {
			return fmt.Errorf("seed fixed bill %s: %w", f.Description, err)
		}
	}

	if _, err := s.AddIncome(ctx, IncomeInput{
		Date:        anchor.FirstDay().Format("2006-01-02"),
		Description: "Salary",
		Amount:      decimal.NewFromInt(9500),
	}); err != nil {
		return fmt.Errorf("seed income: %w", err)
	}

	// An installment purchase two months in, so the anchor month shows a
	// mid-flight share.
	if _, err := s.CreatePurchase(ctx, PurchaseInput{
		CardName:     "Visa Infinite",
		Description:  "Notebook 12x",
		TotalAmount:  decimal.NewFromInt(3600),
		Installments: 12,
		StartMonth:   anchor.AddMonths(-2).Key(),
	}); err != nil {
		return fmt.Errorf("seed purchase: %w", err)
	}

	if _, err := s.AddInvestment(ctx, InvestmentInput{
		Date:       anchor.FirstDay().Format("2006-01-02"),
		Broker:     "NuInvest",
		AssetClass: "Fixed Income",
		Asset:      "CDB 110%",
		Kind:       InvestContribution,
		Amount:     decimal.NewFromInt(1000),
	}); err != nil {
		return fmt.Errorf("seed investment: %w", err)
	}

	s.log.Info().Str("anchor", anchor.Key()).Msg("demo data seeded")
	return nil
}
