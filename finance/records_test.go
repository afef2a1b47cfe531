package finance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// EXPENSES
// =============================================================================

func TestCashExpenseDebitsBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("300")))

	_, err := svc.AddExpense(ctx, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Lunch",
		PaymentMethod: MethodPix, Amount: money("45.50"),
	})

	require.NoError(t, err)
	requireBalance(t, svc, "254.50")
}

func TestCardExpenseLeavesBalanceAlone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("300")))

	_, err := svc.AddExpense(ctx, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Lunch",
		PaymentMethod: "Visa", Amount: money("45.50"),
	})

	require.NoError(t, err)
	requireBalance(t, svc, "300")
}

func TestCashExpenseInsufficientFunds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("10")))

	_, err := svc.AddExpense(ctx, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Lunch",
		PaymentMethod: MethodCash, Amount: money("45.50"),
	})

	require.ErrorIs(t, err, billing.ErrInsufficientBalance)
	requireBalance(t, svc, "10")
}

func TestUpdateExpenseAppliesNetCashDelta(t *testing.T) {
	// Pix 100 edited to Pix 60: the 40 difference comes back.
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("500")))
	id, err := svc.AddExpense(ctx, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Dinner",
		PaymentMethod: MethodPix, Amount: money("100"),
	})
	require.NoError(t, err)
	requireBalance(t, svc, "400")

	require.NoError(t, svc.UpdateExpense(ctx, month(2025, time.March), id, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Dinner",
		PaymentMethod: MethodPix, Amount: money("60"),
	}))

	requireBalance(t, svc, "440")
}

func TestUpdateExpenseMethodSwitchRefundsCash(t *testing.T) {
	// Pix 100 edited to a card charge of 100: the whole debit comes back.
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("500")))
	id, err := svc.AddExpense(ctx, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Dinner",
		PaymentMethod: MethodPix, Amount: money("100"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateExpense(ctx, month(2025, time.March), id, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Dinner",
		PaymentMethod: "Visa", Amount: money("100"),
	}))

	requireBalance(t, svc, "500")
}

func TestDeleteExpenseRefundsCash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("500")))
	id, err := svc.AddExpense(ctx, ExpenseInput{
		Date: "2025-03-05", Category: "Dining", Description: "Dinner",
		PaymentMethod: MethodDirectDebit, Amount: money("75"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExpense(ctx, month(2025, time.March), id))

	requireBalance(t, svc, "500")
}

func TestDeleteMissingExpense(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.DeleteExpense(context.Background(), month(2025, time.March), "nope")

	require.ErrorIs(t, err, billing.ErrRecordNotFound)
}

// =============================================================================
// FIXED BILLS
// =============================================================================

func TestFixedBillStatusRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("500")))
	id, err := svc.AddFixedBill(ctx, FixedBillInput{
		Date: "2025-03-10", Category: "Housing", Description: "Rent",
		PaymentMethod: MethodDirectDebit, Amount: money("200"),
	})
	require.NoError(t, err)
	requireBalance(t, svc, "500") // pending bills never touch the balance

	require.NoError(t, svc.SetFixedStatus(ctx, month(2025, time.March), id, "paid"))
	requireBalance(t, svc, "300")

	// Flipping back refunds; flipping to the same status is a no-op.
	require.NoError(t, svc.SetFixedStatus(ctx, month(2025, time.March), id, "pending"))
	requireBalance(t, svc, "500")
	require.NoError(t, svc.SetFixedStatus(ctx, month(2025, time.March), id, "pending"))
	requireBalance(t, svc, "500")
}

func TestFixedBillPaidWithCardSkipsBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("500")))
	id, err := svc.AddFixedBill(ctx, FixedBillInput{
		Date: "2025-03-10", Category: "Utilities", Description: "Internet",
		PaymentMethod: "Visa", Amount: money("120"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetFixedStatus(ctx, month(2025, time.March), id, "paid"))

	requireBalance(t, svc, "500")
}

func TestDeletePaidFixedBillRefunds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("500")))
	id, err := svc.AddFixedBill(ctx, FixedBillInput{
		Date: "2025-03-10", Category: "Housing", Description: "Rent",
		PaymentMethod: MethodCash, Amount: money("200"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.SetFixedStatus(ctx, month(2025, time.March), id, "paid"))
	requireBalance(t, svc, "300")

	require.NoError(t, svc.DeleteFixedBill(ctx, month(2025, time.March), id))

	requireBalance(t, svc, "500")
}

// =============================================================================
// INCOME
// =============================================================================

func TestIncomeRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddIncome(ctx, IncomeInput{
		Date: "2025-03-01", Description: "Salary", Amount: money("3000"),
	})
	require.NoError(t, err)
	requireBalance(t, svc, "3000")

	require.NoError(t, svc.UpdateIncome(ctx, month(2025, time.March), id, IncomeInput{
		Date: "2025-03-01", Description: "Salary", Amount: money("3200"),
	}))
	requireBalance(t, svc, "3200")

	require.NoError(t, svc.DeleteIncome(ctx, month(2025, time.March), id))
	requireBalance(t, svc, "0")
}

func TestAddIncomeCompensatesFailedCredit(t *testing.T) {
	// GIVEN the balance write refuses after the income record landed
	svc, st := newTestService(t)
	ctx := context.Background()
	boom := errors.New("disk full")
	st.SetFault(func(op, path string) error {
		if op == "set" && strings.Contains(path, "balance") {
			return boom
		}
		return nil
	})

	// WHEN adding income
	_, err := svc.AddIncome(ctx, IncomeInput{
		Date: "2025-03-01", Description: "Salary", Amount: money("3000"),
	})

	// THEN the error surfaces and no record stands without its credit
	require.Error(t, err)
	st.SetFault(nil)
	raw, err := st.Get(ctx, "users/u1/income")
	require.NoError(t, err)
	assert.Nil(t, raw)
	requireBalance(t, svc, "0")
}

func TestDeleteIncomeRestoresRecordOnFailedDebit(t *testing.T) {
	// GIVEN a stored income whose paired debit will refuse
	svc, st := newTestService(t)
	ctx := context.Background()
	id, err := svc.AddIncome(ctx, IncomeInput{
		Date: "2025-03-01", Description: "Salary", Amount: money("3000"),
	})
	require.NoError(t, err)
	boom := errors.New("disk full")
	st.SetFault(func(op, path string) error {
		if op == "set" && strings.Contains(path, "balance") {
			return boom
		}
		return nil
	})

	// WHEN deleting it
	err = svc.DeleteIncome(ctx, month(2025, time.March), id)

	// THEN the record is restored and the balance untouched
	require.Error(t, err)
	st.SetFault(nil)
	raw, getErr := st.Get(ctx, "users/u1/income/2025-03/"+id)
	require.NoError(t, getErr)
	assert.NotNil(t, raw)
	requireBalance(t, svc, "3000")
}

// =============================================================================
// INSTALLMENT PURCHASES
// =============================================================================

func TestReversePurchaseDropsSharesFromTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	addVisa(t, svc)
	id, err := svc.CreatePurchase(ctx, PurchaseInput{
		CardName: "Visa", Description: "TV", TotalAmount: money("900"),
		Installments: 9, StartMonth: "2025-01",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReversePurchase(ctx, id))

	view, err := svc.View(ctx, month(2025, time.February))
	require.NoError(t, err)
	st, ok := view.StatementFor("Visa")
	require.True(t, ok)
	assert.True(t, st.Total.IsZero(), "reversed shares must not bill, got %s", st.Total)
}

func TestSettlePurchaseDebitsRemainder(t *testing.T) {
	// 1200 over 12, settled 2 months in: 2 shares billed, 1000 remains.
	svc, _ := newTestService(t)
	ctx := context.Background()
	addVisa(t, svc)
	require.NoError(t, svc.SetBalance(ctx, money("1500")))
	id, err := svc.CreatePurchase(ctx, PurchaseInput{
		CardName: "Visa", Description: "Sofa", TotalAmount: money("1200"),
		Installments: 12, StartMonth: "2025-01",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SettlePurchase(ctx, id, month(2025, time.March)))

	requireBalance(t, svc, "500")
	ledger, err := svc.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, ledger.Purchases, 1)
	assert.Equal(t, billing.PurchaseSettled, ledger.Purchases[0].Status)
}

func TestSettlePurchaseMatchesAggregatedShares(t *testing.T) {
	// Non-divisible total: the settled cash must equal the total minus the
	// unrounded shares the aggregator already billed, with no cent drift.
	svc, _ := newTestService(t)
	ctx := context.Background()
	addVisa(t, svc)
	require.NoError(t, svc.SetBalance(ctx, money("2000")))
	id, err := svc.CreatePurchase(ctx, PurchaseInput{
		CardName: "Visa", Description: "Chair", TotalAmount: money("1000"),
		Installments: 3, StartMonth: "2025-01",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SettlePurchase(ctx, id, month(2025, time.February)))

	share := billing.InstallmentPurchase{TotalAmount: money("1000"), Installments: 3}.Share()
	remaining := money("1000").Sub(share)
	got, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(money("2000").Sub(remaining)), "balance = %s", got)
}

func TestSettlePurchaseInsufficientFunds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	addVisa(t, svc)
	require.NoError(t, svc.SetBalance(ctx, money("100")))
	id, err := svc.CreatePurchase(ctx, PurchaseInput{
		CardName: "Visa", Description: "Sofa", TotalAmount: money("1200"),
		Installments: 12, StartMonth: "2025-01",
	})
	require.NoError(t, err)

	err = svc.SettlePurchase(ctx, id, month(2025, time.March))

	require.ErrorIs(t, err, billing.ErrInsufficientBalance)
	requireBalance(t, svc, "100")
}

// =============================================================================
// INVESTMENTS
// =============================================================================

func TestInvestmentContributionAndRedemption(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetBalance(ctx, money("2000")))

	_, err := svc.AddInvestment(ctx, InvestmentInput{
		Date: "2025-03-01", Broker: "NuInvest", AssetClass: "Fixed Income",
		Asset: "CDB", Kind: InvestContribution, Amount: money("800"),
	})
	require.NoError(t, err)
	requireBalance(t, svc, "1200")

	_, err = svc.AddInvestment(ctx, InvestmentInput{
		Date: "2025-04-01", Broker: "NuInvest", AssetClass: "Fixed Income",
		Asset: "CDB", Kind: InvestRedemption, Amount: money("300"),
	})
	require.NoError(t, err)
	requireBalance(t, svc, "1500")

	positions, err := svc.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].Invested.Equal(money("500")))
}

func TestInvestmentRejectsUnknownKind(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddInvestment(context.Background(), InvestmentInput{
		Date: "2025-03-01", Broker: "X", AssetClass: "Y", Asset: "Z",
		Kind: "transfer", Amount: money("10"),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrMalformedRecord))
}
