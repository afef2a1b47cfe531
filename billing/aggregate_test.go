package billing_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func addCharge(l *billing.Ledger, d time.Time, desc, method string, amount float64) {
	m := billing.MonthOf(d)
	l.ChargesByMonth[m] = append(l.ChargesByMonth[m], billing.Charge{
		ID:            desc,
		Date:          d,
		Category:      "Shopping",
		Description:   desc,
		PaymentMethod: method,
		Amount:        money(amount),
		Source:        billing.SourceVariable,
	})
}

func statement(t *testing.T, v billing.View, card string) billing.Statement {
	t.Helper()
	st, ok := v.StatementFor(card)
	if !ok {
		t.Fatalf("no statement for card %q", card)
	}
	return st
}

func lineWith(st billing.Statement, substr string) (billing.LineItem, bool) {
	for _, ln := range st.Lines {
		if strings.Contains(ln.Description, substr) {
			return ln, true
		}
	}
	return billing.LineItem{}, false
}

// =============================================================================
// SCENARIO A - Cycle boundary through the aggregator
// =============================================================================

func TestAggregate_ScenarioA_ClosingDayBoundary(t *testing.T) {
	// GIVEN: Visa closes on day 10
	//        a charge of 100 on 2024-03-09 and one of 50 on 2024-03-10
	// THEN:  March's bill totals 100, April's bill totals 50

	ledger := billing.NewLedger()
	addCharge(ledger, date(2024, time.March, 9), "groceries", "Visa", 100)
	addCharge(ledger, date(2024, time.March, 10), "fuel", "Visa", 50)
	cards := []billing.Card{visa()}

	march := billing.Aggregate(ledger, cards, month(2024, time.March))
	st := statement(t, march, "Visa")
	if !st.Total.Equal(money(100)) {
		t.Errorf("March total: expected 100, got %s", st.Total)
	}

	april := billing.Aggregate(ledger, cards, month(2024, time.April))
	st = statement(t, april, "Visa")
	if !st.Total.Equal(money(50)) {
		t.Errorf("April total: expected 50, got %s", st.Total)
	}
}

func TestAggregate_BillPaymentMarkersExcludedFromTotals(t *testing.T) {
	// The marker itself is a cash movement, never a card charge.
	ledger := billing.NewLedger()
	m := month(2024, time.March)
	markPaid(ledger, "Visa", m)

	view := billing.Aggregate(ledger, []billing.Card{visa()}, m)
	st := statement(t, view, "Visa")
	if !st.Total.IsZero() {
		t.Errorf("expected zero total, got %s", st.Total)
	}
	if !st.Paid {
		t.Error("expected Paid flag set")
	}
}

func TestAggregate_UnknownPaymentMethodIgnored(t *testing.T) {
	// A charge paid with cash belongs to no card.
	ledger := billing.NewLedger()
	addCharge(ledger, date(2024, time.March, 5), "lunch", "Cash", 30)

	view := billing.Aggregate(ledger, []billing.Card{visa()}, month(2024, time.March))
	st := statement(t, view, "Visa")
	if !st.Total.IsZero() || len(st.Lines) != 0 {
		t.Errorf("cash charge leaked into the card statement: %+v", st)
	}
}

// =============================================================================
// ROLLOVER THROUGH THE AGGREGATOR
// =============================================================================

func TestAggregate_PaidBill_ChargeRollsForwardButStaysInHistory(t *testing.T) {
	// GIVEN: March's bill already paid, then a new charge arrives dated
	//        inside March's statement period
	// THEN:  the charge appears in March's history but owes on April's bill

	ledger := billing.NewLedger()
	displayed := month(2024, time.March)
	markPaid(ledger, "Visa", displayed)
	addCharge(ledger, date(2024, time.March, 5), "late purchase", "Visa", 80)
	cards := []billing.Card{visa()}

	march := billing.Aggregate(ledger, cards, displayed)
	st := statement(t, march, "Visa")
	if !st.Total.IsZero() {
		t.Errorf("March total should be zero after rollover, got %s", st.Total)
	}
	if _, found := lineWith(st, "late purchase"); !found {
		t.Error("charge must remain in March's history")
	}

	april := billing.Aggregate(ledger, cards, displayed.Next())
	st = statement(t, april, "Visa")
	if !st.Total.Equal(money(80)) {
		t.Errorf("April total: expected 80, got %s", st.Total)
	}
}

func TestAggregate_PreviousBillPaid_ChargeLandsOnDisplayed(t *testing.T) {
	ledger := billing.NewLedger()
	displayed := month(2024, time.March)
	markPaid(ledger, "Visa", displayed.Prev())
	// Charge dated Feb 5 with closing day 10 resolves to February originally.
	addCharge(ledger, date(2024, time.February, 5), "rolled", "Visa", 60)

	view := billing.Aggregate(ledger, []billing.Card{visa()}, displayed)
	st := statement(t, view, "Visa")
	if !st.Total.Equal(money(60)) {
		t.Errorf("expected 60 rolled into March, got %s", st.Total)
	}
}

func TestAggregate_PartialPaymentDoesNotStopRollover(t *testing.T) {
	// GIVEN: a partial payment smaller than the bill
	// THEN:  the bill stays unpaid and charges keep resolving to it

	ledger := billing.NewLedger()
	displayed := month(2024, time.March)
	ledger.ChargesByMonth[displayed] = append(ledger.ChargesByMonth[displayed], billing.Charge{
		ID:            "partial",
		Date:          displayed.FirstDay(),
		Category:      billing.CategoryBillPayment,
		Description:   billing.PartialPaymentDescription("Visa"),
		PaymentMethod: "Cash Balance",
		Amount:        money(40),
		Source:        billing.SourceVariable,
	})
	addCharge(ledger, date(2024, time.March, 5), "groceries", "Visa", 150)

	view := billing.Aggregate(ledger, []billing.Card{visa()}, displayed)
	st := statement(t, view, "Visa")
	if st.Paid {
		t.Error("partial payment must not mark the bill paid")
	}
	if !st.Total.Equal(money(150)) {
		t.Errorf("charge must still resolve to the unpaid bill, got total %s", st.Total)
	}
}

// =============================================================================
// SCENARIO B - Installments
// =============================================================================

func TestAggregate_ScenarioB_InstallmentWindow(t *testing.T) {
	// GIVEN: 300 over 3 installments starting January
	// THEN:  March shows installment 3/3 for 100; April shows nothing

	ledger := billing.NewLedger()
	ledger.Purchases = append(ledger.Purchases, billing.InstallmentPurchase{
		ID:           "p1",
		CardName:     "Visa",
		Description:  "Television",
		TotalAmount:  money(300),
		Installments: 3,
		StartMonth:   month(2024, time.January),
		Status:       billing.PurchaseActive,
	})
	cards := []billing.Card{visa()}

	march := billing.Aggregate(ledger, cards, month(2024, time.March))
	st := statement(t, march, "Visa")
	if !st.Total.Equal(money(100)) {
		t.Errorf("March total: expected 100, got %s", st.Total)
	}
	ln, found := lineWith(st, "(3/3)")
	if !found {
		t.Fatal("expected installment line (3/3)")
	}
	if ln.StruckThrough {
		t.Error("active installment must not be struck through")
	}

	april := billing.Aggregate(ledger, cards, month(2024, time.April))
	st = statement(t, april, "Visa")
	if len(st.Lines) != 0 || !st.Total.IsZero() {
		t.Errorf("April is outside the installment window: %+v", st)
	}
}

func TestAggregate_InstallmentSharesSumToTotal(t *testing.T) {
	// Installment sum invariant: shares over the n months equal TotalAmount
	// within tolerance, including a non-divisible total.

	for _, total := range []float64{300, 100} {
		ledger := billing.NewLedger()
		ledger.Purchases = append(ledger.Purchases, billing.InstallmentPurchase{
			ID:           "p1",
			CardName:     "Visa",
			Description:  "Sofa",
			TotalAmount:  money(total),
			Installments: 3,
			StartMonth:   month(2024, time.January),
			Status:       billing.PurchaseActive,
		})
		cards := []billing.Card{visa()}

		sum := decimal.Zero
		for i := 0; i < 3; i++ {
			view := billing.Aggregate(ledger, cards, month(2024, time.January).AddMonths(i))
			st := statement(t, view, "Visa")
			sum = sum.Add(st.Total)
		}

		diff := sum.Sub(money(total)).Abs()
		if diff.GreaterThan(money(0.0001)) {
			t.Errorf("total %v: shares sum to %s", total, sum)
		}
	}
}

func TestAggregate_InstallmentStatusRules(t *testing.T) {
	cases := []struct {
		status  billing.PurchaseStatus
		label   string
		struck  bool
		inTotal bool
	}{
		{billing.PurchaseActive, "(1/3)", false, true},
		{billing.PurchaseReversed, "(Reversed)", true, false},
		{billing.PurchaseSettled, "(Settled)", true, false},
		{billing.PurchaseSettlementPayment, "(Settlement Payment)", false, true},
	}

	for _, tc := range cases {
		ledger := billing.NewLedger()
		ledger.Purchases = append(ledger.Purchases, billing.InstallmentPurchase{
			ID:           "p1",
			CardName:     "Visa",
			Description:  "Phone",
			TotalAmount:  money(300),
			Installments: 3,
			StartMonth:   month(2024, time.January),
			Status:       tc.status,
		})

		view := billing.Aggregate(ledger, []billing.Card{visa()}, month(2024, time.January))
		st := statement(t, view, "Visa")

		ln, found := lineWith(st, tc.label)
		if !found {
			t.Errorf("%s: expected line labeled %q", tc.status, tc.label)
			continue
		}
		if ln.StruckThrough != tc.struck {
			t.Errorf("%s: struck = %v, want %v", tc.status, ln.StruckThrough, tc.struck)
		}
		if tc.inTotal && !st.Total.Equal(money(100)) {
			t.Errorf("%s: expected total 100, got %s", tc.status, st.Total)
		}
		if !tc.inTotal && !st.Total.IsZero() {
			t.Errorf("%s: expected zero total, got %s", tc.status, st.Total)
		}
	}
}

func TestAggregate_PaidMonth_InstallmentStaysInHistoryOnly(t *testing.T) {
	// Decision: shares of an already-paid bill stay visible in the history
	// but leave the total.

	ledger := billing.NewLedger()
	displayed := month(2024, time.February)
	markPaid(ledger, "Visa", displayed)
	ledger.Purchases = append(ledger.Purchases, billing.InstallmentPurchase{
		ID:           "p1",
		CardName:     "Visa",
		Description:  "Fridge",
		TotalAmount:  money(600),
		Installments: 6,
		StartMonth:   month(2023, time.September),
		Status:       billing.PurchaseActive,
	})

	view := billing.Aggregate(ledger, []billing.Card{visa()}, displayed)
	st := statement(t, view, "Visa")
	if !st.Total.IsZero() {
		t.Errorf("paid month: expected zero total, got %s", st.Total)
	}
	if _, found := lineWith(st, "Fridge"); !found {
		t.Error("installment line must remain in the history of a paid month")
	}
}

func TestAggregate_EffectiveStartShiftsInstallmentNumbering(t *testing.T) {
	// GIVEN: January and February bills paid early
	// WHEN:  the plan starts in January
	// THEN:  March shows installment 1, not 3

	ledger := billing.NewLedger()
	markPaid(ledger, "Visa", month(2024, time.January))
	markPaid(ledger, "Visa", month(2024, time.February))
	ledger.Purchases = append(ledger.Purchases, billing.InstallmentPurchase{
		ID:           "p1",
		CardName:     "Visa",
		Description:  "Laptop",
		TotalAmount:  money(900),
		Installments: 3,
		StartMonth:   month(2024, time.January),
		Status:       billing.PurchaseActive,
	})

	view := billing.Aggregate(ledger, []billing.Card{visa()}, month(2024, time.March))
	st := statement(t, view, "Visa")
	if _, found := lineWith(st, "(1/3)"); !found {
		t.Errorf("expected installment (1/3) in March, lines: %+v", st.Lines)
	}
	if !st.Total.Equal(money(300)) {
		t.Errorf("expected 300, got %s", st.Total)
	}
}

func TestAggregate_OutOfBandMarkerSettlesOneInstallment(t *testing.T) {
	// A paid installment marker removes exactly that month's share.

	ledger := billing.NewLedger()
	displayed := month(2024, time.January)
	ledger.Purchases = append(ledger.Purchases, billing.InstallmentPurchase{
		ID:           "p1",
		CardName:     "Visa",
		Description:  "Desk",
		TotalAmount:  money(300),
		Installments: 3,
		StartMonth:   displayed,
		Status:       billing.PurchaseActive,
	})
	ledger.MarkersByMonth[displayed] = append(ledger.MarkersByMonth[displayed], billing.InstallmentMarker{
		PurchaseID: "p1",
		Number:     1,
		Amount:     money(100),
		Status:     billing.StatusPaid,
	})

	jan := billing.Aggregate(ledger, []billing.Card{visa()}, displayed)
	st := statement(t, jan, "Visa")
	if !st.Total.IsZero() {
		t.Errorf("marked installment should owe nothing, got %s", st.Total)
	}
	if ln, found := lineWith(st, "(Paid)"); !found || !ln.StruckThrough {
		t.Error("marked installment should show struck through as (Paid)")
	}

	// February's share is untouched.
	feb := billing.Aggregate(ledger, []billing.Card{visa()}, displayed.Next())
	st = statement(t, feb, "Visa")
	if !st.Total.Equal(money(100)) {
		t.Errorf("February share: expected 100, got %s", st.Total)
	}
}

// =============================================================================
// CREDIT AND CROSS-CARD TOTALS
// =============================================================================

func TestAggregate_AvailableCreditCanGoNegative(t *testing.T) {
	ledger := billing.NewLedger()
	addCharge(ledger, date(2024, time.March, 5), "splurge", "Visa", 1200)

	view := billing.Aggregate(ledger, []billing.Card{visa()}, month(2024, time.March))
	st := statement(t, view, "Visa")
	if !st.AvailableCredit.Equal(money(-200)) {
		t.Errorf("expected -200 available credit, got %s", st.AvailableCredit)
	}
}

func TestAggregate_TotalDueSumsAllCards(t *testing.T) {
	master := billing.Card{ID: "card-2", Name: "Master", ClosingDay: 5, DueDay: 15, CreditLimit: money(500)}
	ledger := billing.NewLedger()
	addCharge(ledger, date(2024, time.March, 2), "a", "Visa", 100)
	addCharge(ledger, date(2024, time.March, 2), "b", "Master", 40)

	view := billing.Aggregate(ledger, []billing.Card{visa(), master}, month(2024, time.March))
	if !view.TotalDue.Equal(money(140)) {
		t.Errorf("expected 140 total due, got %s", view.TotalDue)
	}
	if len(view.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(view.Statements))
	}
	if view.Statements[0].Card.Name != "Master" {
		t.Error("statements must be ordered by card name")
	}
}

func TestAggregate_LinesSortedByDate(t *testing.T) {
	ledger := billing.NewLedger()
	addCharge(ledger, date(2024, time.March, 8), "later", "Visa", 10)
	addCharge(ledger, date(2024, time.March, 2), "earlier", "Visa", 10)

	view := billing.Aggregate(ledger, []billing.Card{visa()}, month(2024, time.March))
	st := statement(t, view, "Visa")
	if len(st.Lines) != 2 || st.Lines[0].Description != "earlier" {
		t.Errorf("lines not sorted by date: %+v", st.Lines)
	}
}
