package billing_test

import (
	"testing"
	"time"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func visa() billing.Card {
	return billing.Card{
		ID:          "card-1",
		Name:        "Visa",
		ClosingDay:  10,
		DueDay:      20,
		CreditLimit: money(1000),
	}
}

// markPaid adds a current-style payment marker for (card, m).
func markPaid(l *billing.Ledger, cardName string, m billing.Month) {
	l.ChargesByMonth[m] = append(l.ChargesByMonth[m], billing.Charge{
		ID:            "marker-" + cardName + "-" + m.Key(),
		Date:          m.FirstDay(),
		Category:      billing.CategoryBillPayment,
		Description:   billing.BillPaymentDescription(cardName),
		PaymentMethod: "Cash Balance",
		Amount:        money(100),
		Source:        billing.SourceVariable,
	})
}

// markPaidLegacy adds a legacy pending-item marker for (card, m).
func markPaidLegacy(l *billing.Ledger, cardName string, m billing.Month) {
	l.PendingByMonth[m] = append(l.PendingByMonth[m], billing.PendingItem{
		ID:          "pend-" + m.Key(),
		Description: billing.BillPaymentDescription(cardName),
		Amount:      money(100),
		Status:      billing.StatusPaid,
	})
}

// =============================================================================
// MARKER DETECTION
// =============================================================================

func TestPaymentStatus_CurrentStyleMarker(t *testing.T) {
	ledger := billing.NewLedger()
	markPaid(ledger, "Visa", month(2024, time.March))

	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	if !ps.IsPaid("Visa", month(2024, time.March)) {
		t.Error("expected March bill to be paid")
	}
	if ps.IsPaid("Visa", month(2024, time.April)) {
		t.Error("April bill should not be paid")
	}
}

func TestPaymentStatus_LegacyMarker(t *testing.T) {
	ledger := billing.NewLedger()
	markPaidLegacy(ledger, "Visa", month(2024, time.March))

	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	if !ps.IsPaid("Visa", month(2024, time.March)) {
		t.Error("legacy pending-item marker should count as paid")
	}
}

func TestPaymentStatus_LegacyUnpaidItemIgnored(t *testing.T) {
	// A pending item with the marker description but status pending is not
	// a payment.
	ledger := billing.NewLedger()
	m := month(2024, time.March)
	ledger.PendingByMonth[m] = append(ledger.PendingByMonth[m], billing.PendingItem{
		ID:          "pend-1",
		Description: billing.BillPaymentDescription("Visa"),
		Amount:      money(100),
		Status:      billing.StatusPending,
	})

	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	if ps.IsPaid("Visa", m) {
		t.Error("pending item without paid status must not mark the bill paid")
	}
}

func TestPaymentStatus_DuplicateMarkersTolerated(t *testing.T) {
	// GIVEN: historical data with duplicate markers for the same month
	// THEN: the bill is simply paid; duplicates never double-count anything

	ledger := billing.NewLedger()
	m := month(2024, time.March)
	markPaid(ledger, "Visa", m)
	markPaid(ledger, "Visa", m)
	markPaidLegacy(ledger, "Visa", m)

	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	if !ps.IsPaid("Visa", m) {
		t.Error("expected paid")
	}
}

func TestPaymentStatus_PartialMarkerDoesNotMarkPaid(t *testing.T) {
	// Partial payments carry a distinct description on purpose.
	ledger := billing.NewLedger()
	m := month(2024, time.March)
	ledger.ChargesByMonth[m] = append(ledger.ChargesByMonth[m], billing.Charge{
		ID:            "partial-1",
		Date:          m.FirstDay(),
		Category:      billing.CategoryBillPayment,
		Description:   billing.PartialPaymentDescription("Visa"),
		PaymentMethod: "Cash Balance",
		Amount:        money(50),
		Source:        billing.SourceVariable,
	})

	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	if ps.IsPaid("Visa", m) {
		t.Error("partial payment must not mark the bill paid")
	}
}

// =============================================================================
// ROLLOVER - ORDINARY CHARGES
// =============================================================================

func TestResolveBilledMonth_UnpaidBills_Idempotent(t *testing.T) {
	// GIVEN: no bill is paid
	// THEN: rollover leaves every cycle unchanged

	ps := billing.NewPaymentStatus(billing.NewLedger(), []billing.Card{visa()})
	displayed := month(2024, time.March)

	for _, orig := range []billing.Month{
		displayed.Prev(), displayed, displayed.Next(), month(2023, time.June),
	} {
		if got := ps.ResolveBilledMonth(orig, "Visa", displayed); got != orig {
			t.Errorf("unpaid rollover changed %s to %s", orig, got)
		}
	}
}

func TestResolveBilledMonth_CurrentPaid_AdvancesExactlyOnce(t *testing.T) {
	// GIVEN: the displayed month's bill is already paid
	// WHEN: a charge originally resolves to the displayed month
	// THEN: it advances exactly one month, not two

	ledger := billing.NewLedger()
	displayed := month(2024, time.March)
	markPaid(ledger, "Visa", displayed)
	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	got := ps.ResolveBilledMonth(displayed, "Visa", displayed)
	if got != displayed.Next() {
		t.Errorf("expected %s, got %s", displayed.Next(), got)
	}
}

func TestResolveBilledMonth_PreviousPaid_RollsIntoDisplayed(t *testing.T) {
	// Previous bill paid early: charges from that statement period land on
	// the displayed month.

	ledger := billing.NewLedger()
	displayed := month(2024, time.March)
	markPaid(ledger, "Visa", displayed.Prev())
	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	got := ps.ResolveBilledMonth(displayed.Prev(), "Visa", displayed)
	if got != displayed {
		t.Errorf("expected %s, got %s", displayed, got)
	}
}

func TestResolveBilledMonth_BothPaid_TwoStepsPastDisplayed(t *testing.T) {
	// Previous AND displayed bills paid: a previous-cycle charge rolls past
	// the displayed month entirely.

	ledger := billing.NewLedger()
	displayed := month(2024, time.March)
	markPaid(ledger, "Visa", displayed.Prev())
	markPaid(ledger, "Visa", displayed)
	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	got := ps.ResolveBilledMonth(displayed.Prev(), "Visa", displayed)
	if got != displayed.Next() {
		t.Errorf("expected %s, got %s", displayed.Next(), got)
	}
}

func TestResolveBilledMonth_UnrelatedMonthsPassThrough(t *testing.T) {
	// Paid bills far from the displayed month never move ordinary charges.

	ledger := billing.NewLedger()
	displayed := month(2024, time.June)
	markPaid(ledger, "Visa", month(2024, time.January))
	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	orig := month(2024, time.January)
	if got := ps.ResolveBilledMonth(orig, "Visa", displayed); got != orig {
		t.Errorf("expected %s, got %s", orig, got)
	}
}

// =============================================================================
// ROLLOVER - INSTALLMENT EFFECTIVE START
// =============================================================================

func TestEffectiveStart_NoPaidMonths_Unchanged(t *testing.T) {
	ps := billing.NewPaymentStatus(billing.NewLedger(), []billing.Card{visa()})
	start := month(2024, time.January)
	if got := ps.EffectiveStart("Visa", start); got != start {
		t.Errorf("expected %s, got %s", start, got)
	}
}

func TestEffectiveStart_SkipsConsecutivePaidMonths(t *testing.T) {
	// GIVEN: bills for Jan, Feb, Mar all paid early
	// WHEN: a plan starts in January
	// THEN: its effective start is April, the first unpaid month

	ledger := billing.NewLedger()
	markPaid(ledger, "Visa", month(2024, time.January))
	markPaid(ledger, "Visa", month(2024, time.February))
	markPaid(ledger, "Visa", month(2024, time.March))
	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	got := ps.EffectiveStart("Visa", month(2024, time.January))
	if got != month(2024, time.April) {
		t.Errorf("expected 2024-04, got %s", got)
	}
}

func TestEffectiveStart_StopsAtFirstGap(t *testing.T) {
	// A hole in the paid sequence stops the advance; later paid months do
	// not matter.

	ledger := billing.NewLedger()
	markPaid(ledger, "Visa", month(2024, time.January))
	markPaid(ledger, "Visa", month(2024, time.March)) // Feb unpaid
	ps := billing.NewPaymentStatus(ledger, []billing.Card{visa()})

	got := ps.EffectiveStart("Visa", month(2024, time.January))
	if got != month(2024, time.February) {
		t.Errorf("expected 2024-02, got %s", got)
	}
}
