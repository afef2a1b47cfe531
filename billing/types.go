/*
Package billing implements the credit-card billing-cycle engine.

PURPOSE:
  Given a normalized snapshot of the user's ledger (variable expenses, fixed
  bill instances, installment purchases and payment markers), the engine
  answers the question the UI keeps asking: "what does each card's bill for
  the displayed month look like?" It resolves which statement a charge
  belongs to, rolls charges forward past already-paid bills, amortizes
  installment purchases, and produces per-card totals and line items.

DESIGN PRINCIPLES:
  1. Purity: everything in this package is computation over an in-memory
     Ledger snapshot. No store access, no clock reads, no side effects.
     The finance package owns I/O and feeds snapshots in.
  2. Precision: all money is decimal.Decimal. float64 never carries currency.
  3. Full recomputation: aggregation is always run over the complete ledger
     for the displayed month, never patched incrementally. Subscription
     callbacks simply rerun Aggregate.

KEY CONCEPTS IN THIS FILE (types.go):
  - Month: a calendar year-month, the unit of statement identity and of
    storage bucketing (these are different roles: buckets come from the
    charge date, statements are computed).
  - Charge: a normalized variable expense or fixed-bill instance.
  - InstallmentPurchase: a master record amortized over N monthly shares.
  - Ledger: the full normalized snapshot, keyed by Month.

SEE ALSO:
  - cycle.go: which statement a charge date falls into
  - paystatus.go: paid-bill index and rollover
  - aggregate.go: per-card statement construction
*/
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTH - Statement identity and storage bucket key
// =============================================================================

// Month is a calendar year-month. It is comparable, so it can key maps and
// be tested with ==.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" storage bucket key.
func ParseMonth(key string) (Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	return MonthOf(t), nil
}

// Key returns the "YYYY-MM" form used as a storage bucket key.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) String() string { return m.Key() }

// FirstDay returns midnight UTC on the first day of the month.
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the month n months later (negative n goes back).
func (m Month) AddMonths(n int) Month {
	return MonthOf(m.FirstDay().AddDate(0, n, 0))
}

func (m Month) Next() Month { return m.AddMonths(1) }
func (m Month) Prev() Month { return m.AddMonths(-1) }

// MonthsSince returns the number of whole months from other to m.
// Negative when m is before other.
func (m Month) MonthsSince(other Month) int {
	return (m.Year-other.Year)*12 + int(m.Month) - int(other.Month)
}

func (m Month) Before(other Month) bool { return m.MonthsSince(other) < 0 }
func (m Month) After(other Month) bool  { return m.MonthsSince(other) > 0 }
func (m Month) IsZero() bool            { return m.Year == 0 && m.Month == 0 }

// =============================================================================
// RESERVED CATEGORIES AND MARKER DESCRIPTIONS
// =============================================================================

// CategoryBillPayment is the reserved expense category that turns an expense
// record into a bill-payment marker. Charges in this category never feed the
// aggregation totals.
const CategoryBillPayment = "Bill Payment"

// StatusPaid marks a fixed bill, pending item or installment marker as paid.
const StatusPaid = "paid"

// StatusPending is the initial status of a fixed bill instance.
const StatusPending = "pending"

// BillPaymentDescription is the exact description a full bill-payment marker
// carries. Its presence for a (card, month) is the sole signal that the bill
// is paid; rollover keys off it.
func BillPaymentDescription(cardName string) string {
	return "Payment for bill " + cardName
}

// PartialPaymentDescription is the description of a partial-payment marker.
// Distinct from BillPaymentDescription on purpose: partial payments move
// cash but never flip a bill to paid.
func PartialPaymentDescription(cardName string) string {
	return "Partial payment for bill " + cardName
}

// =============================================================================
// CHARGE - Normalized variable expense or fixed-bill instance
// =============================================================================

type ChargeSource string

const (
	SourceVariable ChargeSource = "variable"
	SourceFixed    ChargeSource = "fixed"
)

// Charge is one normalized ledger entry. PaymentMethod either names a card
// (then the charge participates in billing aggregation) or a cash-affecting
// method (then it only moved the cash balance when recorded).
type Charge struct {
	ID            string
	Date          time.Time
	Category      string
	Description   string
	PaymentMethod string
	Amount        decimal.Decimal
	Source        ChargeSource
	Status        string
}

// =============================================================================
// CARD CONFIGURATION
// =============================================================================

// Card is a credit-card configuration. Charges reference it by Name, a
// denormalized foreign key: a charge whose PaymentMethod matches no card is
// treated as a direct cash expense.
type Card struct {
	ID          string
	Name        string
	Icon        string
	ClosingDay  int // statement closing day, 1-31
	DueDay      int // payment due day, 1-31
	CreditLimit decimal.Decimal
	Blocked     bool
}

// =============================================================================
// INSTALLMENT PURCHASES
// =============================================================================

type PurchaseStatus string

const (
	PurchaseActive            PurchaseStatus = "active"
	PurchaseReversed          PurchaseStatus = "reversed"
	PurchaseSettled           PurchaseStatus = "settled"
	PurchaseSettlementPayment PurchaseStatus = "settlement-payment"
)

// InstallmentPurchase is a master record for a purchase split into
// Installments equal monthly shares. Individual installments are derived,
// never stored, except for optional out-of-band InstallmentMarkers.
type InstallmentPurchase struct {
	ID           string
	CardName     string
	Description  string
	TotalAmount  decimal.Decimal
	Installments int
	StartMonth   Month
	Status       PurchaseStatus
}

// Share returns the per-month amortized amount.
func (p InstallmentPurchase) Share() decimal.Decimal {
	if p.Installments <= 0 {
		return decimal.Zero
	}
	return p.TotalAmount.Div(decimal.NewFromInt(int64(p.Installments)))
}

// InstallmentMarker marks a single derived installment as paid out-of-band
// (see finance.PayLineItem). Number is the 1-based installment index.
type InstallmentMarker struct {
	PurchaseID string
	Number     int
	Amount     decimal.Decimal
	Status     string
}

// =============================================================================
// LEGACY PENDING ITEMS
// =============================================================================

// PendingItem is the legacy storage form of a bill-payment marker. Older data
// recorded bill payments as pending items with status "paid" instead of
// reserved-category expenses; the paid-index checks both.
type PendingItem struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Status      string
}

// =============================================================================
// LEDGER - The full normalized snapshot
// =============================================================================

// Ledger is everything the engine needs, for ALL months. Rollover chains can
// reach arbitrarily far forward (a user who pays early every month), so the
// source adapter always loads the full history - a fixed two-month window
// silently truncates installment rollover.
type Ledger struct {
	ChargesByMonth map[Month][]Charge
	Purchases      []InstallmentPurchase
	MarkersByMonth map[Month][]InstallmentMarker
	PendingByMonth map[Month][]PendingItem
}

// NewLedger returns an empty ledger with all maps initialized.
func NewLedger() *Ledger {
	return &Ledger{
		ChargesByMonth: make(map[Month][]Charge),
		MarkersByMonth: make(map[Month][]InstallmentMarker),
		PendingByMonth: make(map[Month][]PendingItem),
	}
}

// MarkerFor returns the out-of-band paid marker for the given purchase and
// installment number in month m, if one exists.
func (l *Ledger) MarkerFor(m Month, purchaseID string, number int) (InstallmentMarker, bool) {
	for _, mk := range l.MarkersByMonth[m] {
		if mk.PurchaseID == purchaseID && mk.Number == number {
			return mk, true
		}
	}
	return InstallmentMarker{}, false
}
