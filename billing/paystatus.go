/*
paystatus.go - Paid-bill index and rollover

PURPOSE:
  Builds, from the full ledger, the answer to "is card C's bill for month M
  already paid?" and applies the two rollover rules that depend on it:

  1. Ordinary charges roll forward AT MOST TWO STEPS relative to the
     displayed month: once when they land on the displayed month's
     predecessor and that bill is paid ("previous bill paid early"), and
     once more when they then land on the displayed month and that bill is
     paid too ("current bill paid early"). No unbounded per-charge search.

  2. Installment purchases advance their EFFECTIVE START month with an
     unbounded forward search: a plan whose bills were paid early for many
     consecutive months skips all of them. The search terminates because
     the set of paid months is finite.

MARKER DETECTION:
  A bill is paid when either storage form of the marker exists:
  - current style: an expense in the reserved "Bill Payment" category whose
    description is exactly BillPaymentDescription(card), or
  - legacy style: a pending item with the same description and status paid.
  Duplicate markers are tolerated; the first match wins. Write-time
  uniqueness is enforced by finance.PayBill, but historical data predates it.
*/
package billing

// =============================================================================
// PAYMENT STATUS INDEX
// =============================================================================

// PaymentStatus indexes which (card, month) bills are already paid. Build it
// once per aggregation pass from the full ledger; lookups are O(1).
type PaymentStatus struct {
	paid map[string]map[Month]bool // card name -> paid months
}

// NewPaymentStatus scans every month of the ledger for payment markers of
// the given cards. The full history matters: rollover chains are only
// correct when "is month M paid?" is answerable for any M.
func NewPaymentStatus(ledger *Ledger, cards []Card) *PaymentStatus {
	ps := &PaymentStatus{paid: make(map[string]map[Month]bool, len(cards))}

	for _, card := range cards {
		marker := BillPaymentDescription(card.Name)

		for month, charges := range ledger.ChargesByMonth {
			for _, c := range charges {
				if c.Category == CategoryBillPayment && c.Description == marker {
					ps.mark(card.Name, month)
					break
				}
			}
		}
		for month, items := range ledger.PendingByMonth {
			for _, it := range items {
				if it.Description == marker && it.Status == StatusPaid {
					ps.mark(card.Name, month)
					break
				}
			}
		}
	}
	return ps
}

func (ps *PaymentStatus) mark(cardName string, m Month) {
	months := ps.paid[cardName]
	if months == nil {
		months = make(map[Month]bool)
		ps.paid[cardName] = months
	}
	months[m] = true
}

// IsPaid reports whether the bill for (cardName, m) is marked paid.
func (ps *PaymentStatus) IsPaid(cardName string, m Month) bool {
	return ps.paid[cardName][m]
}

// =============================================================================
// ROLLOVER
// =============================================================================

// ResolveBilledMonth applies the bounded rollover to an ordinary charge whose
// original cycle is original, relative to the displayed month.
//
// Properties:
//   - unpaid bills leave the cycle unchanged (idempotent),
//   - a paid bill advances the charge exactly one step per rule, never two
//     for the same rule,
//   - charges resolving to months other than displayed-1 and displayed pass
//     through untouched; whether they land on the displayed month is the
//     aggregator's concern.
func (ps *PaymentStatus) ResolveBilledMonth(original Month, cardName string, displayed Month) Month {
	cycle := original

	if cycle == displayed.Prev() && ps.IsPaid(cardName, cycle) {
		cycle = cycle.Next()
	}
	if cycle == displayed && ps.IsPaid(cardName, cycle) {
		cycle = cycle.Next()
	}
	return cycle
}

// EffectiveStart returns the first unpaid month at or after start for the
// card. This anchors installment counting: a plan whose first cycles were
// paid early begins amortizing at the first cycle still owed.
func (ps *PaymentStatus) EffectiveStart(cardName string, start Month) Month {
	m := start
	for ps.IsPaid(cardName, m) {
		m = m.Next()
	}
	return m
}
