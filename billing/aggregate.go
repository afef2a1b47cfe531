/*
aggregate.go - Bill total aggregation

PURPOSE:
  Produces, per card, the statement the UI renders for the displayed month:
  total due, available credit, paid flag, and the line-item list. This is
  the final stage of the pipeline:

    ledger -> cycle-resolve -> rollover -> aggregate -> view

HISTORY vs TOTAL:
  A charge appears in the line-item HISTORY when its ORIGINAL cycle is the
  displayed month; it contributes to the TOTAL when its ROLLED-OVER cycle is
  the displayed month. The two deliberately diverge: paying a bill early
  moves the money owed to the next statement without rewriting history.
  The same rule holds for installments - once the displayed month's bill is
  paid, their shares leave the total but stay visible in the history.

BILL STATE MACHINE:
  Unpaid(total=0) -> Unpaid(total>0) -> Paid. Paid -> Unpaid happens only
  through an explicit user reversal (finance.ReverseBillPayment); nothing
  here un-pays a bill.
*/
package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VIEW MODEL
// =============================================================================

// LineItem is one row of a card's statement table.
type LineItem struct {
	Date          string // "YYYY-MM-DD"
	Description   string
	Amount        decimal.Decimal
	StruckThrough bool
}

// Statement is the computed bill of one card for the displayed month.
type Statement struct {
	Card            Card
	Month           Month
	Total           decimal.Decimal
	AvailableCredit decimal.Decimal // CreditLimit - Total; negative = over limit
	Paid            bool
	Lines           []LineItem
}

// View is what the rendering layer consumes: one statement per configured
// card, ordered by card name, plus the cross-card total for the month.
type View struct {
	Month      Month
	Statements []Statement
	TotalDue   decimal.Decimal
}

// StatementFor returns the statement for the named card, if present.
func (v View) StatementFor(cardName string) (Statement, bool) {
	for _, st := range v.Statements {
		if st.Card.Name == cardName {
			return st, true
		}
	}
	return Statement{}, false
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregate computes every card's statement for the displayed month from the
// full ledger snapshot. Pure: safe to rerun on every store notification.
func Aggregate(ledger *Ledger, cards []Card, displayed Month) View {
	ps := NewPaymentStatus(ledger, cards)

	byName := make(map[string]*Statement, len(cards))
	for _, card := range cards {
		byName[card.Name] = &Statement{
			Card:  card,
			Month: displayed,
			Paid:  ps.IsPaid(card.Name, displayed),
		}
	}

	aggregateCharges(ledger, byName, ps, displayed)
	aggregatePurchases(ledger, byName, ps, displayed)

	view := View{Month: displayed}
	for _, st := range byName {
		st.AvailableCredit = st.Card.CreditLimit.Sub(st.Total)
		sort.SliceStable(st.Lines, func(i, j int) bool {
			return st.Lines[i].Date < st.Lines[j].Date
		})
		view.Statements = append(view.Statements, *st)
		view.TotalDue = view.TotalDue.Add(st.Total)
	}
	sort.Slice(view.Statements, func(i, j int) bool {
		return view.Statements[i].Card.Name < view.Statements[j].Card.Name
	})
	return view
}

// aggregateCharges handles direct charges: variable expenses and fixed-bill
// instances whose payment method names a card.
func aggregateCharges(ledger *Ledger, byName map[string]*Statement, ps *PaymentStatus, displayed Month) {
	for _, charges := range ledger.ChargesByMonth {
		for _, c := range charges {
			// Bill-payment markers are cash movements, not card charges.
			if c.Category == CategoryBillPayment {
				continue
			}
			st, ok := byName[c.PaymentMethod]
			if !ok {
				continue // direct cash expense, no card involved
			}

			original := ResolveCycle(c.Date, st.Card.ClosingDay)
			if original == displayed {
				st.Lines = append(st.Lines, LineItem{
					Date:        c.Date.Format("2006-01-02"),
					Description: c.Description,
					Amount:      c.Amount,
				})
			}
			if ps.ResolveBilledMonth(original, st.Card.Name, displayed) == displayed {
				st.Total = st.Total.Add(c.Amount)
			}
		}
	}
}

// aggregatePurchases handles amortized installment shares.
func aggregatePurchases(ledger *Ledger, byName map[string]*Statement, ps *PaymentStatus, displayed Month) {
	for _, p := range ledger.Purchases {
		st, ok := byName[p.CardName]
		if !ok {
			continue
		}
		if p.Installments <= 0 {
			continue
		}

		start := ps.EffectiveStart(p.CardName, p.StartMonth)
		number := displayed.MonthsSince(start) + 1
		if number < 1 || number > p.Installments {
			continue
		}

		share := p.Share()
		label := fmt.Sprintf("(%d/%d)", number, p.Installments)
		struck := false
		contribution := share

		switch p.Status {
		case PurchaseReversed:
			label, struck, contribution = "(Reversed)", true, decimal.Zero
		case PurchaseSettled:
			label, struck, contribution = "(Settled)", true, decimal.Zero
		case PurchaseSettlementPayment:
			label = "(Settlement Payment)"
		}

		// An out-of-band paid marker settles this one installment only.
		if mk, found := ledger.MarkerFor(displayed, p.ID, number); found && mk.Status == StatusPaid {
			label, struck, contribution = "(Paid)", true, decimal.Zero
		}

		st.Lines = append(st.Lines, LineItem{
			Date:          displayed.FirstDay().Format("2006-01-02"),
			Description:   strings.TrimSpace(p.Description) + " " + label,
			Amount:        share,
			StruckThrough: struck,
		})

		// Shares of an already-paid bill stay in the history but owe nothing.
		if !ps.IsPaid(p.CardName, displayed) {
			st.Total = st.Total.Add(contribution)
		}
	}
}
