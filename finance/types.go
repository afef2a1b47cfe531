/*
Package finance implements the domain operations of the tracker: the ledger
source adapter, the cash balance, bill payment and reversal, and CRUD over
expenses, fixed bills, income, installment purchases, investments and cards.

PURPOSE:
  Everything stateful lives here. The billing package computes views from an
  immutable Ledger snapshot; this package is where that snapshot comes from
  and where every write goes. Each mutating flow pairs its document write
  with a cash balance adjustment and compensates when the paired write
  fails.

SEE ALSO:
  - billing/: pure cycle resolution and statement aggregation
  - store/: document store contract the operations are written against
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT METHODS
// =============================================================================

// Payment methods accepted on expense and fixed-bill records. Methods in
// cashAffecting move money out of the tracked cash balance immediately.
// A charge lands on a card's statement when its payment method equals the
// card's NAME ("Visa", "Nubank"). There is no generic "Credit Card" method;
// the aggregator matches charges to cards by name, so a method string that
// names no card affects nothing.
const (
	MethodCashBalance = "Cash Balance"
	MethodCash        = "Cash"
	MethodPix         = "Pix"
	MethodDirectDebit = "Direct Debit"
)

var cashAffecting = map[string]bool{
	MethodCashBalance: true,
	MethodCash:        true,
	MethodPix:         true,
	MethodDirectDebit: true,
}

// CashAffecting reports whether paying with method debits the cash balance.
func CashAffecting(method string) bool {
	return cashAffecting[method]
}

// =============================================================================
// STORED RECORDS
// =============================================================================
// Wire shapes of the documents as persisted. Amounts travel as strings so no
// float ever touches money; dates are "YYYY-MM-DD", months "YYYY-MM". The
// adapter in adapter.go normalizes these into billing types and skips what
// it cannot parse.

type expenseRecord struct {
	Date          string `json:"date"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	PaymentMethod string `json:"paymentMethod"`
	Amount        string `json:"amount"`
	ReceiptURL    string `json:"receiptUrl,omitempty"`
	ReceiptPath   string `json:"receiptPath,omitempty"`
}

type fixedRecord struct {
	Date          string `json:"date"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	PaymentMethod string `json:"paymentMethod"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
}

type purchaseRecord struct {
	CardName     string `json:"cardName"`
	Description  string `json:"description"`
	TotalAmount  string `json:"totalAmount"`
	Installments int    `json:"installments"`
	StartMonth   string `json:"startMonth"`
	Status       string `json:"status"`
}

type markerRecord struct {
	PurchaseID string `json:"purchaseId"`
	Number     int    `json:"number"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
}

type pendingRecord struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
}

type incomeRecord struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type investmentRecord struct {
	Date       string `json:"date"`
	Broker     string `json:"broker"`
	AssetClass string `json:"assetClass"`
	Asset      string `json:"asset"`
	Kind       string `json:"kind"` // "contribution" or "redemption"
	Amount     string `json:"amount"`
}

type cardRecord struct {
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	ClosingDay  int    `json:"closingDay"`
	DueDay      int    `json:"dueDay"`
	CreditLimit string `json:"creditLimit"`
	Blocked     bool   `json:"blocked,omitempty"`
}

type balanceRecord struct {
	Accumulated string `json:"accumulated"`
}

// Investment record kinds.
const (
	InvestContribution = "contribution"
	InvestRedemption   = "redemption"
)

// =============================================================================
// INPUT TYPES
// =============================================================================
// What callers hand the operations. IDs and derived state are assigned here,
// never by the caller.

type ExpenseInput struct {
	Date          string
	Category      string
	Description   string
	PaymentMethod string
	Amount        decimal.Decimal
}

type FixedBillInput struct {
	Date          string
	Category      string
	Description   string
	PaymentMethod string
	Amount        decimal.Decimal
}

type IncomeInput struct {
	Date        string
	Description string
	Amount      decimal.Decimal
}

type PurchaseInput struct {
	CardName     string
	Description  string
	TotalAmount  decimal.Decimal
	Installments int
	StartMonth   string
}

type InvestmentInput struct {
	Date       string
	Broker     string
	AssetClass string
	Asset      string
	Kind       string
	Amount     decimal.Decimal
}

type CardInput struct {
	Name        string `validate:"required,min=1,max=40"`
	Icon        string `validate:"max=80"`
	ClosingDay  int    `validate:"required,min=1,max=31"`
	DueDay      int    `validate:"required,min=1,max=31"`
	CreditLimit string `validate:"required"`
}

// Position is an investment holding aggregated per (broker, class, asset).
type Position struct {
	Broker     string          `json:"broker"`
	AssetClass string          `json:"assetClass"`
	Asset      string          `json:"asset"`
	Invested   decimal.Decimal `json:"invested"`
}
