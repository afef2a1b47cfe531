/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Every amount crosses the wire as a decimal string ("150.00"), never a
  float. Handlers parse with shopspring/decimal and reject what does not
  parse.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/aggregate.go: the view model these DTOs mirror
*/
package api

import (
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// BILLING VIEW
// =============================================================================

type LineItemDTO struct {
	Date           string `json:"date"`
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	StruckThrough  bool   `json:"struckThrough,omitempty"`
}

type StatementDTO struct {
	CardID          string        `json:"cardId"`
	CardName        string        `json:"cardName"`
	Icon            string        `json:"icon,omitempty"`
	Month           string        `json:"month"`
	DueDay          int           `json:"dueDay"`
	Total           string        `json:"total"`
	AvailableCredit string        `json:"availableCredit"`
	Paid            bool          `json:"paid"`
	Blocked         bool          `json:"blocked,omitempty"`
	Lines           []LineItemDTO `json:"lines"`
}

type ViewDTO struct {
	Month      string         `json:"month"`
	Statements []StatementDTO `json:"statements"`
	TotalDue   string         `json:"totalDue"`
}

func toViewDTO(view billing.View) ViewDTO {
	out := ViewDTO{
		Month:      view.Month.Key(),
		Statements: make([]StatementDTO, 0, len(view.Statements)),
		TotalDue:   view.TotalDue.String(),
	}
	for _, st := range view.Statements {
		dto := StatementDTO{
			CardID:          st.Card.ID,
			CardName:        st.Card.Name,
			Icon:            st.Card.Icon,
			Month:           st.Month.Key(),
			DueDay:          st.Card.DueDay,
			Total:           st.Total.String(),
			AvailableCredit: st.AvailableCredit.String(),
			Paid:            st.Paid,
			Blocked:         st.Card.Blocked,
			Lines:           make([]LineItemDTO, 0, len(st.Lines)),
		}
		for _, line := range st.Lines {
			dto.Lines = append(dto.Lines, LineItemDTO{
				Date:          line.Date,
				Description:   line.Description,
				Amount:        line.Amount.String(),
				StruckThrough: line.StruckThrough,
			})
		}
		out.Statements = append(out.Statements, dto)
	}
	return out
}

// =============================================================================
// CARDS
// =============================================================================

type CardDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	ClosingDay  int    `json:"closingDay"`
	DueDay      int    `json:"dueDay"`
	CreditLimit string `json:"creditLimit"`
	Blocked     bool   `json:"blocked"`
}

type CardRequest struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	ClosingDay  int    `json:"closingDay"`
	DueDay      int    `json:"dueDay"`
	CreditLimit string `json:"creditLimit"`
}

type BlockRequest struct {
	Blocked bool `json:"blocked"`
}

func toCardDTO(card billing.Card) CardDTO {
	return CardDTO{
		ID:          card.ID,
		Name:        card.Name,
		Icon:        card.Icon,
		ClosingDay:  card.ClosingDay,
		DueDay:      card.DueDay,
		CreditLimit: card.CreditLimit.String(),
		Blocked:     card.Blocked,
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PayRequest struct {
	Card   string `json:"card"`
	Amount string `json:"amount"`
	Month  string `json:"month"`
}

type ReverseRequest struct {
	Card  string `json:"card"`
	Month string `json:"month"`
}

type PayItemRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Month       string `json:"month"`
}

// =============================================================================
// RECORDS
// =============================================================================

type ExpenseRequest struct {
	Date          string `json:"date"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	PaymentMethod string `json:"paymentMethod"`
	Amount        string `json:"amount"`
}

type FixedBillRequest struct {
	Date          string `json:"date"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	PaymentMethod string `json:"paymentMethod"`
	Amount        string `json:"amount"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type IncomeRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type PurchaseRequest struct {
	CardName     string `json:"cardName"`
	Description  string `json:"description"`
	TotalAmount  string `json:"totalAmount"`
	Installments int    `json:"installments"`
	StartMonth   string `json:"startMonth"`
}

type SettleRequest struct {
	Month string `json:"month"`
}

type InvestmentRequest struct {
	Date       string `json:"date"`
	Broker     string `json:"broker"`
	AssetClass string `json:"assetClass"`
	Asset      string `json:"asset"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
}

type BalanceRequest struct {
	Value string `json:"value"`
}

type SeedRequest struct {
	Month string `json:"month"`
}

// =============================================================================
// COMMON
// =============================================================================

type BalanceDTO struct {
	Value string `json:"value"`
}

type CreatedDTO struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
