/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing and ledger operations via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Billing:
    GET    /api/billing?month=YYYY-MM       Aggregated statements for a month
    GET    /api/summary?month=YYYY-MM       Month money-movement totals
    GET    /api/summary/annual?year=YYYY    Twelve-month rollup

  Balance:
    GET    /api/balance                     Current cash balance
    PUT    /api/balance                     Overwrite the balance

  Bills:
    POST   /api/bills/pay                   Pay a card bill in full
    POST   /api/bills/pay-partial           Record a partial payment
    POST   /api/bills/reverse               Undo a full payment
    POST   /api/bills/pay-item              Pay one statement line

  Cards:
    GET    /api/cards                       List cards
    POST   /api/cards                       Create card
    PUT    /api/cards/{id}                  Update card
    DELETE /api/cards/{id}                  Delete card
    POST   /api/cards/{id}/block            Block/unblock

  Records:
    POST   /api/expenses                    Add expense
    PUT    /api/expenses/{month}/{id}       Edit expense
    DELETE /api/expenses/{month}/{id}       Delete expense
    POST   /api/expenses/{month}/{id}/receipt  Attach receipt (multipart)
    POST   /api/fixed                       Add fixed bill
    POST   /api/fixed/{month}/{id}/status   Flip pending/paid
    PUT    /api/fixed/{month}/{id}          Edit fixed bill
    DELETE /api/fixed/{month}/{id}          Delete fixed bill
    POST   /api/income                      Add income
    PUT    /api/income/{month}/{id}         Edit income
    DELETE /api/income/{month}/{id}         Delete income
    POST   /api/installments                Create installment purchase
    POST   /api/installments/{id}/reverse   Reverse purchase
    POST   /api/installments/{id}/settle    Settle remaining shares
    GET    /api/investments                 Aggregated positions
    POST   /api/investments                 Add contribution/redemption

  Dev:
    POST   /api/seed                        Load demo data (wipes the user)

IDENTITY:
  Every handler resolves the acting user through the Authenticator and
  builds a finance.Service bound to that user's subtree. See auth.go.

ERROR HANDLING:
  Errors are returned as JSON with the status derived from the domain
  error taxonomy:
  - 400: Malformed input, validation failures, duplicates
  - 404: Record not found
  - 422: Insufficient cash balance
  - 503: Document store unavailable
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - finance/: the domain operations these handlers delegate to
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/finance"
	"github.com/warp/billing-engine/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store store.Store
	Blobs store.BlobStore
	Auth  Authenticator
	Log   zerolog.Logger
}

// NewHandler creates a new handler over the given store.
func NewHandler(st store.Store, blobs store.BlobStore, auth Authenticator, log zerolog.Logger) *Handler {
	return &Handler{Store: st, Blobs: blobs, Auth: auth, Log: log}
}

// svc builds the per-request finance service for the authenticated user.
func (h *Handler) svc(r *http.Request) *finance.Service {
	return finance.New(h.Store, h.Blobs, h.Log, h.Auth.UserID(r))
}

// =============================================================================
// BILLING VIEW
// =============================================================================

// GetBilling returns the aggregated card statements for a month.
// GET /api/billing?month=YYYY-MM (defaults to the current month)
func (h *Handler) GetBilling(w http.ResponseWriter, r *http.Request) {
	month, ok := h.queryMonth(w, r)
	if !ok {
		return
	}
	view, err := h.svc(r).View(r.Context(), month)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewDTO(view))
}

// GetSummary returns one month's money-movement totals.
// GET /api/summary?month=YYYY-MM
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	month, ok := h.queryMonth(w, r)
	if !ok {
		return
	}
	sum, err := h.svc(r).Summary(r.Context(), month)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetAnnualSummary returns the twelve-month rollup of a year.
// GET /api/summary/annual?year=YYYY
func (h *Handler) GetAnnualSummary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1970 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid year (use YYYY)", err)
		return
	}
	sum, err := h.svc(r).AnnualSummary(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// BALANCE
// =============================================================================

// GetBalance returns the current cash balance.
// GET /api/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	value, err := h.svc(r).Balance(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Value: value.String()})
}

// SetBalance overwrites the cash balance.
// PUT /api/balance
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	value, ok := h.parseAmountField(w, req.Value, "value")
	if !ok {
		return
	}
	if err := h.svc(r).SetBalance(r.Context(), value); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Value: value.String()})
}

// =============================================================================
// BILL PAYMENTS
// =============================================================================

// PayBill marks a card's bill paid.
// POST /api/bills/pay
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	card, amount, month, ok := h.parsePayRequest(w, r)
	if !ok {
		return
	}
	if err := h.svc(r).PayBill(r.Context(), card, amount, month); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PayPartial records a partial payment.
// POST /api/bills/pay-partial
func (h *Handler) PayPartial(w http.ResponseWriter, r *http.Request) {
	card, amount, month, ok := h.parsePayRequest(w, r)
	if !ok {
		return
	}
	if err := h.svc(r).PayPartial(r.Context(), card, amount, month); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReversePayment undoes a full bill payment.
// POST /api/bills/reverse
func (h *Handler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	var req ReverseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	month, ok := h.parseMonthField(w, req.Month)
	if !ok {
		return
	}
	if err := h.svc(r).ReverseBillPayment(r.Context(), req.Card, month); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PayItem pays a single statement line ahead of the bill.
// POST /api/bills/pay-item
func (h *Handler) PayItem(w http.ResponseWriter, r *http.Request) {
	var req PayItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := h.parseAmountField(w, req.Amount, "amount")
	if !ok {
		return
	}
	month, ok := h.parseMonthField(w, req.Month)
	if !ok {
		return
	}
	if err := h.svc(r).PayLineItem(r.Context(), req.Description, amount, month); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parsePayRequest(w http.ResponseWriter, r *http.Request) (string, decimal.Decimal, billing.Month, bool) {
	var req PayRequest
	if !decodeBody(w, r, &req) {
		return "", decimal.Zero, billing.Month{}, false
	}
	amount, ok := h.parseAmountField(w, req.Amount, "amount")
	if !ok {
		return "", decimal.Zero, billing.Month{}, false
	}
	month, ok := h.parseMonthField(w, req.Month)
	if !ok {
		return "", decimal.Zero, billing.Month{}, false
	}
	return req.Card, amount, month, true
}

// =============================================================================
// CARDS
// =============================================================================

// ListCards returns all cards sorted by name.
// GET /api/cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc(r).Cards(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]CardDTO, 0, len(cards))
	for _, card := range cards {
		dtos = append(dtos, toCardDTO(card))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCard adds a card.
// POST /api/cards
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.svc(r).CreateCard(r.Context(), cardInputFrom(req))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id})
}

// UpdateCard replaces a card's configuration.
// PUT /api/cards/{id}
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.svc(r).UpdateCard(r.Context(), chi.URLParam(r, "id"), cardInputFrom(req))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCard removes a card.
// DELETE /api/cards/{id}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc(r).DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BlockCard toggles the blocked flag.
// POST /api/cards/{id}/block
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.svc(r).SetCardBlocked(r.Context(), chi.URLParam(r, "id"), req.Blocked)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func cardInputFrom(req CardRequest) finance.CardInput {
	return finance.CardInput{
		Name:        req.Name,
		Icon:        req.Icon,
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
		CreditLimit: req.CreditLimit,
	}
}

// =============================================================================
// EXPENSES
// =============================================================================

// CreateExpense records an expense.
// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseExpense(w, r)
	if !ok {
		return
	}
	id, err := h.svc(r).AddExpense(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id})
}

// UpdateExpense edits an expense in place.
// PUT /api/expenses/{month}/{id}
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	in, ok := h.parseExpense(w, r)
	if !ok {
		return
	}
	err := h.svc(r).UpdateExpense(r.Context(), month, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteExpense removes an expense.
// DELETE /api/expenses/{month}/{id}
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	err := h.svc(r).DeleteExpense(r.Context(), month, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AttachReceipt uploads a receipt file for an expense.
// POST /api/expenses/{month}/{id}/receipt  (multipart field "file")
func (h *Handler) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing multipart field 'file'", err)
		return
	}
	defer file.Close()

	err = h.svc(r).AttachReceipt(r.Context(), month, chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseExpense(w http.ResponseWriter, r *http.Request) (finance.ExpenseInput, bool) {
	var req ExpenseRequest
	if !decodeBody(w, r, &req) {
		return finance.ExpenseInput{}, false
	}
	amount, ok := h.parseAmountField(w, req.Amount, "amount")
	if !ok {
		return finance.ExpenseInput{}, false
	}
	return finance.ExpenseInput{
		Date:          req.Date,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Amount:        amount,
	}, true
}

// =============================================================================
// FIXED BILLS
// =============================================================================

// CreateFixedBill records a fixed bill (always pending).
// POST /api/fixed
func (h *Handler) CreateFixedBill(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseFixedBill(w, r)
	if !ok {
		return
	}
	id, err := h.svc(r).AddFixedBill(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id})
}

// SetFixedStatus flips a fixed bill between pending and paid.
// POST /api/fixed/{month}/{id}/status
func (h *Handler) SetFixedStatus(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.svc(r).SetFixedStatus(r.Context(), month, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateFixedBill edits a fixed bill.
// PUT /api/fixed/{month}/{id}
func (h *Handler) UpdateFixedBill(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	in, ok := h.parseFixedBill(w, r)
	if !ok {
		return
	}
	err := h.svc(r).UpdateFixedBill(r.Context(), month, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFixedBill removes a fixed bill.
// DELETE /api/fixed/{month}/{id}
func (h *Handler) DeleteFixedBill(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	err := h.svc(r).DeleteFixedBill(r.Context(), month, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseFixedBill(w http.ResponseWriter, r *http.Request) (finance.FixedBillInput, bool) {
	var req FixedBillRequest
	if !decodeBody(w, r, &req) {
		return finance.FixedBillInput{}, false
	}
	amount, ok := h.parseAmountField(w, req.Amount, "amount")
	if !ok {
		return finance.FixedBillInput{}, false
	}
	return finance.FixedBillInput{
		Date:          req.Date,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Amount:        amount,
	}, true
}

// =============================================================================
// INCOME
// =============================================================================

// CreateIncome records income and credits the balance.
// POST /api/income
func (h *Handler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseIncome(w, r)
	if !ok {
		return
	}
	id, err := h.svc(r).AddIncome(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id})
}

// UpdateIncome edits an income record, moving the balance by the delta.
// PUT /api/income/{month}/{id}
func (h *Handler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	in, ok := h.parseIncome(w, r)
	if !ok {
		return
	}
	err := h.svc(r).UpdateIncome(r.Context(), month, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteIncome removes an income record and debits the balance.
// DELETE /api/income/{month}/{id}
func (h *Handler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	err := h.svc(r).DeleteIncome(r.Context(), month, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseIncome(w http.ResponseWriter, r *http.Request) (finance.IncomeInput, bool) {
	var req IncomeRequest
	if !decodeBody(w, r, &req) {
		return finance.IncomeInput{}, false
	}
	amount, ok := h.parseAmountField(w, req.Amount, "amount")
	if !ok {
		return finance.IncomeInput{}, false
	}
	return finance.IncomeInput{Date: req.Date, Description: req.Description, Amount: amount}, true
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

// CreatePurchase stores an installment purchase master.
// POST /api/installments
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	total, ok := h.parseAmountField(w, req.TotalAmount, "totalAmount")
	if !ok {
		return
	}
	id, err := h.svc(r).CreatePurchase(r.Context(), finance.PurchaseInput{
		CardName:     req.CardName,
		Description:  req.Description,
		TotalAmount:  total,
		Installments: req.Installments,
		StartMonth:   req.StartMonth,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id})
}

// ReversePurchase marks a purchase reversed.
// POST /api/installments/{id}/reverse
func (h *Handler) ReversePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.svc(r).ReversePurchase(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettlePurchase pays off the remaining shares in cash.
// POST /api/installments/{id}/settle
func (h *Handler) SettlePurchase(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	month, ok := h.parseMonthField(w, req.Month)
	if !ok {
		return
	}
	err := h.svc(r).SettlePurchase(r.Context(), chi.URLParam(r, "id"), month)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INVESTMENTS
// =============================================================================

// ListPositions returns aggregated holdings.
// GET /api/investments
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc(r).Positions(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// CreateInvestment records a contribution or redemption.
// POST /api/investments
func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req InvestmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := h.parseAmountField(w, req.Amount, "amount")
	if !ok {
		return
	}
	id, err := h.svc(r).AddInvestment(r.Context(), finance.InvestmentInput{
		Date:       req.Date,
		Broker:     req.Broker,
		AssetClass: req.AssetClass,
		Asset:      req.Asset,
		Kind:       req.Kind,
		Amount:     amount,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id})
}

// =============================================================================
// DEV
// =============================================================================

// Seed wipes the user's tree and loads the demo dataset.
// POST /api/seed
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	month := billing.MonthOf(time.Now())
	if req.Month != "" {
		var ok bool
		if month, ok = h.parseMonthField(w, req.Month); !ok {
			return
		}
	}
	if err := h.svc(r).Seed(r.Context(), month); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PARSING AND RESPONSE HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func (h *Handler) queryMonth(w http.ResponseWriter, r *http.Request) (billing.Month, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return billing.MonthOf(time.Now()), true
	}
	return h.parseMonthField(w, raw)
}

func (h *Handler) pathMonth(w http.ResponseWriter, r *http.Request) (billing.Month, bool) {
	return h.parseMonthField(w, chi.URLParam(r, "month"))
}

func (h *Handler) parseMonthField(w http.ResponseWriter, raw string) (billing.Month, bool) {
	month, err := billing.ParseMonth(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid month %q (use YYYY-MM)", raw), err)
		return billing.Month{}, false
	}
	return month, true
}

func (h *Handler) parseAmountField(w http.ResponseWriter, raw, field string) (decimal.Decimal, bool) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s %q (use a decimal string)", field, raw), err)
		return decimal.Zero, false
	}
	return value, true
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *billing.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient cash balance", err)
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Record not found", err)
	case billing.IsClientError(err) || errors.Is(err, billing.ErrMalformedRecord):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, billing.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable", err)
	default:
		h.Log.Error().Err(err).Msg("unhandled handler error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
