package finance

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// LEDGER SOURCE ADAPTER
// =============================================================================
// Normalizes the stored document trees into the billing.Ledger the pure
// aggregation core consumes. Rollover can push a charge any number of months
// forward, so the adapter always loads the FULL history, not a window.
//
// Malformed records (missing date, unparseable amount) are logged at warn
// level and skipped. A user's whole view must not go dark because one row
// was hand-edited badly.

// LoadLedger fetches every month of expenses, fixed bills, installment
// masters and markers, and legacy pending items.
func (s *Service) LoadLedger(ctx context.Context) (*billing.Ledger, error) {
	ledger := billing.NewLedger()

	if err := s.loadExpenses(ctx, ledger); err != nil {
		return nil, err
	}
	if err := s.loadFixed(ctx, ledger); err != nil {
		return nil, err
	}
	if err := s.loadInstallments(ctx, ledger); err != nil {
		return nil, err
	}
	if err := s.loadPending(ctx, ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (s *Service) loadExpenses(ctx context.Context, ledger *billing.Ledger) error {
	var months map[string]map[string]expenseRecord
	if err := s.getTree(ctx, s.expensesPath(), &months); err != nil {
		return err
	}
	for monthKey, records := range months {
		m, err := billing.ParseMonth(monthKey)
		if err != nil {
			s.warnSkip(s.expenseMonth(monthKey), "bad month key")
			continue
		}
		for id, rec := range records {
			charge, ok := s.normalizeCharge(id, monthKey, rec.Date, rec.Category,
				rec.Description, rec.PaymentMethod, rec.Amount, billing.SourceVariable, "")
			if !ok {
				continue
			}
			ledger.ChargesByMonth[m] = append(ledger.ChargesByMonth[m], charge)
		}
	}
	return nil
}

func (s *Service) loadFixed(ctx context.Context, ledger *billing.Ledger) error {
	var months map[string]map[string]fixedRecord
	if err := s.getTree(ctx, s.fixedPath(), &months); err != nil {
		return err
	}
	for monthKey, records := range months {
		m, err := billing.ParseMonth(monthKey)
		if err != nil {
			s.warnSkip(s.fixedMonth(monthKey), "bad month key")
			continue
		}
		for id, rec := range records {
			charge, ok := s.normalizeCharge(id, monthKey, rec.Date, rec.Category,
				rec.Description, rec.PaymentMethod, rec.Amount, billing.SourceFixed, rec.Status)
			if !ok {
				continue
			}
			ledger.ChargesByMonth[m] = append(ledger.ChargesByMonth[m], charge)
		}
	}
	return nil
}

func (s *Service) normalizeCharge(id, monthKey, date, category, description,
	method, amount string, source billing.ChargeSource, status string) (billing.Charge, bool) {

	when, err := time.Parse("2006-01-02", date)
	if err != nil {
		s.warnSkip(monthKey+"/"+id, "missing or malformed date")
		return billing.Charge{}, false
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		s.warnSkip(monthKey+"/"+id, "unparseable amount "+amount)
		return billing.Charge{}, false
	}
	return billing.Charge{
		ID:            id,
		Date:          when,
		Category:      category,
		Description:   description,
		PaymentMethod: method,
		Amount:        value,
		Source:        source,
		Status:        status,
	}, true
}

func (s *Service) loadInstallments(ctx context.Context, ledger *billing.Ledger) error {
	var tree map[string]json.RawMessage
	if err := s.getTree(ctx, s.installmentsPath(), &tree); err != nil {
		return err
	}

	for _, id := range sortedKeys(tree) {
		if id == markersKey {
			if err := s.loadMarkers(tree[id], ledger); err != nil {
				return err
			}
			continue
		}
		var rec purchaseRecord
		if err := json.Unmarshal(tree[id], &rec); err != nil {
			s.warnSkip(s.purchasePath(id), "malformed purchase")
			continue
		}
		start, err := billing.ParseMonth(rec.StartMonth)
		if err != nil {
			s.warnSkip(s.purchasePath(id), "missing start month")
			continue
		}
		total, err := decimal.NewFromString(rec.TotalAmount)
		if err != nil || rec.Installments < 1 {
			s.warnSkip(s.purchasePath(id), "unparseable total or installment count")
			continue
		}
		status := billing.PurchaseStatus(rec.Status)
		if status == "" {
			status = billing.PurchaseActive
		}
		ledger.Purchases = append(ledger.Purchases, billing.InstallmentPurchase{
			ID:           id,
			CardName:     rec.CardName,
			Description:  rec.Description,
			TotalAmount:  total,
			Installments: rec.Installments,
			StartMonth:   start,
			Status:       status,
		})
	}
	return nil
}

func (s *Service) loadMarkers(raw json.RawMessage, ledger *billing.Ledger) error {
	var months map[string]map[string]markerRecord
	if err := json.Unmarshal(raw, &months); err != nil {
		s.warnSkip(s.installmentsPath()+"/"+markersKey, "malformed marker tree")
		return nil
	}
	for monthKey, records := range months {
		m, err := billing.ParseMonth(monthKey)
		if err != nil {
			s.warnSkip(s.markersMonth(monthKey), "bad month key")
			continue
		}
		for id, rec := range records {
			amount, err := decimal.NewFromString(rec.Amount)
			if err != nil {
				s.warnSkip(s.markersMonth(monthKey)+"/"+id, "unparseable amount")
				continue
			}
			ledger.MarkersByMonth[m] = append(ledger.MarkersByMonth[m], billing.InstallmentMarker{
				PurchaseID: rec.PurchaseID,
				Number:     rec.Number,
				Amount:     amount,
				Status:     rec.Status,
			})
		}
	}
	return nil
}

func (s *Service) loadPending(ctx context.Context, ledger *billing.Ledger) error {
	var months map[string]map[string]pendingRecord
	if err := s.getTree(ctx, s.pendingPath(), &months); err != nil {
		return err
	}
	for monthKey, records := range months {
		m, err := billing.ParseMonth(monthKey)
		if err != nil {
			s.warnSkip(s.pendingMonth(monthKey), "bad month key")
			continue
		}
		for id, rec := range records {
			amount, err := decimal.NewFromString(rec.Amount)
			if err != nil {
				// Legacy payment markers matter even with a broken amount;
				// IsPaid only needs description and status.
				amount = decimal.Zero
			}
			ledger.PendingByMonth[m] = append(ledger.PendingByMonth[m], billing.PendingItem{
				ID:          id,
				Description: rec.Description,
				Amount:      amount,
				Status:      strings.ToLower(rec.Status),
			})
		}
	}
	return nil
}

// Cards loads the card configuration sorted by name.
func (s *Service) Cards(ctx context.Context) ([]billing.Card, error) {
	var records map[string]cardRecord
	if err := s.getTree(ctx, s.cardsPath(), &records); err != nil {
		return nil, err
	}
	cards := make([]billing.Card, 0, len(records))
	for _, id := range sortedKeys(records) {
		rec := records[id]
		limit, err := decimal.NewFromString(rec.CreditLimit)
		if err != nil {
			s.warnSkip(s.cardPath(id), "unparseable credit limit")
			limit = decimal.Zero
		}
		cards = append(cards, billing.Card{
			ID:          id,
			Name:        rec.Name,
			Icon:        rec.Icon,
			ClosingDay:  rec.ClosingDay,
			DueDay:      rec.DueDay,
			CreditLimit: limit,
			Blocked:     rec.Blocked,
		})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return cards, nil
}

// View loads the ledger and cards and aggregates the displayed month.
func (s *Service) View(ctx context.Context, displayed billing.Month) (billing.View, error) {
	ledger, err := s.LoadLedger(ctx)
	if err != nil {
		return billing.View{}, err
	}
	cards, err := s.Cards(ctx)
	if err != nil {
		return billing.View{}, err
	}
	return billing.Aggregate(ledger, cards, displayed), nil
}

func (s *Service) warnSkip(path, reason string) {
	s.log.Warn().Str("path", path).Str("reason", reason).Msg("skipping malformed record")
}
