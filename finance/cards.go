package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// CARD CONFIGURATION
// =============================================================================
// Card names key everything downstream (payment marker descriptions embed
// them), so they must be unique case-insensitively and renames are refused
// once the name exists elsewhere.

var validate = validator.New()

// CreateCard validates and stores a new card.
func (s *Service) CreateCard(ctx context.Context, in CardInput) (string, error) {
	if err := s.checkCardInput(in); err != nil {
		return "", err
	}
	if err := s.requireUniqueName(ctx, in.Name, ""); err != nil {
		return "", err
	}

	id, err := s.store.Push(ctx, s.cardsPath(), cardRecordFrom(in))
	if err != nil {
		return "", s.storeErr("write card", err)
	}
	s.log.Info().Str("card", in.Name).Msg("card created")
	return id, nil
}

// UpdateCard replaces a card's configuration.
func (s *Service) UpdateCard(ctx context.Context, id string, in CardInput) error {
	if err := s.checkCardInput(in); err != nil {
		return err
	}
	var existing cardRecord
	ok, err := s.getDoc(ctx, s.cardPath(id), &existing)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrCardNotFound, id)
	}
	if err := s.requireUniqueName(ctx, in.Name, id); err != nil {
		return err
	}

	rec := cardRecordFrom(in)
	rec.Blocked = existing.Blocked
	if err := s.store.Set(ctx, s.cardPath(id), rec); err != nil {
		return s.storeErr("update card", err)
	}
	return nil
}

// DeleteCard removes a card. Charges referencing the card stay in the
// ledger; they just no longer aggregate into a statement.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	var rec cardRecord
	ok, err := s.getDoc(ctx, s.cardPath(id), &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrCardNotFound, id)
	}
	if err := s.store.Delete(ctx, s.cardPath(id)); err != nil {
		return s.storeErr("delete card", err)
	}
	s.log.Info().Str("card", rec.Name).Msg("card deleted")
	return nil
}

// SetCardBlocked toggles the blocked flag. Blocked cards still aggregate;
// the flag only drives the rendering layer.
func (s *Service) SetCardBlocked(ctx context.Context, id string, blocked bool) error {
	var rec cardRecord
	ok, err := s.getDoc(ctx, s.cardPath(id), &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrCardNotFound, id)
	}
	err = s.store.Update(ctx, s.cardPath(id), map[string]any{"blocked": blocked})
	if err != nil {
		return s.storeErr("update card", err)
	}
	return nil
}

func (s *Service) checkCardInput(in CardInput) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", billing.ErrMalformedRecord, err)
	}
	limit, err := decimal.NewFromString(in.CreditLimit)
	if err != nil || limit.IsNegative() {
		return fmt.Errorf("%w: credit limit must be a non-negative number", billing.ErrMalformedRecord)
	}
	return nil
}

func (s *Service) requireUniqueName(ctx context.Context, name, selfID string) error {
	// Stored names are trimmed, so compare against the trimmed input or
	// " Visa " would slip past a stored "Visa".
	name = strings.TrimSpace(name)
	var records map[string]cardRecord
	if err := s.getTree(ctx, s.cardsPath(), &records); err != nil {
		return err
	}
	for id, rec := range records {
		if id != selfID && strings.EqualFold(rec.Name, name) {
			return fmt.Errorf("%w: %s", billing.ErrCardExists, name)
		}
	}
	return nil
}

func cardRecordFrom(in CardInput) cardRecord {
	return cardRecord{
		Name:        strings.TrimSpace(in.Name),
		Icon:        in.Icon,
		ClosingDay:  in.ClosingDay,
		DueDay:      in.DueDay,
		CreditLimit: in.CreditLimit,
	}
}
