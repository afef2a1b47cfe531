package finance

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// INVESTMENTS
// =============================================================================
// Contributions move cash out of the balance into a position; redemptions
// move it back. Positions are aggregated on read per (broker, class, asset).

func (s *Service) AddInvestment(ctx context.Context, in InvestmentInput) (string, error) {
	if in.Kind != InvestContribution && in.Kind != InvestRedemption {
		return "", fmt.Errorf("%w: kind must be contribution or redemption", billing.ErrMalformedRecord)
	}
	if !in.Amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", billing.ErrMalformedRecord)
	}
	if _, err := monthOfDate(in.Date); err != nil {
		return "", err
	}

	if in.Kind == InvestContribution {
		if err := s.requireFunds(ctx, in.Amount); err != nil {
			return "", err
		}
		if err := s.adjustBalance(ctx, in.Amount.Neg()); err != nil {
			return "", err
		}
	}

	rec := investmentRecord{
		Date:       in.Date,
		Broker:     in.Broker,
		AssetClass: in.AssetClass,
		Asset:      in.Asset,
		Kind:       in.Kind,
		Amount:     in.Amount.String(),
	}
	id, err := s.store.Push(ctx, s.investmentsPath(), rec)
	if err != nil {
		if in.Kind == InvestContribution {
			if rbErr := s.adjustBalance(ctx, in.Amount); rbErr != nil {
				s.log.Error().Err(rbErr).Msg("balance rollback failed after investment write failure")
			}
		}
		return "", s.storeErr("write investment", err)
	}

	if in.Kind == InvestRedemption {
		if err := s.adjustBalance(ctx, in.Amount); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Positions aggregates all investment movements into current holdings,
// sorted by broker then asset. Fully redeemed positions are kept at zero so
// history stays visible.
func (s *Service) Positions(ctx context.Context) ([]Position, error) {
	var records map[string]investmentRecord
	if err := s.getTree(ctx, s.investmentsPath(), &records); err != nil {
		return nil, err
	}

	type key struct{ broker, class, asset string }
	totals := make(map[key]decimal.Decimal)
	for id, rec := range records {
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			s.warnSkip(s.investmentsPath()+"/"+id, "unparseable amount")
			continue
		}
		k := key{rec.Broker, rec.AssetClass, rec.Asset}
		if rec.Kind == InvestRedemption {
			amount = amount.Neg()
		}
		totals[k] = totals[k].Add(amount)
	}

	positions := make([]Position, 0, len(totals))
	for k, invested := range totals {
		positions = append(positions, Position{
			Broker:     k.broker,
			AssetClass: k.class,
			Asset:      k.asset,
			Invested:   invested,
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Broker != positions[j].Broker {
			return positions[i].Broker < positions[j].Broker
		}
		return positions[i].Asset < positions[j].Asset
	})
	return positions, nil
}
