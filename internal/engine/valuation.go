package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/market"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// Valuation is the current worth of a holding at one observed price.
type Valuation struct {
	CurrentValue decimal.Decimal
	ProfitLoss   decimal.Decimal
}

// Valuate computes a holding's value and profit/loss at the given unit
// price. Pure function; persisting the result is the batch path's job.
func Valuate(h *models.Holding, unitPrice decimal.Decimal) Valuation {
	currentValue := models.RoundUSD(h.Quantity.Mul(unitPrice))
	costBasis := models.RoundUSD(h.Quantity.Mul(h.PurchasePrice))
	return Valuation{
		CurrentValue: currentValue,
		ProfitLoss:   currentValue.Sub(costBasis),
	}
}

// ValuationService is the single writer of the cached current_value and
// profit_loss projections. Every other code path reads them.
type ValuationService struct {
	store  *ledger.Store
	prices market.PriceGateway
	log    zerolog.Logger
}

// NewValuationService creates a valuation service.
func NewValuationService(store *ledger.Store, prices market.PriceGateway, log zerolog.Logger) *ValuationService {
	return &ValuationService{
		store:  store,
		prices: prices,
		log:    log.With().Str("component", "valuation").Logger(),
	}
}

// RefreshUser revalues all of a user's open holdings from live prices.
// A failed price lookup leaves that holding at its last known value and
// moves on; stale-but-available beats aborting the sibling lots.
func (s *ValuationService) RefreshUser(ctx context.Context, userID int) ([]models.Holding, error) {
	holdings, err := s.store.Holdings.GetByUser(userID)
	if err != nil {
		return nil, err
	}

	for i := range holdings {
		h := &holdings[i]
		if h.Closed() {
			continue
		}

		price, err := s.prices.GetUnitPrice(ctx, h.AssetType, h.AssetSymbol)
		if err != nil {
			s.log.Warn().Err(err).
				Int("holding_id", h.ID).
				Str("symbol", h.AssetSymbol).
				Msg("Price lookup failed, keeping last valuation")
			continue
		}

		v := Valuate(h, price)
		now := time.Now()
		if err := s.store.Holdings.SetValuation(nil, h.ID, v.CurrentValue, v.ProfitLoss, now); err != nil {
			s.log.Error().Err(err).Int("holding_id", h.ID).Msg("Failed to persist valuation")
			continue
		}
		h.CurrentValue = v.CurrentValue
		h.ProfitLoss = v.ProfitLoss
		h.LastUpdated = now
	}

	return holdings, nil
}
