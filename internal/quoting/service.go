package quoting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/domain"
	"github.com/fencecpq/quoteengine/internal/pricing"
	"github.com/fencecpq/quoteengine/internal/store"
)

// Service coordinates quote editing, variation selection and calculation. Every
// operation runs in a single transaction.
type Service struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service over st.
func NewService(st *store.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: st, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate prices the quote, stores its single CalculatedQuote (overwriting any
// previous one) and marks the quote calculated. Nothing is written when any step fails.
func (s *Service) Calculate(ctx context.Context, quoteID int64) (domain.CalculatedQuote, error) {
	log := s.logger.With(zap.Int64("quote_id", quoteID))
	log.Info("starting quote calculation")

	var saved domain.CalculatedQuote
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		quote, err := tx.Quote(ctx, quoteID)
		if err != nil {
			return err
		}
		if quote.ConfigID == 0 {
			return fmt.Errorf("%w: quote config for quote %d", domain.ErrNotFound, quoteID)
		}
		cfg, err := tx.QuoteConfig(ctx, quote.ConfigID)
		if err != nil {
			return err
		}

		inputs, err := loadEntryInputs(ctx, tx, quoteID)
		if err != nil {
			return err
		}

		result, err := pricing.Calculate(inputs, cfg)
		if err != nil {
			return err
		}

		now := s.now()
		var inserted bool
		saved, inserted, err = tx.SaveCalculatedQuote(ctx, domain.CalculatedQuote{
			QuoteID:           quoteID,
			TotalMaterialCost: result.TotalMaterialCost,
			TotalLaborCost:    result.TotalLaborCost,
			CostOfGoodsSold:   result.CostOfGoodsSold,
			AppliedRates:      result.AppliedRates,
			SubtotalBeforeTax: result.SubtotalBeforeTax,
			TaxAmount:         result.TaxAmount,
			FinalPrice:        result.FinalPrice,
			BillOfMaterials:   result.BillOfMaterials,
			CalculatedAt:      now,
		})
		if err != nil {
			return err
		}
		if inserted {
			log.Debug("created calculated quote", zap.Int64("calculated_quote_id", saved.ID))
		} else {
			log.Debug("updated calculated quote", zap.Int64("calculated_quote_id", saved.ID))
		}

		return tx.UpdateQuoteStatus(ctx, quoteID, domain.StatusCalculated, now)
	})
	if err != nil {
		log.Error("quote calculation failed, rolled back", zap.Error(err))
		return domain.CalculatedQuote{}, err
	}

	log.Info("quote calculated", zap.String("final_price", saved.FinalPrice.String()))
	return saved, nil
}

// loadEntryInputs resolves every entry of the quote into pricing input. Products are
// loaded once per calculation.
func loadEntryInputs(ctx context.Context, tx *store.Tx, quoteID int64) ([]pricing.EntryInput, error) {
	entries, err := tx.QuoteEntries(ctx, quoteID, "")
	if err != nil {
		return nil, err
	}

	products := make(map[int64]domain.Product)
	inputs := make([]pricing.EntryInput, 0, len(entries))
	for _, e := range entries {
		product, ok := products[e.ProductID]
		if !ok {
			product, err = tx.Product(ctx, e.ProductID)
			if err != nil {
				return nil, err
			}
			products[e.ProductID] = product
		}

		options := make([]domain.VariationOption, 0, len(e.SelectedOptionIDs))
		for _, optionID := range e.SelectedOptionIDs {
			opt, err := tx.VariationOption(ctx, optionID)
			if err != nil {
				return nil, err
			}
			options = append(options, opt)
		}

		inputs = append(inputs, pricing.EntryInput{
			Quantity: e.Quantity,
			Product:  product,
			Options:  options,
		})
	}
	return inputs, nil
}

// GetCalculatedQuote returns the stored calculation of a quote.
func (s *Service) GetCalculatedQuote(ctx context.Context, quoteID int64) (domain.CalculatedQuote, error) {
	var cq domain.CalculatedQuote
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		cq, err = tx.CalculatedQuote(ctx, quoteID)
		return err
	})
	return cq, err
}
