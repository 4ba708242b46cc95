package quoting

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/domain"
	"github.com/fencecpq/quoteengine/internal/store"
)

// OptionView is a variation option with its selection state on one entry.
type OptionView struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	ValueDescription string          `json:"value_description"`
	AdditionalPrice  decimal.Decimal `json:"additional_price"`
	IsSelected       bool            `json:"is_selected"`
}

// GroupView is a variation group with all of its options.
type GroupView struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	SelectionType domain.SelectionMode `json:"selection_type"`
	IsRequired    bool                 `json:"is_required"`
	Options       []OptionView         `json:"options"`
}

// MaterializedEntry is the resolved view of a quote product entry.
type MaterializedEntry struct {
	ID              int64              `json:"id"`
	QuoteID         int64              `json:"quote_id"`
	ProductID       int64              `json:"product_id"`
	ProductName     string             `json:"product_name"`
	Role            domain.ProductRole `json:"role"`
	Quantity        decimal.Decimal    `json:"quantity_of_product_units"`
	Notes           string             `json:"notes"`
	VariationGroups []GroupView        `json:"variation_groups"`
}

func materialize(ctx context.Context, tx *store.Tx, entry domain.QuoteProductEntry) (MaterializedEntry, error) {
	product, err := tx.Product(ctx, entry.ProductID)
	if err != nil {
		return MaterializedEntry{}, err
	}
	groups, err := tx.ProductVariationGroups(ctx, product.ID)
	if err != nil {
		return MaterializedEntry{}, err
	}

	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		options, err := tx.GroupOptions(ctx, g.ID)
		if err != nil {
			return MaterializedEntry{}, err
		}
		optionViews := make([]OptionView, 0, len(options))
		for _, o := range options {
			optionViews = append(optionViews, OptionView{
				ID:               o.ID,
				Name:             o.Name,
				ValueDescription: o.ValueDescription,
				AdditionalPrice:  o.AdditionalPrice,
				IsSelected:       slices.Contains(entry.SelectedOptionIDs, o.ID),
			})
		}
		views = append(views, GroupView{
			ID:            g.ID,
			Name:          g.Name,
			SelectionType: g.Mode,
			IsRequired:    g.IsRequired,
			Options:       optionViews,
		})
	}

	return MaterializedEntry{
		ID:              entry.ID,
		QuoteID:         entry.QuoteID,
		ProductID:       entry.ProductID,
		ProductName:     product.Name,
		Role:            entry.Role,
		Quantity:        entry.Quantity,
		Notes:           entry.Notes,
		VariationGroups: views,
	}, nil
}

// NewQuote holds the fields needed to open a quote.
type NewQuote struct {
	Name        string
	Description string
	Type        domain.QuoteType
	ConfigID    int64
}

// CreateQuote opens a draft quote bound to an existing config.
func (s *Service) CreateQuote(ctx context.Context, in NewQuote) (domain.Quote, error) {
	if in.Type == "" {
		in.Type = domain.QuoteGeneral
	}
	if !in.Type.Valid() {
		return domain.Quote{}, fmt.Errorf("%w: unknown quote type %q", domain.ErrValidation, in.Type)
	}

	var created domain.Quote
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.QuoteConfig(ctx, in.ConfigID); err != nil {
			return err
		}
		now := s.now()
		var err error
		created, err = tx.CreateQuote(ctx, domain.Quote{
			Name:        in.Name,
			Description: in.Description,
			Status:      domain.StatusDraft,
			Type:        in.Type,
			ConfigID:    in.ConfigID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return err
	})
	if err != nil {
		s.logger.Error("create quote failed", zap.Error(err))
		return domain.Quote{}, err
	}

	s.logger.Info("quote created", zap.Int64("quote_id", created.ID), zap.String("quote_type", string(created.Type)))
	return created, nil
}

// GetQuote returns a quote header.
func (s *Service) GetQuote(ctx context.Context, quoteID int64) (domain.Quote, error) {
	var q domain.Quote
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		q, err = tx.Quote(ctx, quoteID)
		return err
	})
	return q, err
}

// SetQuoteStatus sets a free-form, non-empty status on a quote.
func (s *Service) SetQuoteStatus(ctx context.Context, quoteID int64, status string) (domain.Quote, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return domain.Quote{}, fmt.Errorf("%w: status is required", domain.ErrValidation)
	}

	var q domain.Quote
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateQuoteStatus(ctx, quoteID, status, s.now()); err != nil {
			return err
		}
		var err error
		q, err = tx.Quote(ctx, quoteID)
		return err
	})
	if err != nil {
		s.logger.Warn("set quote status failed", zap.Int64("quote_id", quoteID), zap.Error(err))
		return domain.Quote{}, err
	}

	s.logger.Info("quote status set", zap.Int64("quote_id", quoteID), zap.String("status", status))
	return q, nil
}

// SetQuoteUIState stores an opaque client marker on a quote.
func (s *Service) SetQuoteUIState(ctx context.Context, quoteID int64, uiState string) (domain.Quote, error) {
	if utf8.RuneCountInString(uiState) > domain.MaxUIStateLength {
		return domain.Quote{}, fmt.Errorf("%w: ui_state exceeds %d characters", domain.ErrValidation, domain.MaxUIStateLength)
	}

	var q domain.Quote
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateQuoteUIState(ctx, quoteID, uiState, s.now()); err != nil {
			return err
		}
		var err error
		q, err = tx.Quote(ctx, quoteID)
		return err
	})
	if err != nil {
		s.logger.Warn("set quote ui state failed", zap.Int64("quote_id", quoteID), zap.Error(err))
		return domain.Quote{}, err
	}

	s.logger.Debug("quote ui state set", zap.Int64("quote_id", quoteID), zap.String("ui_state", uiState))
	return q, nil
}

// ListQuotes returns previews of quotes of one type, most recently updated first.
func (s *Service) ListQuotes(ctx context.Context, quoteType domain.QuoteType, page store.Page) ([]domain.QuotePreview, error) {
	if !quoteType.Valid() {
		return nil, fmt.Errorf("%w: unknown quote type %q", domain.ErrValidation, quoteType)
	}

	var previews []domain.QuotePreview
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		previews, err = tx.ListQuotes(ctx, quoteType, page)
		return err
	})
	return previews, err
}

// NewEntry holds the fields needed to add a product to a quote.
type NewEntry struct {
	ProductID int64
	Quantity  decimal.Decimal
	Role      domain.ProductRole
	Notes     string
}

// AddProductEntry adds a product line to a quote. A quote holds at most one main entry.
func (s *Service) AddProductEntry(ctx context.Context, quoteID int64, in NewEntry) (MaterializedEntry, error) {
	if in.Role == "" {
		in.Role = domain.RoleDefault
	}
	if !in.Role.Valid() {
		return MaterializedEntry{}, fmt.Errorf("%w: unknown product role %q", domain.ErrValidation, in.Role)
	}
	if !in.Quantity.IsPositive() {
		return MaterializedEntry{}, fmt.Errorf("%w: quantity must be greater than 0", domain.ErrValidation)
	}

	log := s.logger.With(zap.Int64("quote_id", quoteID), zap.Int64("product_id", in.ProductID))

	var view MaterializedEntry
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.Quote(ctx, quoteID); err != nil {
			return err
		}
		if _, err := tx.Product(ctx, in.ProductID); err != nil {
			return err
		}
		if in.Role == domain.RoleMain {
			exists, err := tx.HasEntryWithRole(ctx, quoteID, domain.RoleMain)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: quote %d already has a main product", domain.ErrValidation, quoteID)
			}
		}

		entry, err := tx.CreateEntry(ctx, domain.QuoteProductEntry{
			QuoteID:   quoteID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Notes:     in.Notes,
			Role:      in.Role,
		})
		if err != nil {
			return err
		}
		view, err = materialize(ctx, tx, entry)
		return err
	})
	if err != nil {
		log.Warn("add product entry failed", zap.Error(err))
		return MaterializedEntry{}, err
	}

	log.Info("product entry added", zap.Int64("entry_id", view.ID))
	return view, nil
}

// DeleteProductEntry removes an entry that belongs to quoteID.
func (s *Service) DeleteProductEntry(ctx context.Context, quoteID, entryID int64) error {
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		entry, err := tx.Entry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.QuoteID != quoteID {
			return fmt.Errorf("%w: entry %d does not belong to quote %d", domain.ErrValidation, entryID, quoteID)
		}
		return tx.DeleteEntry(ctx, entryID)
	})
	if err != nil {
		s.logger.Warn("delete product entry failed",
			zap.Int64("quote_id", quoteID), zap.Int64("entry_id", entryID), zap.Error(err))
		return err
	}
	return nil
}

// GetProductEntry returns one materialized entry.
func (s *Service) GetProductEntry(ctx context.Context, entryID int64) (MaterializedEntry, error) {
	var view MaterializedEntry
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		entry, err := tx.Entry(ctx, entryID)
		if err != nil {
			return err
		}
		view, err = materialize(ctx, tx, entry)
		return err
	})
	return view, err
}

// ListProductEntries returns the entries of a quote with the given role, materialized
// and ordered by id. An empty role lists every entry.
func (s *Service) ListProductEntries(ctx context.Context, quoteID int64, role domain.ProductRole) ([]MaterializedEntry, error) {
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: unknown product role %q", domain.ErrValidation, role)
	}

	var views []MaterializedEntry
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.Quote(ctx, quoteID); err != nil {
			return err
		}
		entries, err := tx.QuoteEntries(ctx, quoteID, role)
		if err != nil {
			return err
		}
		views = make([]MaterializedEntry, 0, len(entries))
		for _, e := range entries {
			v, err := materialize(ctx, tx, e)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}
