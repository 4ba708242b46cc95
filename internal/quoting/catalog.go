package quoting

import (
	"context"
	"fmt"
	"strings"

	"github.com/fencecpq/quoteengine/internal/domain"
	"github.com/fencecpq/quoteengine/internal/store"
)

// DefaultCategoryType is used when ListCategories is called without a type.
const DefaultCategoryType = "general"

// ListCategories returns the categories of one type ordered by name.
func (s *Service) ListCategories(ctx context.Context, categoryType string, page store.Page) ([]domain.CategoryPreview, error) {
	categoryType = strings.TrimSpace(categoryType)
	if categoryType == "" {
		categoryType = DefaultCategoryType
	}

	var categories []domain.CategoryPreview
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		categories, err = tx.Categories(ctx, categoryType, page)
		return err
	})
	return categories, err
}

// ListCategoryProducts returns the products of the named category ordered by name.
// An unknown category yields an empty list.
func (s *Service) ListCategoryProducts(ctx context.Context, categoryName string, page store.Page) ([]domain.ProductPreview, error) {
	if strings.TrimSpace(categoryName) == "" {
		return nil, fmt.Errorf("%w: category name is required", domain.ErrValidation)
	}

	products := []domain.ProductPreview{}
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		id, ok, err := tx.CategoryID(ctx, categoryName)
		if err != nil || !ok {
			return err
		}
		products, err = tx.CategoryProducts(ctx, id, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}
