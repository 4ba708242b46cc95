package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fencecpq/quoteengine/internal/domain"
)

// Categories lists categories of one type ordered by name.
func (t *Tx) Categories(ctx context.Context, categoryType string, page Page) ([]domain.CategoryPreview, error) {
	limit, offset := page.bounds()
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, name, type, COALESCE(image_url, '')
		FROM product_categories
		WHERE type = ?
		ORDER BY name
		LIMIT ? OFFSET ?
	`, categoryType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.CategoryPreview, 0)
	for rows.Next() {
		var c domain.CategoryPreview
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.ImageURL); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// CategoryID resolves a category by name. The bool is false when no category matches.
func (t *Tx) CategoryID(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM product_categories WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query category %q: %w", name, err)
	}
	return id, true, nil
}

// CategoryProducts lists the products linked to categoryID ordered by name.
func (t *Tx) CategoryProducts(ctx context.Context, categoryID int64, page Page) ([]domain.ProductPreview, error) {
	limit, offset := page.bounds()
	rows, err := t.tx.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, ''), COALESCE(p.image_url, '')
		FROM products p
		JOIN product_category_links l ON l.product_id = p.id
		WHERE l.category_id = ?
		ORDER BY p.name
		LIMIT ? OFFSET ?
	`, categoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query category products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.ProductPreview, 0)
	for rows.Next() {
		var p domain.ProductPreview
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan product preview: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category products: %w", err)
	}
	return products, nil
}
