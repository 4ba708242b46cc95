package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fencecpq/quoteengine/internal/domain"
)

// QuoteConfig loads a quote config.
func (t *Tx) QuoteConfig(ctx context.Context, id int64) (domain.QuoteConfig, error) {
	var c domain.QuoteConfig
	err := t.tx.QueryRowContext(ctx, `
		SELECT
			id,
			name,
			sales_commission_rate,
			franchise_fee_rate,
			margin_rate,
			tax_rate,
			additional_fixed_fees,
			round_up_materials
		FROM quote_configs
		WHERE id = ?
	`, id).Scan(
		&c.ID,
		&c.Name,
		&c.SalesCommissionRate,
		&c.FranchiseFeeRate,
		&c.MarginRate,
		&c.TaxRate,
		&c.AdditionalFixedFees,
		&c.RoundUpMaterials,
	)
	if err != nil {
		return domain.QuoteConfig{}, notFound(err, "quote config", id)
	}
	return c, nil
}

// Quote loads a quote header.
func (t *Tx) Quote(ctx context.Context, id int64) (domain.Quote, error) {
	var (
		q                domain.Quote
		configID         sql.NullInt64
		created, updated string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT
			id,
			COALESCE(name, ''),
			COALESCE(description, ''),
			quote_config_id,
			status,
			quote_type,
			COALESCE(ui_state, ''),
			created_at,
			updated_at
		FROM quotes
		WHERE id = ?
	`, id).Scan(&q.ID, &q.Name, &q.Description, &configID, &q.Status, &q.Type, &q.UIState, &created, &updated)
	if err != nil {
		return domain.Quote{}, notFound(err, "quote", id)
	}

	q.ConfigID = configID.Int64
	if q.CreatedAt, err = parseTime(created); err != nil {
		return domain.Quote{}, err
	}
	if q.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// CreateQuote inserts q and returns it with its id.
func (t *Tx) CreateQuote(ctx context.Context, q domain.Quote) (domain.Quote, error) {
	var configID sql.NullInt64
	if q.ConfigID != 0 {
		configID = sql.NullInt64{Int64: q.ConfigID, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO quotes (name, description, quote_config_id, status, quote_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.Name, q.Description, configID, q.Status, q.Type, formatTime(q.CreatedAt), formatTime(q.UpdatedAt))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	if q.ID, err = result.LastInsertId(); err != nil {
		return domain.Quote{}, fmt.Errorf("read quote id: %w", err)
	}
	return q, nil
}

// UpdateQuoteStatus sets a quote's status and bumps updated_at.
func (t *Tx) UpdateQuoteStatus(ctx context.Context, id int64, status string, now time.Time) error {
	return t.updateQuote(ctx, "status", `UPDATE quotes SET status = ?, updated_at = ? WHERE id = ?`, id, status, now)
}

// UpdateQuoteUIState stores the client ui marker and bumps updated_at.
func (t *Tx) UpdateQuoteUIState(ctx context.Context, id int64, uiState string, now time.Time) error {
	return t.updateQuote(ctx, "ui state", `UPDATE quotes SET ui_state = ?, updated_at = ? WHERE id = ?`, id, uiState, now)
}

func (t *Tx) updateQuote(ctx context.Context, field, query string, id int64, value string, now time.Time) error {
	result, err := t.tx.ExecContext(ctx, query, value, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("update quote %s: %w", field, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quote %s: %w", field, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: quote %d", domain.ErrNotFound, id)
	}
	return nil
}

// ListQuotes returns previews of quotes of one type, most recently updated first.
func (t *Tx) ListQuotes(ctx context.Context, quoteType domain.QuoteType, page Page) ([]domain.QuotePreview, error) {
	limit, offset := page.bounds()
	rows, err := t.tx.QueryContext(ctx, `
		SELECT
			id,
			COALESCE(name, ''),
			COALESCE(description, ''),
			status,
			quote_type,
			updated_at
		FROM quotes
		WHERE quote_type = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, quoteType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	previews := make([]domain.QuotePreview, 0)
	for rows.Next() {
		var (
			p       domain.QuotePreview
			updated string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Type, &updated); err != nil {
			return nil, fmt.Errorf("scan quote preview: %w", err)
		}
		if p.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return previews, nil
}

const entryColumns = `
	id,
	quote_id,
	product_id,
	quantity_of_product_units,
	COALESCE(notes, ''),
	role
`

func scanEntry(row interface{ Scan(...any) error }, e *domain.QuoteProductEntry) error {
	return row.Scan(&e.ID, &e.QuoteID, &e.ProductID, &e.Quantity, &e.Notes, &e.Role)
}

// Entry loads one quote product entry with its current selections.
func (t *Tx) Entry(ctx context.Context, id int64) (domain.QuoteProductEntry, error) {
	var e domain.QuoteProductEntry
	row := t.tx.QueryRowContext(ctx, `SELECT`+entryColumns+`FROM quote_product_entries WHERE id = ?`, id)
	if err := scanEntry(row, &e); err != nil {
		return domain.QuoteProductEntry{}, notFound(err, "quote product entry", id)
	}

	selected, err := t.selectedOptionIDs(ctx, id)
	if err != nil {
		return domain.QuoteProductEntry{}, err
	}
	e.SelectedOptionIDs = selected
	return e, nil
}

// QuoteEntries lists a quote's entries ordered by id, each with its selections.
// An empty role matches every role.
func (t *Tx) QuoteEntries(ctx context.Context, quoteID int64, role domain.ProductRole) ([]domain.QuoteProductEntry, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT`+entryColumns+`
		FROM quote_product_entries
		WHERE quote_id = ? AND (? = '' OR role = ?)
		ORDER BY id
	`, quoteID, role, role)
	if err != nil {
		return nil, fmt.Errorf("query quote product entries: %w", err)
	}

	entries := make([]domain.QuoteProductEntry, 0)
	for rows.Next() {
		var e domain.QuoteProductEntry
		if err := scanEntry(rows, &e); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan quote product entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate quote product entries: %w", err)
	}
	rows.Close()

	for i := range entries {
		selected, err := t.selectedOptionIDs(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].SelectedOptionIDs = selected
	}
	return entries, nil
}

// CreateEntry inserts e and returns it with its id.
func (t *Tx) CreateEntry(ctx context.Context, e domain.QuoteProductEntry) (domain.QuoteProductEntry, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO quote_product_entries (quote_id, product_id, quantity_of_product_units, notes, role)
		VALUES (?, ?, ?, ?, ?)
	`, e.QuoteID, e.ProductID, e.Quantity, e.Notes, e.Role)
	if err != nil {
		return domain.QuoteProductEntry{}, fmt.Errorf("insert quote product entry: %w", err)
	}

	if e.ID, err = result.LastInsertId(); err != nil {
		return domain.QuoteProductEntry{}, fmt.Errorf("read quote product entry id: %w", err)
	}
	e.SelectedOptionIDs = []int64{}
	return e, nil
}

// DeleteEntry removes an entry; its selections cascade.
func (t *Tx) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM quote_product_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete quote product entry: %w", err)
	}
	return nil
}

// HasEntryWithRole reports whether the quote already holds an entry with role.
func (t *Tx) HasEntryWithRole(ctx context.Context, quoteID int64, role domain.ProductRole) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM quote_product_entries WHERE quote_id = ? AND role = ?)
	`, quoteID, role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check entry role: %w", err)
	}
	return exists, nil
}

func (t *Tx) selectedOptionIDs(ctx context.Context, entryID int64) ([]int64, error) {
	return t.optionIDs(ctx, `
		SELECT variation_option_id
		FROM quote_product_entry_variations
		WHERE quote_product_entry_id = ?
		ORDER BY variation_option_id
	`, entryID)
}

// SelectedOptionsInGroup lists the options of groupID currently selected on entryID.
func (t *Tx) SelectedOptionsInGroup(ctx context.Context, entryID, groupID int64) ([]int64, error) {
	return t.optionIDs(ctx, `
		SELECT sel.variation_option_id
		FROM quote_product_entry_variations sel
		JOIN variation_options o ON o.id = sel.variation_option_id
		WHERE sel.quote_product_entry_id = ? AND o.variation_group_id = ?
		ORDER BY sel.variation_option_id
	`, entryID, groupID)
}

func (t *Tx) optionIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query selected options: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan selected option: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selected options: %w", err)
	}
	return ids, nil
}

// AddSelection marks optionID as selected on entryID.
func (t *Tx) AddSelection(ctx context.Context, entryID, optionID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO quote_product_entry_variations (quote_product_entry_id, variation_option_id)
		VALUES (?, ?)
	`, entryID, optionID)
	if err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}

// RemoveSelection unselects optionID on entryID.
func (t *Tx) RemoveSelection(ctx context.Context, entryID, optionID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM quote_product_entry_variations
		WHERE quote_product_entry_id = ? AND variation_option_id = ?
	`, entryID, optionID)
	if err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	return nil
}
