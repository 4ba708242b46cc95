package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fencecpq/quoteengine/internal/domain"
)

// CalculatedQuote loads the stored calculation of a quote.
func (t *Tx) CalculatedQuote(ctx context.Context, quoteID int64) (domain.CalculatedQuote, error) {
	var (
		cq                 domain.CalculatedQuote
		bomJSON, ratesJSON string
		calculatedAt       string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT
			id,
			quote_id,
			bill_of_materials_json,
			total_material_cost,
			total_labor_cost,
			cost_of_goods_sold,
			applied_rates_info_json,
			subtotal_before_tax,
			tax_amount,
			final_price,
			calculated_at
		FROM calculated_quotes
		WHERE quote_id = ?
	`, quoteID).Scan(
		&cq.ID,
		&cq.QuoteID,
		&bomJSON,
		&cq.TotalMaterialCost,
		&cq.TotalLaborCost,
		&cq.CostOfGoodsSold,
		&ratesJSON,
		&cq.SubtotalBeforeTax,
		&cq.TaxAmount,
		&cq.FinalPrice,
		&calculatedAt,
	)
	if err != nil {
		return domain.CalculatedQuote{}, notFound(err, "calculated quote for quote", quoteID)
	}

	if err := json.Unmarshal([]byte(bomJSON), &cq.BillOfMaterials); err != nil {
		return domain.CalculatedQuote{}, fmt.Errorf("decode bill of materials: %w", err)
	}
	if err := json.Unmarshal([]byte(ratesJSON), &cq.AppliedRates); err != nil {
		return domain.CalculatedQuote{}, fmt.Errorf("decode applied rates: %w", err)
	}
	if cq.CalculatedAt, err = parseTime(calculatedAt); err != nil {
		return domain.CalculatedQuote{}, err
	}
	return cq, nil
}

// SaveCalculatedQuote overwrites the quote's stored calculation in place, or inserts it
// when none exists. It reports whether a new row was created.
func (t *Tx) SaveCalculatedQuote(ctx context.Context, cq domain.CalculatedQuote) (domain.CalculatedQuote, bool, error) {
	bomJSON, err := marshalList(cq.BillOfMaterials)
	if err != nil {
		return domain.CalculatedQuote{}, false, fmt.Errorf("encode bill of materials: %w", err)
	}
	ratesJSON, err := marshalList(cq.AppliedRates)
	if err != nil {
		return domain.CalculatedQuote{}, false, fmt.Errorf("encode applied rates: %w", err)
	}

	var existingID int64
	err = t.tx.QueryRowContext(ctx, `SELECT id FROM calculated_quotes WHERE quote_id = ?`, cq.QuoteID).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := t.tx.ExecContext(ctx, `
			INSERT INTO calculated_quotes (
				quote_id,
				bill_of_materials_json,
				total_material_cost,
				total_labor_cost,
				cost_of_goods_sold,
				applied_rates_info_json,
				subtotal_before_tax,
				tax_amount,
				final_price,
				calculated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			cq.QuoteID,
			bomJSON,
			cq.TotalMaterialCost,
			cq.TotalLaborCost,
			cq.CostOfGoodsSold,
			ratesJSON,
			cq.SubtotalBeforeTax,
			cq.TaxAmount,
			cq.FinalPrice,
			formatTime(cq.CalculatedAt),
		)
		if err != nil {
			return domain.CalculatedQuote{}, false, fmt.Errorf("insert calculated quote: %w", err)
		}
		if cq.ID, err = result.LastInsertId(); err != nil {
			return domain.CalculatedQuote{}, false, fmt.Errorf("read calculated quote id: %w", err)
		}
		return cq, true, nil
	case err != nil:
		return domain.CalculatedQuote{}, false, fmt.Errorf("query calculated quote: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE calculated_quotes
		SET
			bill_of_materials_json = ?,
			total_material_cost = ?,
			total_labor_cost = ?,
			cost_of_goods_sold = ?,
			applied_rates_info_json = ?,
			subtotal_before_tax = ?,
			tax_amount = ?,
			final_price = ?,
			calculated_at = ?
		WHERE id = ?
	`,
		bomJSON,
		cq.TotalMaterialCost,
		cq.TotalLaborCost,
		cq.CostOfGoodsSold,
		ratesJSON,
		cq.SubtotalBeforeTax,
		cq.TaxAmount,
		cq.FinalPrice,
		formatTime(cq.CalculatedAt),
		existingID,
	)
	if err != nil {
		return domain.CalculatedQuote{}, false, fmt.Errorf("update calculated quote: %w", err)
	}
	cq.ID = existingID
	return cq, false, nil
}

// marshalList encodes a nil slice as an empty JSON array.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
