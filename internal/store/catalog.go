package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fencecpq/quoteengine/internal/domain"
)

// Material loads a material with its base unit.
func (t *Tx) Material(ctx context.Context, id int64) (domain.Material, error) {
	var m domain.Material
	err := t.tx.QueryRowContext(ctx, `
		SELECT
			m.id,
			m.name,
			m.cost_per_supplier_unit,
			m.quantity_in_supplier_unit,
			m.cull_rate,
			u.id,
			u.name,
			u.category
		FROM materials m
		JOIN unit_types u ON u.id = m.base_unit_type_id
		WHERE m.id = ?
	`, id).Scan(
		&m.ID,
		&m.Name,
		&m.CostPerSupplierUnit,
		&m.QuantityInSupplierUnit,
		&m.CullRate,
		&m.BaseUnit.ID,
		&m.BaseUnit.Name,
		&m.BaseUnit.Category,
	)
	if err != nil {
		return domain.Material{}, notFound(err, "material", id)
	}
	return m, nil
}

type materialRef struct {
	materialID int64
	quantity   decimal.Decimal
}

func (t *Tx) materialRefs(ctx context.Context, query string, ownerID int64) ([]materialRef, error) {
	rows, err := t.tx.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query material refs: %w", err)
	}
	defer rows.Close()

	refs := make([]materialRef, 0)
	for rows.Next() {
		var ref materialRef
		if err := rows.Scan(&ref.materialID, &ref.quantity); err != nil {
			return nil, fmt.Errorf("scan material ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate material refs: %w", err)
	}
	return refs, nil
}

// Product loads a product with its base composition resolved.
func (t *Tx) Product(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, ''), unit_labor_cost
		FROM products
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.LaborCostUnit)
	if err != nil {
		return domain.Product{}, notFound(err, "product", id)
	}

	refs, err := t.materialRefs(ctx, `
		SELECT material_id, quantity_per_product_unit
		FROM product_materials
		WHERE product_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return domain.Product{}, err
	}

	p.Materials = make([]domain.ProductMaterial, 0, len(refs))
	for _, ref := range refs {
		m, err := t.Material(ctx, ref.materialID)
		if err != nil {
			return domain.Product{}, err
		}
		p.Materials = append(p.Materials, domain.ProductMaterial{Material: m, QuantityPerUnit: ref.quantity})
	}
	return p, nil
}

// VariationGroup loads one variation group.
func (t *Tx) VariationGroup(ctx context.Context, id int64) (domain.VariationGroup, error) {
	var g domain.VariationGroup
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, product_id, name, selection_type, is_required
		FROM variation_groups
		WHERE id = ?
	`, id).Scan(&g.ID, &g.ProductID, &g.Name, &g.Mode, &g.IsRequired)
	if err != nil {
		return domain.VariationGroup{}, notFound(err, "variation group", id)
	}
	return g, nil
}

// ProductVariationGroups lists a product's groups ordered by id.
func (t *Tx) ProductVariationGroups(ctx context.Context, productID int64) ([]domain.VariationGroup, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, product_id, name, selection_type, is_required
		FROM variation_groups
		WHERE product_id = ?
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query variation groups: %w", err)
	}
	defer rows.Close()

	groups := make([]domain.VariationGroup, 0)
	for rows.Next() {
		var g domain.VariationGroup
		if err := rows.Scan(&g.ID, &g.ProductID, &g.Name, &g.Mode, &g.IsRequired); err != nil {
			return nil, fmt.Errorf("scan variation group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variation groups: %w", err)
	}
	return groups, nil
}

const optionColumns = `
	id,
	variation_group_id,
	name,
	COALESCE(value_description, ''),
	additional_price,
	additional_labor_cost_per_product_unit
`

// GroupOptions lists a group's options ordered by id, without material deltas.
func (t *Tx) GroupOptions(ctx context.Context, groupID int64) ([]domain.VariationOption, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT`+optionColumns+`
		FROM variation_options
		WHERE variation_group_id = ?
		ORDER BY id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query variation options: %w", err)
	}
	defer rows.Close()

	options := make([]domain.VariationOption, 0)
	for rows.Next() {
		var o domain.VariationOption
		if err := rows.Scan(&o.ID, &o.GroupID, &o.Name, &o.ValueDescription, &o.AdditionalPrice, &o.AdditionalLaborUnit); err != nil {
			return nil, fmt.Errorf("scan variation option: %w", err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variation options: %w", err)
	}
	return options, nil
}

// VariationOption loads an option with its material deltas resolved.
func (t *Tx) VariationOption(ctx context.Context, id int64) (domain.VariationOption, error) {
	var o domain.VariationOption
	err := t.tx.QueryRowContext(ctx, `SELECT`+optionColumns+`
		FROM variation_options
		WHERE id = ?
	`, id).Scan(&o.ID, &o.GroupID, &o.Name, &o.ValueDescription, &o.AdditionalPrice, &o.AdditionalLaborUnit)
	if err != nil {
		return domain.VariationOption{}, notFound(err, "variation option", id)
	}

	refs, err := t.materialRefs(ctx, `
		SELECT material_id, quantity_delta
		FROM variation_option_materials
		WHERE variation_option_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return domain.VariationOption{}, err
	}

	o.Materials = make([]domain.OptionMaterial, 0, len(refs))
	for _, ref := range refs {
		m, err := t.Material(ctx, ref.materialID)
		if err != nil {
			return domain.VariationOption{}, err
		}
		o.Materials = append(o.Materials, domain.OptionMaterial{Material: m, QuantityDelta: ref.quantity})
	}
	return o, nil
}
