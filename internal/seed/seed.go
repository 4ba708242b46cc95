package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	demoProductName  = "Cedar Privacy Fence"
	demoConfigName   = "Standard Residential"
	demoCategoryName = "Fences"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type unitType struct {
	name     string
	category string
}

type material struct {
	name             string
	costPerSupplier  string
	supplierUnit     string
	quantityInSupply string
	baseUnit         string
	cullRate         string
}

type materialQuantity struct {
	material string
	quantity string
}

type optionSeed struct {
	name             string
	valueDescription string
	additionalPrice  string
	additionalLabor  string
	deltas           []materialQuantity
}

type groupSeed struct {
	name          string
	selectionType string
	required      bool
	options       []optionSeed
}

var unitTypes = []unitType{
	{name: "each", category: "count"},
	{name: "linear_ft", category: "length"},
	{name: "box", category: "package"},
}

var materials = []material{
	{name: "Cedar Picket 1x6x6", costPerSupplier: "3.50", supplierUnit: "each", quantityInSupply: "1", baseUnit: "each", cullRate: "0.05"},
	{name: "Pressure Treated Post 4x4x8", costPerSupplier: "12.00", supplierUnit: "each", quantityInSupply: "1", baseUnit: "each", cullRate: "0.02"},
	{name: "Pressure Treated Rail 2x4x8", costPerSupplier: "6.40", supplierUnit: "each", quantityInSupply: "1", baseUnit: "each", cullRate: "0.03"},
	{name: "Concrete Mix 50lb", costPerSupplier: "5.25", supplierUnit: "each", quantityInSupply: "1", baseUnit: "each", cullRate: "0"},
	{name: "Exterior Screws (box of 350)", costPerSupplier: "28.00", supplierUnit: "box", quantityInSupply: "350", baseUnit: "each", cullRate: "0.10"},
	{name: "Post Cap 4x4", costPerSupplier: "2.00", supplierUnit: "each", quantityInSupply: "1", baseUnit: "each", cullRate: "0"},
}

// composition is per linear foot of fence.
var composition = []materialQuantity{
	{material: "Cedar Picket 1x6x6", quantity: "2.2"},
	{material: "Pressure Treated Post 4x4x8", quantity: "0.125"},
	{material: "Pressure Treated Rail 2x4x8", quantity: "0.375"},
	{material: "Concrete Mix 50lb", quantity: "0.25"},
	{material: "Exterior Screws (box of 350)", quantity: "18"},
}

var groups = []groupSeed{
	{
		name:          "Height",
		selectionType: "single_choice",
		required:      true,
		options: []optionSeed{
			{name: "6 ft", valueDescription: "Standard height", additionalPrice: "0", additionalLabor: "0"},
			{
				name:             "8 ft",
				valueDescription: "Adds a third rail",
				additionalPrice:  "4.50",
				additionalLabor:  "1.25",
				deltas:           []materialQuantity{{material: "Pressure Treated Rail 2x4x8", quantity: "0.125"}},
			},
		},
	},
	{
		name:          "Add-ons",
		selectionType: "multi_choice",
		options: []optionSeed{
			{
				name:             "Post caps",
				valueDescription: "Cap on every post",
				additionalPrice:  "0",
				additionalLabor:  "0.10",
				deltas:           []materialQuantity{{material: "Post Cap 4x4", quantity: "0.125"}},
			},
			{
				name:             "Driven posts",
				valueDescription: "Posts driven without concrete",
				additionalPrice:  "0",
				additionalLabor:  "0.50",
				deltas:           []materialQuantity{{material: "Concrete Mix 50lb", quantity: "-0.25"}},
			},
		},
	},
}

// Run inserts the demo fence catalog and a default quote config. Rows are matched by
// name, so running it again inserts nothing.
func Run(ctx context.Context, db *sql.DB) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	s := &seeder{ctx: ctx, tx: tx}
	if err := s.run(); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return s.stats, nil
}

type seeder struct {
	ctx   context.Context
	tx    *sql.Tx
	stats Stats
}

func (s *seeder) run() error {
	unitIDs := make(map[string]int64, len(unitTypes))
	for _, u := range unitTypes {
		id, err := s.ensure(
			`SELECT id FROM unit_types WHERE name = ?`, []any{u.name},
			`INSERT INTO unit_types (name, category) VALUES (?, ?)`, []any{u.name, u.category},
		)
		if err != nil {
			return fmt.Errorf("ensure unit type %s: %w", u.name, err)
		}
		unitIDs[u.name] = id
	}

	materialIDs := make(map[string]int64, len(materials))
	for _, m := range materials {
		id, err := s.ensure(
			`SELECT id FROM materials WHERE name = ?`, []any{m.name},
			`INSERT INTO materials (
				name,
				cost_per_supplier_unit,
				supplier_unit_type_id,
				quantity_in_supplier_unit,
				base_unit_type_id,
				cull_rate
			) VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{m.name, m.costPerSupplier, unitIDs[m.supplierUnit], m.quantityInSupply, unitIDs[m.baseUnit], m.cullRate},
		)
		if err != nil {
			return fmt.Errorf("ensure material %s: %w", m.name, err)
		}
		materialIDs[m.name] = id
	}

	productID, err := s.ensure(
		`SELECT id FROM products WHERE name = ?`, []any{demoProductName},
		`INSERT INTO products (name, description, product_unit_type_id, unit_labor_cost) VALUES (?, ?, ?, ?)`,
		[]any{demoProductName, "Board-on-board cedar fence, priced per linear foot", unitIDs["linear_ft"], "8.50"},
	)
	if err != nil {
		return fmt.Errorf("ensure demo product: %w", err)
	}

	categoryID, err := s.ensure(
		`SELECT id FROM product_categories WHERE name = ?`, []any{demoCategoryName},
		`INSERT INTO product_categories (name, type) VALUES (?, ?)`, []any{demoCategoryName, "general"},
	)
	if err != nil {
		return fmt.Errorf("ensure demo category: %w", err)
	}
	if _, err := s.ensure(
		`SELECT product_id FROM product_category_links WHERE product_id = ? AND category_id = ?`, []any{productID, categoryID},
		`INSERT INTO product_category_links (product_id, category_id) VALUES (?, ?)`, []any{productID, categoryID},
	); err != nil {
		return fmt.Errorf("ensure demo category link: %w", err)
	}

	for _, c := range composition {
		materialID := materialIDs[c.material]
		if _, err := s.ensure(
			`SELECT id FROM product_materials WHERE product_id = ? AND material_id = ?`, []any{productID, materialID},
			`INSERT INTO product_materials (product_id, material_id, quantity_per_product_unit) VALUES (?, ?, ?)`,
			[]any{productID, materialID, c.quantity},
		); err != nil {
			return fmt.Errorf("ensure composition %s: %w", c.material, err)
		}
	}

	for _, g := range groups {
		if err := s.ensureGroup(productID, g, materialIDs); err != nil {
			return err
		}
	}

	if _, err := s.ensure(
		`SELECT id FROM quote_configs WHERE name = ?`, []any{demoConfigName},
		`INSERT INTO quote_configs (
			name,
			margin_rate,
			tax_rate,
			sales_commission_rate,
			franchise_fee_rate,
			additional_fixed_fees,
			round_up_materials
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		[]any{demoConfigName, "0.35", "0.0825", "0.05", "0.06", "150", true},
	); err != nil {
		return fmt.Errorf("ensure default quote config: %w", err)
	}

	return nil
}

func (s *seeder) ensureGroup(productID int64, g groupSeed, materialIDs map[string]int64) error {
	groupID, err := s.ensure(
		`SELECT id FROM variation_groups WHERE product_id = ? AND name = ?`, []any{productID, g.name},
		`INSERT INTO variation_groups (product_id, name, selection_type, is_required) VALUES (?, ?, ?, ?)`,
		[]any{productID, g.name, g.selectionType, g.required},
	)
	if err != nil {
		return fmt.Errorf("ensure variation group %s: %w", g.name, err)
	}

	for _, o := range g.options {
		optionID, err := s.ensure(
			`SELECT id FROM variation_options WHERE variation_group_id = ? AND name = ?`, []any{groupID, o.name},
			`INSERT INTO variation_options (
				variation_group_id,
				name,
				value_description,
				additional_price,
				additional_labor_cost_per_product_unit
			) VALUES (?, ?, ?, ?, ?)`,
			[]any{groupID, o.name, o.valueDescription, o.additionalPrice, o.additionalLabor},
		)
		if err != nil {
			return fmt.Errorf("ensure variation option %s: %w", o.name, err)
		}

		for _, d := range o.deltas {
			materialID := materialIDs[d.material]
			if _, err := s.ensure(
				`SELECT id FROM variation_option_materials WHERE variation_option_id = ? AND material_id = ?`,
				[]any{optionID, materialID},
				`INSERT INTO variation_option_materials (variation_option_id, material_id, quantity_delta) VALUES (?, ?, ?)`,
				[]any{optionID, materialID, d.quantity},
			); err != nil {
				return fmt.Errorf("ensure option delta %s/%s: %w", o.name, d.material, err)
			}
		}
	}
	return nil
}

// ensure returns the id of the row matched by lookup, inserting it first when absent.
func (s *seeder) ensure(lookup string, lookupArgs []any, insert string, insertArgs []any) (int64, error) {
	var id int64
	err := s.tx.QueryRowContext(s.ctx, lookup, lookupArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("check existence: %w", err)
	}

	result, err := s.tx.ExecContext(s.ctx, insert, insertArgs...)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	if id, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	s.stats.Inserts++
	return id, nil
}
