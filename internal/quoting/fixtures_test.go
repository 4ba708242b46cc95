package quoting

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/db"
	"github.com/fencecpq/quoteengine/internal/domain"
	"github.com/fencecpq/quoteengine/internal/migrations"
	"github.com/fencecpq/quoteengine/internal/store"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *sql.DB
	svc *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "quoting-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	svc := NewService(store.New(database), zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	return &fixture{t: t, ctx: context.Background(), db: database, svc: svc}
}

func (f *fixture) insert(query string, args ...any) int64 {
	f.t.Helper()

	result, err := f.db.Exec(query, args...)
	if err != nil {
		f.t.Fatalf("insert fixture: %v\n%s", err, query)
	}
	id, err := result.LastInsertId()
	if err != nil {
		f.t.Fatalf("read fixture id: %v", err)
	}
	return id
}

func (f *fixture) count(query string, args ...any) int {
	f.t.Helper()

	var n int
	if err := f.db.QueryRow(query, args...).Scan(&n); err != nil {
		f.t.Fatalf("count query failed: %v", err)
	}
	return n
}

func (f *fixture) unit(name string) int64 {
	return f.insert(`INSERT INTO unit_types (name, category) VALUES (?, '')`, name)
}

// material inserts a material priced per base unit.
func (f *fixture) material(name, costPerBaseUnit, cullRate string, unitID int64) int64 {
	return f.insert(`
		INSERT INTO materials (name, cost_per_supplier_unit, quantity_in_supplier_unit, base_unit_type_id, cull_rate)
		VALUES (?, ?, '1', ?, ?)
	`, name, costPerBaseUnit, unitID, cullRate)
}

func (f *fixture) product(name, laborPerUnit string) int64 {
	return f.insert(`INSERT INTO products (name, unit_labor_cost) VALUES (?, ?)`, name, laborPerUnit)
}

func (f *fixture) compose(productID, materialID int64, quantity string) {
	f.insert(`
		INSERT INTO product_materials (product_id, material_id, quantity_per_product_unit)
		VALUES (?, ?, ?)
	`, productID, materialID, quantity)
}

func (f *fixture) group(productID int64, name string, mode domain.SelectionMode) int64 {
	return f.insert(`
		INSERT INTO variation_groups (product_id, name, selection_type, is_required)
		VALUES (?, ?, ?, FALSE)
	`, productID, name, string(mode))
}

func (f *fixture) option(groupID int64, name, price, laborPerUnit string) int64 {
	return f.insert(`
		INSERT INTO variation_options (variation_group_id, name, additional_price, additional_labor_cost_per_product_unit)
		VALUES (?, ?, ?, ?)
	`, groupID, name, price, laborPerUnit)
}

func (f *fixture) delta(optionID, materialID int64, quantity string) {
	f.insert(`
		INSERT INTO variation_option_materials (variation_option_id, material_id, quantity_delta)
		VALUES (?, ?, ?)
	`, optionID, materialID, quantity)
}

type rates struct {
	commission, franchise, margin, tax, fixed string
	noRounding                                bool
}

func (f *fixture) config(name string, r rates) int64 {
	orZero := func(s string) string {
		if s == "" {
			return "0"
		}
		return s
	}
	return f.insert(`
		INSERT INTO quote_configs (
			name,
			sales_commission_rate,
			franchise_fee_rate,
			margin_rate,
			tax_rate,
			additional_fixed_fees,
			round_up_materials
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, name, orZero(r.commission), orZero(r.franchise), orZero(r.margin), orZero(r.tax), orZero(r.fixed), !r.noRounding)
}

func (f *fixture) quote(configID int64) int64 {
	f.t.Helper()

	q, err := f.svc.CreateQuote(f.ctx, NewQuote{Name: "Backyard", ConfigID: configID})
	if err != nil {
		f.t.Fatalf("CreateQuote: %v", err)
	}
	return q.ID
}

func (f *fixture) entry(quoteID, productID int64, quantity string) int64 {
	f.t.Helper()

	e, err := f.svc.AddProductEntry(f.ctx, quoteID, NewEntry{ProductID: productID, Quantity: dec(quantity)})
	if err != nil {
		f.t.Fatalf("AddProductEntry: %v", err)
	}
	return e.ID
}

func (f *fixture) selectOption(entryID, optionID int64) MaterializedEntry {
	f.t.Helper()

	view, err := f.svc.SetVariationOption(f.ctx, entryID, optionID)
	if err != nil {
		f.t.Fatalf("SetVariationOption(%d, %d): %v", entryID, optionID, err)
	}
	return view
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s=%s, want %s", field, got, want)
	}
}
