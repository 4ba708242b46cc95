package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fencecpq/quoteengine/internal/domain"
)

const (
	intermediatePlaces int32 = 4
	moneyPlaces        int32 = 2
)

// CostPerBaseUnit returns the cost of one base unit of m. A material with zero base
// units per supplier unit costs 0 instead of failing.
func CostPerBaseUnit(m domain.Material) decimal.Decimal {
	if m.QuantityInSupplierUnit.IsZero() {
		return decimal.Zero
	}
	return m.CostPerSupplierUnit.Div(m.QuantityInSupplierUnit)
}

type bomKey struct {
	materialID int64
	unitName   string
}

type bomAccumulator struct {
	material domain.Material
	unitCost decimal.Decimal
	quantity decimal.Decimal
	cull     decimal.Decimal
}

// billOfMaterials accumulates material demand for a single calculation.
// Output order is first-seen order.
type billOfMaterials struct {
	lines map[bomKey]*bomAccumulator
	order []bomKey
}

func newBillOfMaterials() *billOfMaterials {
	return &billOfMaterials{lines: make(map[bomKey]*bomAccumulator)}
}

// add records quantity base units of m. Cull is applied only to positive quantities.
func (b *billOfMaterials) add(m domain.Material, quantity decimal.Decimal) {
	cull := decimal.Zero
	if m.CullRate.IsPositive() && quantity.IsPositive() {
		cull = quantity.Mul(m.CullRate)
	}

	key := bomKey{materialID: m.ID, unitName: m.BaseUnit.Name}
	acc, ok := b.lines[key]
	if !ok {
		acc = &bomAccumulator{
			material: m,
			unitCost: CostPerBaseUnit(m),
			quantity: decimal.Zero,
			cull:     decimal.Zero,
		}
		b.lines[key] = acc
		b.order = append(b.order, key)
	}
	acc.quantity = acc.quantity.Add(quantity).Add(cull)
	acc.cull = acc.cull.Add(cull)
}

// addEntry adds the base composition and every selected option's deltas for one entry.
func (b *billOfMaterials) addEntry(e EntryInput) {
	for _, pm := range e.Product.Materials {
		b.add(pm.Material, pm.QuantityPerUnit.Mul(e.Quantity))
	}
	for _, opt := range e.Options {
		for _, om := range opt.Materials {
			b.add(om.Material, om.QuantityDelta.Mul(e.Quantity))
		}
	}
}

// finalize rounds every aggregated line once and prices it.
func (b *billOfMaterials) finalize(roundUp bool) ([]domain.BillOfMaterialLine, decimal.Decimal) {
	lines := make([]domain.BillOfMaterialLine, 0, len(b.order))
	total := decimal.Zero

	for _, key := range b.order {
		acc := b.lines[key]
		quantity := acc.quantity
		leftovers := decimal.Zero
		if roundUp {
			rounded := quantity.Ceil()
			if diff := rounded.Sub(quantity); diff.IsPositive() {
				leftovers = diff.Round(intermediatePlaces)
			}
			quantity = rounded
		}

		lineTotal := quantity.Mul(acc.unitCost).Round(moneyPlaces)
		total = total.Add(lineTotal)

		lines = append(lines, domain.BillOfMaterialLine{
			MaterialName: acc.material.Name,
			UnitName:     key.unitName,
			Quantity:     quantity,
			UnitCost:     acc.unitCost,
			TotalCost:    lineTotal,
			CullUnits:    acc.cull.Round(intermediatePlaces),
			Leftovers:    leftovers,
		})
	}

	return lines, total
}

// AggregateMaterials builds the bill of materials for entries and returns it with the
// total material cost.
func AggregateMaterials(entries []EntryInput, roundUp bool) ([]domain.BillOfMaterialLine, decimal.Decimal) {
	bom := newBillOfMaterials()
	for _, e := range entries {
		bom.addEntry(e)
	}
	return bom.finalize(roundUp)
}
