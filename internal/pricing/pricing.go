package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fencecpq/quoteengine/internal/domain"
)

// EntryInput is a fully resolved quote product entry.
type EntryInput struct {
	Quantity decimal.Decimal
	Product  domain.Product
	Options  []domain.VariationOption
}

// Result groups the full pricing output of a quote.
type Result struct {
	TotalMaterialCost decimal.Decimal
	TotalLaborCost    decimal.Decimal
	CostOfGoodsSold   decimal.Decimal
	AppliedRates      []domain.AppliedRate
	SubtotalBeforeTax decimal.Decimal
	TaxAmount         decimal.Decimal
	FinalPrice        decimal.Decimal
	BillOfMaterials   []domain.BillOfMaterialLine
}

// LaborCost sums base and variation labor over every entry, scaled by entry quantity.
func LaborCost(entries []EntryInput) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		perUnit := e.Product.LaborCostUnit
		for _, opt := range e.Options {
			perUnit = perUnit.Add(opt.AdditionalLaborUnit)
		}
		total = total.Add(perUnit.Mul(e.Quantity))
	}
	return total
}

// Calculate prices entries under cfg. Monetary outputs are rounded half-up to cents.
func Calculate(entries []EntryInput, cfg domain.QuoteConfig) (Result, error) {
	bom, materialCost := AggregateMaterials(entries, cfg.RoundUpMaterials)
	laborCost := LaborCost(entries)
	cogs := materialCost.Add(laborCost)

	cascade, err := ApplyRates(cogs, cfg)
	if err != nil {
		return Result{}, err
	}

	rates := make([]domain.AppliedRate, len(cascade.AppliedRates))
	for i, r := range cascade.AppliedRates {
		r.AppliedAmount = roundMoney(r.AppliedAmount)
		rates[i] = r
	}

	return Result{
		TotalMaterialCost: roundMoney(materialCost),
		TotalLaborCost:    roundMoney(laborCost),
		CostOfGoodsSold:   roundMoney(cogs),
		AppliedRates:      rates,
		SubtotalBeforeTax: roundMoney(cascade.SubtotalBeforeTax),
		TaxAmount:         roundMoney(cascade.TaxAmount),
		FinalPrice:        roundMoney(cascade.FinalPrice),
		BillOfMaterials:   bom,
	}, nil
}

// roundMoney rounds half away from zero, which is half-up for the non-negative amounts
// produced here.
func roundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(moneyPlaces)
}
