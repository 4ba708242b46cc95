package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fencecpq/quoteengine/internal/domain"
)

const (
	rateNameCommission = "Sales Commission"
	rateNameFranchise  = "Franchise Fee"
	rateNameMargin     = "Margin"
	rateNameFixedFees  = "Additional Fixed Fees"
)

// Cascade is the outcome of applying a QuoteConfig to a COGS amount.
// Amounts are unrounded; callers round once on output.
type Cascade struct {
	AppliedRates      []domain.AppliedRate
	SubtotalBeforeTax decimal.Decimal
	TaxAmount         decimal.Decimal
	FinalPrice        decimal.Decimal
}

// ApplyRates runs commission, franchise fee, margin, fixed fees and tax over cogs, in
// that order. Only positive stages are recorded. The margin is a margin on price
// computed over COGS plus the COGS-based fees.
func ApplyRates(cogs decimal.Decimal, cfg domain.QuoteConfig) (Cascade, error) {
	var out Cascade
	subtotal := cogs

	if cfg.SalesCommissionRate.IsPositive() {
		amount := cogs.Mul(cfg.SalesCommissionRate)
		out.AppliedRates = append(out.AppliedRates, domain.AppliedRate{
			Name:          rateNameCommission,
			Type:          domain.RateFeeOnCOGS,
			RateValue:     cfg.SalesCommissionRate,
			AppliedAmount: amount,
		})
		subtotal = subtotal.Add(amount)
	}

	if cfg.FranchiseFeeRate.IsPositive() {
		amount := cogs.Mul(cfg.FranchiseFeeRate)
		out.AppliedRates = append(out.AppliedRates, domain.AppliedRate{
			Name:          rateNameFranchise,
			Type:          domain.RateFeeOnCOGS,
			RateValue:     cfg.FranchiseFeeRate,
			AppliedAmount: amount,
		})
		subtotal = subtotal.Add(amount)
	}

	if cfg.MarginRate.IsPositive() {
		amount, err := marginOnPrice(subtotal, cfg.MarginRate)
		if err != nil {
			return Cascade{}, err
		}
		out.AppliedRates = append(out.AppliedRates, domain.AppliedRate{
			Name:          rateNameMargin,
			Type:          domain.RateMargin,
			RateValue:     cfg.MarginRate,
			AppliedAmount: amount,
		})
		subtotal = subtotal.Add(amount)
	}

	if cfg.AdditionalFixedFees.IsPositive() {
		out.AppliedRates = append(out.AppliedRates, domain.AppliedRate{
			Name:          rateNameFixedFees,
			Type:          domain.RateFeeFixed,
			RateValue:     cfg.AdditionalFixedFees,
			AppliedAmount: cfg.AdditionalFixedFees,
		})
		subtotal = subtotal.Add(cfg.AdditionalFixedFees)
	}

	out.SubtotalBeforeTax = subtotal
	out.TaxAmount = decimal.Zero
	if cfg.TaxRate.IsPositive() {
		out.TaxAmount = subtotal.Mul(cfg.TaxRate)
	}
	out.FinalPrice = subtotal.Add(out.TaxAmount)

	return out, nil
}

// marginOnPrice returns the amount that, added to costBase, makes margin/price == rate.
func marginOnPrice(costBase, rate decimal.Decimal) (decimal.Decimal, error) {
	if rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%w: margin rate %s must be below 1", domain.ErrValidation, rate)
	}
	return costBase.Mul(rate).Div(decimal.NewFromInt(1).Sub(rate)), nil
}
