package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitType is a unit of measure (each, linear_ft, box, ...).
type UnitType struct {
	ID       int64
	Name     string
	Category string
}

// Material is a purchasable input tracked in its base unit.
type Material struct {
	ID                     int64
	Name                   string
	CostPerSupplierUnit    decimal.Decimal
	QuantityInSupplierUnit decimal.Decimal
	CullRate               decimal.Decimal
	BaseUnit               UnitType
}

// ProductMaterial is one line of a product's base composition.
type ProductMaterial struct {
	Material        Material
	QuantityPerUnit decimal.Decimal
}

// Product is a sellable item priced per product unit.
type Product struct {
	ID            int64
	Name          string
	Description   string
	LaborCostUnit decimal.Decimal
	Materials     []ProductMaterial
}

// SelectionMode controls how options inside a variation group are picked.
type SelectionMode string

const (
	SelectionSingle SelectionMode = "single_choice"
	SelectionMulti  SelectionMode = "multi_choice"
)

// VariationGroup groups mutually related options of one product.
type VariationGroup struct {
	ID         int64
	ProductID  int64
	Name       string
	Mode       SelectionMode
	IsRequired bool
}

// OptionMaterial is a signed material delta implied by a variation option.
// Negative deltas remove material from the base composition.
type OptionMaterial struct {
	Material      Material
	QuantityDelta decimal.Decimal
}

// VariationOption is one selectable choice inside a group.
type VariationOption struct {
	ID                  int64
	GroupID             int64
	Name                string
	ValueDescription    string
	AdditionalPrice     decimal.Decimal
	AdditionalLaborUnit decimal.Decimal
	Materials           []OptionMaterial
}

// ProductRole is the role a product plays inside a quote.
type ProductRole string

const (
	RoleDefault    ProductRole = "default"
	RoleMain       ProductRole = "main"
	RoleSecondary  ProductRole = "secondary"
	RoleAdditional ProductRole = "additional"
)

// Valid reports whether r is a known role.
func (r ProductRole) Valid() bool {
	switch r {
	case RoleDefault, RoleMain, RoleSecondary, RoleAdditional:
		return true
	}
	return false
}

// QuoteProductEntry is a product line in a quote.
type QuoteProductEntry struct {
	ID                int64
	QuoteID           int64
	ProductID         int64
	Quantity          decimal.Decimal
	Notes             string
	Role              ProductRole
	SelectedOptionIDs []int64
}

// QuoteConfig is the named bundle of cascade rates applied to a quote.
type QuoteConfig struct {
	ID                  int64
	Name                string
	SalesCommissionRate decimal.Decimal
	FranchiseFeeRate    decimal.Decimal
	MarginRate          decimal.Decimal
	TaxRate             decimal.Decimal
	AdditionalFixedFees decimal.Decimal
	RoundUpMaterials    bool
}

// QuoteType selects the business flow a quote belongs to.
type QuoteType string

const (
	QuoteGeneral      QuoteType = "general"
	QuoteFenceProject QuoteType = "fence_project"
	QuoteDeckProject  QuoteType = "deck_project"
)

// Valid reports whether t is a known quote type.
func (t QuoteType) Valid() bool {
	switch t {
	case QuoteGeneral, QuoteFenceProject, QuoteDeckProject:
		return true
	}
	return false
}

const (
	StatusDraft      = "draft"
	StatusCalculated = "calculated"
)

// Quote is the root aggregate being priced.
type Quote struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Type        QuoteType `json:"quote_type"`
	// ConfigID is zero when the quote has no associated config.
	ConfigID int64 `json:"quote_config_id"`
	// UIState is an opaque client marker, at most MaxUIStateLength characters.
	UIState   string    `json:"ui_state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxUIStateLength bounds Quote.UIState.
const MaxUIStateLength = 100

// QuotePreview is the list-view projection of a quote.
type QuotePreview struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Type        QuoteType `json:"quote_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryPreview is a product category as shown when browsing the catalog.
type CategoryPreview struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

// ProductPreview is a product as listed inside a category.
type ProductPreview struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// RateKind classifies an applied rate.
type RateKind string

const (
	RateFeeOnCOGS RateKind = "fee_on_cogs"
	RateMargin    RateKind = "margin"
	RateFeeFixed  RateKind = "fee_fixed"
)

// BillOfMaterialLine is the aggregated demand for one material in one unit.
type BillOfMaterialLine struct {
	MaterialName string          `json:"material_name"`
	UnitName     string          `json:"unit_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	CullUnits    decimal.Decimal `json:"cull_units"`
	Leftovers    decimal.Decimal `json:"leftovers"`
}

// AppliedRate records one stage of the rate cascade.
type AppliedRate struct {
	Name          string          `json:"name"`
	Type          RateKind        `json:"type"`
	RateValue     decimal.Decimal `json:"rate_value"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
}

// CalculatedQuote is the stored pricing result of a quote. There is at most one per quote.
type CalculatedQuote struct {
	ID                int64                `json:"id"`
	QuoteID           int64                `json:"quote_id"`
	TotalMaterialCost decimal.Decimal      `json:"total_material_cost"`
	TotalLaborCost    decimal.Decimal      `json:"total_labor_cost"`
	CostOfGoodsSold   decimal.Decimal      `json:"cost_of_goods_sold"`
	AppliedRates      []AppliedRate        `json:"applied_rates"`
	SubtotalBeforeTax decimal.Decimal      `json:"subtotal_before_tax"`
	TaxAmount         decimal.Decimal      `json:"tax_amount"`
	FinalPrice        decimal.Decimal      `json:"final_price"`
	BillOfMaterials   []BillOfMaterialLine `json:"bill_of_materials"`
	CalculatedAt      time.Time            `json:"calculated_at"`
}
