package commission

import "github.com/shopspring/decimal"

// =============================================================================
// SALE INPUTS - tagged union discriminated by Category()
// =============================================================================

// SaleInput is implemented by one struct per category.
type SaleInput interface {
	Category() Category
	// SaleAmount is the headline amount copied into CommissionResult.Amount.
	SaleAmount() decimal.Decimal
}

// PensionInput describes a pension sale.
//
// CommissionRate is only read in simple mode; agreement mode derives it from
// the company's scope_rate.
type PensionInput struct {
	Salary         decimal.Decimal `json:"salary"`
	ProvisionRate  decimal.Decimal `json:"provision_rate"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Accumulation   decimal.Decimal `json:"accumulation"`
}

func (PensionInput) Category() Category            { return CategoryPension }
func (p PensionInput) SaleAmount() decimal.Decimal { return p.Salary }

type PaymentMethod string

const (
	PaymentMonthly PaymentMethod = "monthly"
	PaymentAnnual  PaymentMethod = "annual"
)

// InsuranceInput describes an insurance sale.
//
// In agreement mode Premium is the ANNUAL premium (callers multiply a monthly
// premium by 12 first). In simple mode it is the premium as paid, and
// PaymentMethod/CommissionRate apply.
type InsuranceInput struct {
	Premium        decimal.Decimal `json:"premium"`
	InsuranceType  string          `json:"insurance_type"`
	PaymentMethod  PaymentMethod   `json:"payment_method,omitempty"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

func (InsuranceInput) Category() Category            { return CategoryInsurance }
func (i InsuranceInput) SaleAmount() decimal.Decimal { return i.Premium }

// SavingsInput describes a savings/study fund sale. Amount is annualized.
type SavingsInput struct {
	Amount      decimal.Decimal `json:"amount"`
	ProductType string          `json:"product_type"`
}

func (SavingsInput) Category() Category            { return CategorySavingsAndStudy }
func (s SavingsInput) SaleAmount() decimal.Decimal { return s.Amount }

// PolicyInput describes a policy sale. Same formula as SavingsInput, different
// product catalogue.
type PolicyInput struct {
	Amount      decimal.Decimal `json:"amount"`
	ProductType string          `json:"product_type"`
}

func (PolicyInput) Category() Category            { return CategoryPolicy }
func (p PolicyInput) SaleAmount() decimal.Decimal { return p.Amount }

// Compile-time checks
var (
	_ SaleInput = PensionInput{}
	_ SaleInput = InsuranceInput{}
	_ SaleInput = SavingsInput{}
	_ SaleInput = PolicyInput{}
)
