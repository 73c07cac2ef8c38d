package factory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOGUES
// =============================================================================

var PensionCompanies = []string{
	"מגדל", "הראל", "כלל", "מנורה", "הפניקס", "הכשרה", "מיטב דש", "אלטשולר שחם", "אנליסט", "מור",
}

var SavingsCompanies = append(slices.Clone(PensionCompanies), "ילין לפידות", "פסגות")

var InsuranceCompanies = PensionCompanies[:6:6]

// Product is a catalogue entry: the key stored in agreements and its label.
type Product struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var InsuranceProducts = []Product{
	{"personal_accident", "תאונות אישיות"},
	{"mortgage", "משכנתה"},
	{"health", "בריאות"},
	{"critical_illness", "מחלות קשות"},
	{"insurance_umbrella", "מטריה ביטוחית"},
	{"risk", "ריסק"},
	{"service", "כתבי שירות"},
	{"disability", "אכע"},
}

var SavingsProducts = []Product{
	{"gemel", "גמל"},
	{"investment_gemel", "גמל להשקעה"},
	{"hishtalmut", "השתלמות"},
	{"savings_policy", "חסכון"},
}

// Companies returns the catalogue of companies for a category.
func Companies(category commission.Category) []string {
	switch category {
	case commission.CategoryPension:
		return PensionCompanies
	case commission.CategoryInsurance:
		return InsuranceCompanies
	case commission.CategorySavingsAndStudy, commission.CategoryPolicy:
		return SavingsCompanies
	}
	return nil
}

// Products returns the catalogue of product types for a category. Pension has none.
func Products(category commission.Category) []Product {
	switch category {
	case commission.CategoryInsurance:
		return InsuranceProducts
	case commission.CategorySavingsAndStudy, commission.CategoryPolicy:
		return SavingsProducts
	}
	return nil
}

func knownProduct(category commission.Category, key string) bool {
	return slices.ContainsFunc(Products(category), func(p Product) bool { return p.Key == key })
}

// =============================================================================
// DEFAULT AGREEMENT
// =============================================================================

// DefaultAgreement is what an agent without a stored agreement starts with:
// מגדל pension at 8% scope and 11,000 per million, nothing else.
func DefaultAgreement(userID string) commission.AgentRateAgreement {
	return commission.NewAgreement(userID).WithPensionRates("מגדל", commission.PensionCompanyRates{
		Active:              true,
		ScopeRate:           decimal.RequireFromString("0.08"),
		ScopeRatePerMillion: decimal.NewFromInt(11000),
	})
}

// EnsureAgreement loads the agent's agreement, saving and returning the
// default agreement when none is stored yet.
func EnsureAgreement(ctx context.Context, store commission.RateStore, userID string) (commission.AgentRateAgreement, error) {
	a, err := store.LoadAgreement(ctx, userID)
	if err != nil {
		return commission.AgentRateAgreement{}, fmt.Errorf("load agreement: %w", err)
	}
	if a != nil {
		return *a, nil
	}
	def := DefaultAgreement(userID)
	if err := store.SaveAgreement(ctx, userID, def); err != nil {
		return commission.AgentRateAgreement{}, fmt.Errorf("save default agreement: %w", err)
	}
	return def, nil
}

// =============================================================================
// RATE EDITS
// =============================================================================

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownProduct  = errors.New("unknown product type")
	ErrEmptyCompany    = errors.New("company is required")
	ErrNegativeRate    = errors.New("rates must not be negative")
)

// SetCompanyActive toggles a company in any category.
func SetCompanyActive(a commission.AgentRateAgreement, category commission.Category, company string, active bool) (commission.AgentRateAgreement, error) {
	if !category.Valid() {
		return a, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if company == "" {
		return a, ErrEmptyCompany
	}
	return a.WithCompanyActive(category, company, active), nil
}

// SetPensionRates replaces a pension company's rates. scopeRate is a fraction.
func SetPensionRates(a commission.AgentRateAgreement, company string, active bool, scopeRate, perMillion decimal.Decimal) (commission.AgentRateAgreement, error) {
	if company == "" {
		return a, ErrEmptyCompany
	}
	if scopeRate.IsNegative() || perMillion.IsNegative() {
		return a, ErrNegativeRate
	}
	return a.WithPensionRates(company, commission.PensionCompanyRates{
		Active:              active,
		ScopeRate:           scopeRate,
		ScopeRatePerMillion: perMillion,
	}), nil
}

// SetProductRates sets one product's rates. For insurance, oneTime and
// monthly are percents; for savings/study and policy they are the scope and
// monthly shekels per million.
func SetProductRates(a commission.AgentRateAgreement, category commission.Category, company, product string, oneTime, monthly decimal.Decimal) (commission.AgentRateAgreement, error) {
	if company == "" {
		return a, ErrEmptyCompany
	}
	if oneTime.IsNegative() || monthly.IsNegative() {
		return a, ErrNegativeRate
	}
	if !knownProduct(category, product) {
		if category == commission.CategoryPension || !category.Valid() {
			return a, fmt.Errorf("%w: %q has no products", ErrUnknownCategory, category)
		}
		return a, fmt.Errorf("%w: %q", ErrUnknownProduct, product)
	}

	if category == commission.CategoryInsurance {
		return a.WithInsuranceProduct(company, product, commission.InsuranceProductRates{
			OneTimeRate: oneTime,
			MonthlyRate: monthly,
		}), nil
	}
	return a.WithPerMillionProduct(category, company, product, commission.PerMillionRates{
		ScopeCommission: oneTime,
		MonthlyRate:     monthly,
	}), nil
}

// IsClientError returns true for parse, validation and edit errors.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAgreement) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrEmptyCompany) ||
		errors.Is(err, ErrNegativeRate)
}
