/*
schema.go - The per-agent rate agreement document

PURPOSE:
  AgentRateAgreement is the agent's negotiated commission schedule with each
  insurer/fund company. One document per agent, four category maps:

    pension_companies:           company -> {active, scope_rate, scope_rate_per_million}
    insurance_companies:         company -> {active, products: type -> {one_time_rate, monthly_rate}}
    savings_and_study_companies: company -> {active, products: type -> {scope_commission, monthly_rate}}
    policy_companies:            company -> {active, products: type -> {scope_commission, monthly_rate}}

UNITS:
  scope_rate:             fraction (0.07 = 7%)
  scope_rate_per_million: ILS per 1,000,000 of accumulation
  one_time_rate:          percent (65 = 65%)
  insurance monthly_rate: percent
  scope_commission:       ILS per 1,000,000 of amount
  savings monthly_rate:   ILS per 1,000,000 of amount, per month

INVARIANT:
  Absent or active=false entries mean "no agreement". Lookups never fail;
  see resolver.go.

EDITS:
  Agreements are edited copy-on-write (With* methods return a new document),
  so a document loaded by one request is never mutated by another.
*/
package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

type AgentRateAgreement struct {
	UserID                   string                           `json:"user_id,omitempty"`
	PensionCompanies         map[string]PensionCompanyRates   `json:"pension_companies"`
	InsuranceCompanies       map[string]InsuranceCompanyRates `json:"insurance_companies"`
	SavingsAndStudyCompanies map[string]ProductCompanyRates   `json:"savings_and_study_companies"`
	PolicyCompanies          map[string]ProductCompanyRates   `json:"policy_companies"`
}

type PensionCompanyRates struct {
	Active              bool            `json:"active"`
	ScopeRate           decimal.Decimal `json:"scope_rate"`
	ScopeRatePerMillion decimal.Decimal `json:"scope_rate_per_million"`
}

type InsuranceCompanyRates struct {
	Active   bool                             `json:"active"`
	Products map[string]InsuranceProductRates `json:"products"`
}

type InsuranceProductRates struct {
	OneTimeRate decimal.Decimal `json:"one_time_rate"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
}

// ProductCompanyRates is shared by savings/study and policy companies.
type ProductCompanyRates struct {
	Active   bool                       `json:"active"`
	Products map[string]PerMillionRates `json:"products"`
}

type PerMillionRates struct {
	ScopeCommission decimal.Decimal `json:"scope_commission"`
	MonthlyRate     decimal.Decimal `json:"monthly_rate"`
}

// NewAgreement returns an empty agreement with all four maps allocated.
func NewAgreement(userID string) AgentRateAgreement {
	return AgentRateAgreement{
		UserID:                   userID,
		PensionCompanies:         map[string]PensionCompanyRates{},
		InsuranceCompanies:       map[string]InsuranceCompanyRates{},
		SavingsAndStudyCompanies: map[string]ProductCompanyRates{},
		PolicyCompanies:          map[string]ProductCompanyRates{},
	}
}

// Clone deep-copies the agreement.
func (a AgentRateAgreement) Clone() AgentRateAgreement {
	c := NewAgreement(a.UserID)
	for k, v := range a.PensionCompanies {
		c.PensionCompanies[k] = v
	}
	for k, v := range a.InsuranceCompanies {
		c.InsuranceCompanies[k] = InsuranceCompanyRates{Active: v.Active, Products: cloneMap(v.Products)}
	}
	for k, v := range a.SavingsAndStudyCompanies {
		c.SavingsAndStudyCompanies[k] = ProductCompanyRates{Active: v.Active, Products: cloneMap(v.Products)}
	}
	for k, v := range a.PolicyCompanies {
		c.PolicyCompanies[k] = ProductCompanyRates{Active: v.Active, Products: cloneMap(v.Products)}
	}
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// =============================================================================
// COPY-ON-WRITE EDITS
// =============================================================================

// WithPensionRates replaces one pension company's rates.
func (a AgentRateAgreement) WithPensionRates(company string, rates PensionCompanyRates) AgentRateAgreement {
	c := a.Clone()
	c.PensionCompanies[company] = rates
	return c
}

// WithInsuranceProduct sets one insurance product's rates, creating the
// company entry (inactive) if needed.
func (a AgentRateAgreement) WithInsuranceProduct(company, productType string, rates InsuranceProductRates) AgentRateAgreement {
	c := a.Clone()
	entry := c.InsuranceCompanies[company]
	if entry.Products == nil {
		entry.Products = map[string]InsuranceProductRates{}
	}
	entry.Products[productType] = rates
	c.InsuranceCompanies[company] = entry
	return c
}

// WithPerMillionProduct sets one savings/study or policy product's rates.
// Other categories are returned unchanged.
func (a AgentRateAgreement) WithPerMillionProduct(category Category, company, productType string, rates PerMillionRates) AgentRateAgreement {
	c := a.Clone()
	m := c.perMillionMap(category)
	if m == nil {
		return c
	}
	entry := m[company]
	if entry.Products == nil {
		entry.Products = map[string]PerMillionRates{}
	}
	entry.Products[productType] = rates
	m[company] = entry
	return c
}

// WithCompanyActive toggles a company in any category, creating the entry
// if it does not exist yet.
func (a AgentRateAgreement) WithCompanyActive(category Category, company string, active bool) AgentRateAgreement {
	c := a.Clone()
	switch category {
	case CategoryPension:
		e := c.PensionCompanies[company]
		e.Active = active
		c.PensionCompanies[company] = e
	case CategoryInsurance:
		e := c.InsuranceCompanies[company]
		e.Active = active
		c.InsuranceCompanies[company] = e
	case CategorySavingsAndStudy, CategoryPolicy:
		m := c.perMillionMap(category)
		e := m[company]
		e.Active = active
		m[company] = e
	}
	return c
}

func (a AgentRateAgreement) perMillionMap(category Category) map[string]ProductCompanyRates {
	switch category {
	case CategorySavingsAndStudy:
		return a.SavingsAndStudyCompanies
	case CategoryPolicy:
		return a.PolicyCompanies
	}
	return nil
}

// ActiveCompanies lists companies with active=true in a category, sorted.
func (a AgentRateAgreement) ActiveCompanies(category Category) []string {
	var out []string
	switch category {
	case CategoryPension:
		for k, v := range a.PensionCompanies {
			if v.Active {
				out = append(out, k)
			}
		}
	case CategoryInsurance:
		for k, v := range a.InsuranceCompanies {
			if v.Active {
				out = append(out, k)
			}
		}
	case CategorySavingsAndStudy, CategoryPolicy:
		for k, v := range a.perMillionMap(category) {
			if v.Active {
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
