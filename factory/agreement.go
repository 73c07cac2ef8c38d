/*
Package factory converts between agreement documents and Go structs.

PURPOSE:
  An agent's rate agreement is stored and edited as one JSON document. The
  factory parses that document, validates its numbers, and builds the
  commission.AgentRateAgreement the calculators resolve against. It also
  owns the default agreement every new agent starts with and the catalogues
  of companies and products an agreement may reference.

JSON SCHEMA:
  {
    "pension_companies": {
      "מגדל": {"active": true, "scope_rate": 0.08, "scope_rate_per_million": 11000}
    },
    "insurance_companies": {
      "הפניקס": {"active": true, "products": {"risk": {"one_time_rate": 65, "monthly_rate": 25}}}
    },
    "savings_and_study_companies": {
      "מור": {"active": true, "products": {"gemel": {"scope_commission": 6000, "monthly_rate": 250}}}
    },
    "policy_companies": {}
  }

  scope_rate is a fraction (0.08 = 8%). Insurance rates are percents.
  Savings/study and policy rates are shekels per million.

USAGE:
  f := factory.NewAgreementFactory()
  agreement, err := f.ParseAgreement("agent-1", jsonString)

SEE ALSO:
  - commission/schema.go: AgentRateAgreement
  - catalog.go:           Companies, products, default agreement
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidAgreement wraps every parse and validation failure.
var ErrInvalidAgreement = errors.New("invalid agreement")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// AgreementJSON is the JSON representation of an agreement.
type AgreementJSON struct {
	UserID                   string                        `json:"user_id,omitempty"`
	PensionCompanies         map[string]PensionJSON        `json:"pension_companies" validate:"dive,keys,required,endkeys"`
	InsuranceCompanies       map[string]InsuranceJSON      `json:"insurance_companies" validate:"dive,keys,required,endkeys"`
	SavingsAndStudyCompanies map[string]PerMillionCompJSON `json:"savings_and_study_companies" validate:"dive,keys,required,endkeys"`
	PolicyCompanies          map[string]PerMillionCompJSON `json:"policy_companies" validate:"dive,keys,required,endkeys"`
}

type PensionJSON struct {
	Active              bool    `json:"active"`
	ScopeRate           float64 `json:"scope_rate" validate:"gte=0,lte=1"`
	ScopeRatePerMillion float64 `json:"scope_rate_per_million" validate:"gte=0"`
}

type InsuranceJSON struct {
	Active   bool                            `json:"active"`
	Products map[string]InsuranceProductJSON `json:"products" validate:"dive,keys,required,endkeys"`
}

// InsuranceProductJSON rates are percents.
type InsuranceProductJSON struct {
	OneTimeRate float64 `json:"one_time_rate" validate:"gte=0,lte=100"`
	MonthlyRate float64 `json:"monthly_rate" validate:"gte=0,lte=100"`
}

type PerMillionCompJSON struct {
	Active   bool                             `json:"active"`
	Products map[string]PerMillionProductJSON `json:"products" validate:"dive,keys,required,endkeys"`
}

// PerMillionProductJSON rates are shekels per million.
type PerMillionProductJSON struct {
	ScopeCommission float64 `json:"scope_commission" validate:"gte=0"`
	MonthlyRate     float64 `json:"monthly_rate" validate:"gte=0"`
}

// =============================================================================
// AGREEMENT FACTORY
// =============================================================================

// AgreementFactory converts JSON agreements to Go structs.
type AgreementFactory struct {
	validate *validator.Validate
}

func NewAgreementFactory() *AgreementFactory {
	return &AgreementFactory{validate: validator.New()}
}

// ParseAgreement parses a JSON document into an agreement owned by userID.
func (f *AgreementFactory) ParseAgreement(userID, jsonStr string) (commission.AgentRateAgreement, error) {
	var aj AgreementJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return commission.AgentRateAgreement{}, fmt.Errorf("%w: failed to parse agreement JSON: %v", ErrInvalidAgreement, err)
	}
	return f.FromJSON(userID, aj)
}

// FromJSON validates aj and converts it. Missing maps become empty maps.
func (f *AgreementFactory) FromJSON(userID string, aj AgreementJSON) (commission.AgentRateAgreement, error) {
	if err := f.validate.Struct(aj); err != nil {
		return commission.AgentRateAgreement{}, fmt.Errorf("%w: %v", ErrInvalidAgreement, err)
	}

	a := commission.NewAgreement(userID)
	for company, p := range aj.PensionCompanies {
		a.PensionCompanies[company] = commission.PensionCompanyRates{
			Active:              p.Active,
			ScopeRate:           decimal.NewFromFloat(p.ScopeRate),
			ScopeRatePerMillion: decimal.NewFromFloat(p.ScopeRatePerMillion),
		}
	}
	for company, ic := range aj.InsuranceCompanies {
		products := make(map[string]commission.InsuranceProductRates, len(ic.Products))
		for product, r := range ic.Products {
			products[product] = commission.InsuranceProductRates{
				OneTimeRate: decimal.NewFromFloat(r.OneTimeRate),
				MonthlyRate: decimal.NewFromFloat(r.MonthlyRate),
			}
		}
		a.InsuranceCompanies[company] = commission.InsuranceCompanyRates{Active: ic.Active, Products: products}
	}
	fillPerMillion(a.SavingsAndStudyCompanies, aj.SavingsAndStudyCompanies)
	fillPerMillion(a.PolicyCompanies, aj.PolicyCompanies)
	return a, nil
}

func fillPerMillion(dst map[string]commission.ProductCompanyRates, src map[string]PerMillionCompJSON) {
	for company, c := range src {
		products := make(map[string]commission.PerMillionRates, len(c.Products))
		for product, r := range c.Products {
			products[product] = commission.PerMillionRates{
				ScopeCommission: decimal.NewFromFloat(r.ScopeCommission),
				MonthlyRate:     decimal.NewFromFloat(r.MonthlyRate),
			}
		}
		dst[company] = commission.ProductCompanyRates{Active: c.Active, Products: products}
	}
}

// ToJSON converts an agreement back to its document form.
func (f *AgreementFactory) ToJSON(a commission.AgentRateAgreement) AgreementJSON {
	aj := AgreementJSON{
		UserID:                   a.UserID,
		PensionCompanies:         make(map[string]PensionJSON, len(a.PensionCompanies)),
		InsuranceCompanies:       make(map[string]InsuranceJSON, len(a.InsuranceCompanies)),
		SavingsAndStudyCompanies: perMillionJSON(a.SavingsAndStudyCompanies),
		PolicyCompanies:          perMillionJSON(a.PolicyCompanies),
	}
	for company, p := range a.PensionCompanies {
		aj.PensionCompanies[company] = PensionJSON{
			Active:              p.Active,
			ScopeRate:           p.ScopeRate.InexactFloat64(),
			ScopeRatePerMillion: p.ScopeRatePerMillion.InexactFloat64(),
		}
	}
	for company, ic := range a.InsuranceCompanies {
		products := make(map[string]InsuranceProductJSON, len(ic.Products))
		for product, r := range ic.Products {
			products[product] = InsuranceProductJSON{
				OneTimeRate: r.OneTimeRate.InexactFloat64(),
				MonthlyRate: r.MonthlyRate.InexactFloat64(),
			}
		}
		aj.InsuranceCompanies[company] = InsuranceJSON{Active: ic.Active, Products: products}
	}
	return aj
}

func perMillionJSON(src map[string]commission.ProductCompanyRates) map[string]PerMillionCompJSON {
	out := make(map[string]PerMillionCompJSON, len(src))
	for company, c := range src {
		products := make(map[string]PerMillionProductJSON, len(c.Products))
		for product, r := range c.Products {
			products[product] = PerMillionProductJSON{
				ScopeCommission: r.ScopeCommission.InexactFloat64(),
				MonthlyRate:     r.MonthlyRate.InexactFloat64(),
			}
		}
		out[company] = PerMillionCompJSON{Active: c.Active, Products: products}
	}
	return out
}
