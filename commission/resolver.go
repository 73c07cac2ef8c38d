/*
resolver.go - Rate lookup over an AgentRateAgreement

PURPOSE:
  Finds the applicable rate entry for a (category, company[, product type])
  triple. Every lookup is total: a nil agreement, missing category map,
  missing company, missing product or active=false all return ok=false.
  Nothing here panics or returns an error; "agent hasn't configured this
  insurer yet" is a normal business state.
*/
package commission

// RateEntry is the resolved rate for one lookup. Exactly one of the pointer
// fields is set, matching Category.
type RateEntry struct {
	Category    Category
	Company     string
	ProductType string

	Pension    *PensionCompanyRates
	Insurance  *InsuranceProductRates
	PerMillion *PerMillionRates
}

// Resolve looks up the rate entry for a sale. productType is ignored for pension.
func Resolve(a *AgentRateAgreement, category Category, company, productType string) (RateEntry, bool) {
	entry := RateEntry{Category: category, Company: company, ProductType: productType}
	switch category {
	case CategoryPension:
		r, ok := ResolvePension(a, company)
		if !ok {
			return RateEntry{}, false
		}
		entry.ProductType = ""
		entry.Pension = &r
	case CategoryInsurance:
		r, ok := ResolveInsurance(a, company, productType)
		if !ok {
			return RateEntry{}, false
		}
		entry.Insurance = &r
	case CategorySavingsAndStudy, CategoryPolicy:
		r, ok := ResolvePerMillion(a, category, company, productType)
		if !ok {
			return RateEntry{}, false
		}
		entry.PerMillion = &r
	default:
		return RateEntry{}, false
	}
	return entry, true
}

func ResolvePension(a *AgentRateAgreement, company string) (PensionCompanyRates, bool) {
	if a == nil || a.PensionCompanies == nil {
		return PensionCompanyRates{}, false
	}
	r, ok := a.PensionCompanies[company]
	if !ok || !r.Active {
		return PensionCompanyRates{}, false
	}
	return r, true
}

func ResolveInsurance(a *AgentRateAgreement, company, productType string) (InsuranceProductRates, bool) {
	if a == nil || a.InsuranceCompanies == nil || productType == "" {
		return InsuranceProductRates{}, false
	}
	c, ok := a.InsuranceCompanies[company]
	if !ok || !c.Active || c.Products == nil {
		return InsuranceProductRates{}, false
	}
	r, ok := c.Products[productType]
	return r, ok
}

func ResolvePerMillion(a *AgentRateAgreement, category Category, company, productType string) (PerMillionRates, bool) {
	if a == nil || productType == "" {
		return PerMillionRates{}, false
	}
	m := a.perMillionMap(category)
	if m == nil {
		return PerMillionRates{}, false
	}
	c, ok := m[company]
	if !ok || !c.Active || c.Products == nil {
		return PerMillionRates{}, false
	}
	r, ok := c.Products[productType]
	return r, ok
}
