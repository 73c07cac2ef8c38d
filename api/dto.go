/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (decimal amounts, sale input union) from the wire
  contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Calculation:  CalculateRequest, SaleInputDTO, CalculationDTO
  Agreement:    factory.AgreementJSON (GET/PUT), CompanyEditRequest
  Journey:      JourneyRequest, JourneySaleDTO, JourneyDTO, SaleDTO
  Ledger:       SaleRecordDTO
  Goals:        SetGoalRequest, PlanRequest, ContributeRequest,
                AchievementDTO, PerformanceDTO

VALIDATION:
  Struct tags are checked with go-playground/validator before the handler
  touches the domain. Domain rules (pension ranges, unknown products) are
  still enforced by the domain packages and mapped to 400.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/agreement.go: AgreementJSON
*/
package api

import (
	"fmt"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/agentdesk/commission-engine/journey"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CALCULATION
// =============================================================================

// SaleInputDTO carries the fields of every category; Category picks which
// ones are read.
type SaleInputDTO struct {
	// pension
	Salary         decimal.Decimal `json:"salary"`
	ProvisionRate  decimal.Decimal `json:"provision_rate"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Accumulation   decimal.Decimal `json:"accumulation"`
	// insurance
	Premium       decimal.Decimal `json:"premium"`
	InsuranceType string          `json:"insurance_type"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=monthly annual"`
	// savings_and_study, policy
	Amount      decimal.Decimal `json:"amount"`
	ProductType string          `json:"product_type"`
}

// ToInput builds the domain input for category.
func (d SaleInputDTO) ToInput(category commission.Category) (commission.SaleInput, error) {
	switch category {
	case commission.CategoryPension:
		return commission.PensionInput{
			Salary:         d.Salary,
			ProvisionRate:  d.ProvisionRate,
			CommissionRate: d.CommissionRate,
			Accumulation:   d.Accumulation,
		}, nil
	case commission.CategoryInsurance:
		return commission.InsuranceInput{
			Premium:        d.Premium,
			InsuranceType:  d.InsuranceType,
			PaymentMethod:  commission.PaymentMethod(d.PaymentMethod),
			CommissionRate: d.CommissionRate,
		}, nil
	case commission.CategorySavingsAndStudy:
		return commission.SavingsInput{Amount: d.Amount, ProductType: d.ProductType}, nil
	case commission.CategoryPolicy:
		return commission.PolicyInput{Amount: d.Amount, ProductType: d.ProductType}, nil
	}
	return nil, fmt.Errorf("%w: unknown category %q", errBadRequest, category)
}

// CalculateRequest is the body of POST /api/calculate. UserID is required in
// agreement mode.
type CalculateRequest struct {
	Mode     string       `json:"mode" validate:"omitempty,oneof=simple agreement"`
	Category string       `json:"category" validate:"required,oneof=pension insurance savings_and_study policy"`
	Company  string       `json:"company" validate:"required_if=Mode agreement"`
	UserID   string       `json:"user_id" validate:"required_if=Mode agreement"`
	Input    SaleInputDTO `json:"input"`
}

// CalculationDTO is a CommissionResult plus display strings.
type CalculationDTO struct {
	commission.CommissionResult
	NoRates   bool              `json:"no_rates"`
	Formatted map[string]string `json:"formatted"`
}

func toCalculationDTO(r commission.CommissionResult) CalculationDTO {
	return CalculationDTO{
		CommissionResult: r,
		NoRates:          commission.HasNoRates(r),
		Formatted: map[string]string{
			"scope":   commission.FormatAmount(r.ScopeCommission),
			"monthly": commission.FormatAmount(r.MonthlyCommission),
			"total":   commission.FormatAmount(r.TotalCommission),
		},
	}
}

// =============================================================================
// AGREEMENT
// =============================================================================

// ProductRatesDTO sets one product. For insurance the rates are percents;
// for savings/study and policy they are shekels per million.
type ProductRatesDTO struct {
	OneTime decimal.Decimal `json:"one_time"`
	Monthly decimal.Decimal `json:"monthly"`
}

// CompanyEditRequest is the body of PUT .../agreement/{category}/{company}.
// Nil fields are left unchanged.
type CompanyEditRequest struct {
	Active              *bool                      `json:"active"`
	ScopeRate           *decimal.Decimal           `json:"scope_rate"`
	ScopeRatePerMillion *decimal.Decimal           `json:"scope_rate_per_million"`
	Products            map[string]ProductRatesDTO `json:"products" validate:"dive,keys,required,endkeys"`
}

// =============================================================================
// JOURNEY
// =============================================================================

type JourneySaleDTO struct {
	Category string       `json:"category" validate:"required,oneof=pension insurance savings_and_study policy"`
	Company  string       `json:"company"`
	Input    SaleInputDTO `json:"input"`
}

// JourneyRequest is the body of POST /api/agents/{userID}/journeys. Sending
// the same ID again replays the journey without double counting.
type JourneyRequest struct {
	ID         string           `json:"id" validate:"omitempty,max=64"`
	ClientName string           `json:"client_name" validate:"max=255"`
	Date       string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Mode       string           `json:"mode" validate:"omitempty,oneof=simple agreement"`
	Sales      []JourneySaleDTO `json:"sales" validate:"required,min=1,dive"`
}

type SaleDTO struct {
	ID      string         `json:"id"`
	Company string         `json:"company,omitempty"`
	Result  CalculationDTO `json:"result"`
}

type JourneyDTO struct {
	ID            string                     `json:"id"`
	UserID        string                     `json:"user_id"`
	ClientName    string                     `json:"client_name"`
	Date          string                     `json:"date"`
	Sales         []SaleDTO                  `json:"sales"`
	Summary       journey.Summary            `json:"summary"`
	SummaryText   string                     `json:"summary_text"`
	NextSteps     string                     `json:"next_steps"`
	Contributions []goals.ContributionResult `json:"contributions"`
	Replayed      int                        `json:"replayed"`
}

func toJourneyDTO(j *journey.Journey) JourneyDTO {
	dto := JourneyDTO{
		ID:            j.ID,
		UserID:        j.UserID,
		ClientName:    j.ClientName,
		Date:          j.Date.Format(dateLayout),
		Sales:         make([]SaleDTO, len(j.Sales)),
		Summary:       j.Summary,
		SummaryText:   j.SummaryText,
		NextSteps:     j.NextSteps,
		Contributions: j.Contributions,
		Replayed:      j.Replayed,
	}
	for i, s := range j.Sales {
		dto.Sales[i] = SaleDTO{ID: s.ID, Company: s.Company, Result: toCalculationDTO(s.Result)}
	}
	return dto
}

// =============================================================================
// LEDGER
// =============================================================================

type SaleRecordDTO struct {
	ID          string          `json:"id"`
	JourneyID   string          `json:"journey_id,omitempty"`
	ClientName  string          `json:"client_name,omitempty"`
	Category    string          `json:"category"`
	Company     string          `json:"company,omitempty"`
	ProductType string          `json:"product_type,omitempty"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Scope       decimal.Decimal `json:"scope_commission"`
	Monthly     decimal.Decimal `json:"monthly_commission"`
	Total       decimal.Decimal `json:"total_commission"`
	Contributed bool            `json:"contributed"`
}

func toSaleRecordDTO(r commission.SaleRecord) SaleRecordDTO {
	return SaleRecordDTO{
		ID:          r.ID,
		JourneyID:   r.JourneyID,
		ClientName:  r.ClientName,
		Category:    string(r.Category),
		Company:     r.Company,
		ProductType: r.ProductType,
		Date:        r.Date.Format(dateLayout),
		Amount:      r.Amount,
		Scope:       r.Scope,
		Monthly:     r.Monthly,
		Total:       r.Total,
		Contributed: r.Contributed,
	}
}

// SalesDTO is the ledger listing plus per-category totals.
type SalesDTO struct {
	From   string                      `json:"from"`
	To     string                      `json:"to"`
	Sales  []SaleRecordDTO             `json:"sales"`
	Totals map[string]CategoryTotalDTO `json:"totals"`
}

type CategoryTotalDTO struct {
	Count int             `json:"count"`
	Scope decimal.Decimal `json:"scope"`
	Total decimal.Decimal `json:"total"`
}

// =============================================================================
// GOALS
// =============================================================================

type SetGoalRequest struct {
	Category   string          `json:"category" validate:"required"`
	MetricType string          `json:"metric_type" validate:"omitempty,oneof=transfer_amount premium_amount deposit_amount amount"`
	Month      int             `json:"month" validate:"required,min=1,max=12"`
	Year       int             `json:"year" validate:"required,min=2000,max=2100"`
	Target     decimal.Decimal `json:"target"`
}

type PlanRequest struct {
	Year        int             `json:"year" validate:"required,min=2000,max=2100"`
	Category    string          `json:"category" validate:"required"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	ClosingRate decimal.Decimal `json:"closing_rate"`
	Meetings    int             `json:"meetings" validate:"min=0"`
	Percentage  decimal.Decimal `json:"percentage"`
}

type ContributeRequest struct {
	Category   string          `json:"category" validate:"required"`
	MetricType string          `json:"metric_type" validate:"omitempty,oneof=transfer_amount premium_amount deposit_amount amount"`
	Month      int             `json:"month" validate:"required,min=1,max=12"`
	Year       int             `json:"year" validate:"required,min=2000,max=2100"`
	Value      decimal.Decimal `json:"value"`
}

type PerformanceDTO struct {
	Category     string          `json:"category"`
	MetricType   string          `json:"metric_type"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Performance  decimal.Decimal `json:"performance"`
	Version      int64           `json:"version"`
}

func toPerformanceDTO(r goals.PerformanceRecord) PerformanceDTO {
	return PerformanceDTO{
		Category:     string(r.Key.Category),
		MetricType:   string(r.Key.MetricType),
		Month:        r.Key.Month,
		Year:         r.Key.Year,
		TargetAmount: r.TargetAmount,
		Performance:  r.Performance,
		Version:      r.Version,
	}
}

type AchievementDTO struct {
	Target     decimal.Decimal `json:"target"`
	Achieved   decimal.Decimal `json:"achieved"`
	Percentage decimal.Decimal `json:"percentage"`
}

type AchievementsDTO struct {
	Month        int                       `json:"month"`
	Year         int                       `json:"year"`
	Achievements map[string]AchievementDTO `json:"achievements"`
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
	}
	return t, nil
}
