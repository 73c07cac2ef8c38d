/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate a demo agent with realistic
	data. Each scenario writes an agreement and, for the richer ones, yearly
	goals and a few client meetings run through the journey orchestrator.

AVAILABLE SCENARIOS:

	new-agent:       Default agreement only, nothing recorded
	full-agreement:  Rates in all four categories, nothing recorded
	busy-month:      Full agreement, planned goals, three meetings this month

HOW SCENARIOS WORK:
 1. Replace the agent's agreement
 2. new-agent and full-agreement reset the current year's counters
 3. busy-month plans goals via the yearly planner
 4. busy-month runs meetings with deterministic journey IDs

Journey IDs derive from the agent and the month, so loading busy-month twice
in a month replays the meetings instead of double counting. Replayed
meetings do not contribute again, even after a reset.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-month", "user_id": "demo-agent"}

NOTE:

	Scenarios overwrite the agent's agreement. Only use with demo agents.

SEE ALSO:
  - handlers.go: Agreement and journey handlers
  - factory/catalog.go: DefaultAgreement, rate edits
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/factory"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/agentdesk/commission-engine/journey"
	"github.com/shopspring/decimal"
)

// ScenarioDTO describes a loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	UserID     string `json:"user_id" validate:"omitempty,max=128"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const defaultDemoAgent = "demo-agent"

var scenarios = []ScenarioDTO{
	{
		ID:          "new-agent",
		Name:        "New Agent",
		Description: "Default agreement (מגדל pension only), no sales",
	},
	{
		ID:          "full-agreement",
		Name:        "Full Agreement",
		Description: "Pension, insurance, savings and policy rates configured",
	},
	{
		ID:          "busy-month",
		Name:        "Busy Month",
		Description: "Full agreement, yearly goals and three client meetings this month",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario for one agent.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req, nil); err != nil {
		h.fail(w, "Invalid request body", err)
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = defaultDemoAgent
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "new-agent":
		err = h.loadNewAgentScenario(ctx, userID)
	case "full-agreement":
		err = h.loadFullAgreementScenario(ctx, userID)
	case "busy-month":
		err = h.loadBusyMonthScenario(ctx, userID)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		h.fail(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID, "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID, "user_id": userID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewAgentScenario(ctx context.Context, userID string) error {
	if err := h.Rates.SaveAgreement(ctx, userID, factory.DefaultAgreement(userID)); err != nil {
		return err
	}
	_, err := h.Goals.ResetYearly(ctx, userID, h.Now().Year())
	return err
}

// fullAgreement configures one company per category on top of the default.
func fullAgreement(userID string) (commission.AgentRateAgreement, error) {
	d := decimal.RequireFromString
	a, err := factory.SetPensionRates(factory.DefaultAgreement(userID), "הראל", true, d("0.07"), d("10000"))
	if err != nil {
		return a, err
	}

	products := []struct {
		category         commission.Category
		company, product string
		oneTime, monthly string
	}{
		{commission.CategoryInsurance, "הפניקס", "risk", "65", "25"},
		{commission.CategoryInsurance, "הפניקס", "health", "10", "7"},
		{commission.CategorySavingsAndStudy, "מור", "gemel", "6000", "250"},
		{commission.CategorySavingsAndStudy, "מור", "hishtalmut", "5000", "200"},
		{commission.CategoryPolicy, "מנורה", "savings_policy", "7000", "300"},
	}
	for _, p := range products {
		if a, err = factory.SetProductRates(a, p.category, p.company, p.product, d(p.oneTime), d(p.monthly)); err != nil {
			return a, err
		}
		// product edits leave new companies inactive
		if a, err = factory.SetCompanyActive(a, p.category, p.company, true); err != nil {
			return a, err
		}
	}
	return a, nil
}

func (h *Handler) saveFullAgreement(ctx context.Context, userID string) error {
	a, err := fullAgreement(userID)
	if err != nil {
		return err
	}
	return h.Rates.SaveAgreement(ctx, userID, a)
}

func (h *Handler) loadFullAgreementScenario(ctx context.Context, userID string) error {
	if err := h.saveFullAgreement(ctx, userID); err != nil {
		return err
	}
	_, err := h.Goals.ResetYearly(ctx, userID, h.Now().Year())
	return err
}

func (h *Handler) loadBusyMonthScenario(ctx context.Context, userID string) error {
	if err := h.saveFullAgreement(ctx, userID); err != nil {
		return err
	}

	now := h.Now().UTC()
	year := now.Year()
	for _, plan := range []goals.PlanInput{
		{Category: goals.TargetPensionTransfer, ClosingRate: decimal.NewFromInt(50), Meetings: 10},
		{Category: goals.TargetRisks, ClosingRate: decimal.NewFromInt(40), Meetings: 10},
		{Category: goals.TargetProvidentFund, ClosingRate: decimal.NewFromInt(30), Meetings: 8},
	} {
		if _, err := h.Goals.PlanYear(ctx, userID, year, plan); err != nil {
			return err
		}
	}

	d := decimal.RequireFromString
	meetings := []struct {
		client string
		sales  []journey.SaleRequest
	}{
		{
			client: "דנה כהן",
			sales: []journey.SaleRequest{
				{Company: "מגדל", Input: commission.PensionInput{Salary: d("15000"), ProvisionRate: d("20.83"), Accumulation: d("400000")}},
				{Company: "הפניקס", Input: commission.InsuranceInput{Premium: d("3600"), InsuranceType: "risk"}},
			},
		},
		{
			client: "יוסי לוי",
			sales: []journey.SaleRequest{
				{Company: "מור", Input: commission.SavingsInput{Amount: d("250000"), ProductType: "gemel"}},
			},
		},
		{
			client: "מיכל אברהם",
			sales: []journey.SaleRequest{
				{Company: "הראל", Input: commission.PensionInput{Salary: d("22000"), ProvisionRate: d("20"), Accumulation: d("1200000")}},
				{Company: "מנורה", Input: commission.PolicyInput{Amount: d("500000"), ProductType: "savings_policy"}},
			},
		},
	}

	for i, m := range meetings {
		_, err := h.Journeys.Run(ctx, journey.Request{
			ID:         fmt.Sprintf("busy-month:%s:%04d-%02d:%d", userID, year, now.Month(), i),
			UserID:     userID,
			ClientName: m.client,
			Date:       now,
			Mode:       commission.ModeAgreement,
			Sales:      m.sales,
		})
		if err != nil {
			return fmt.Errorf("meeting %d: %w", i, err)
		}
	}
	return nil
}
