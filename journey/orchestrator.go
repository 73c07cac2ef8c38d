package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/factory"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultProvisionRate is used for pension sales entered without one.
var DefaultProvisionRate = decimal.RequireFromString("20.83")

var (
	ErrMissingUser    = errors.New("user id is required")
	ErrNoSales        = errors.New("journey has no sales")
	ErrMissingCompany = errors.New("company is required")
)

// IsClientError returns true if the journey request itself is invalid.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingUser) ||
		errors.Is(err, ErrNoSales) ||
		errors.Is(err, ErrMissingCompany) ||
		commission.IsClientError(err)
}

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// SaleRequest is one product the client chose, at one company.
type SaleRequest struct {
	Company string
	Input   commission.SaleInput
}

// Request describes a meeting. ID makes the run idempotent: running the same
// ID twice for the same agent records each sale and its goal contribution
// only once. IDs are scoped per agent. An empty ID gets a fresh one.
type Request struct {
	ID         string
	UserID     string
	ClientName string
	Date       time.Time
	Mode       commission.Mode
	Sales      []SaleRequest
}

// Journey is the outcome of a run.
type Journey struct {
	ID            string                     `json:"id"`
	UserID        string                     `json:"user_id"`
	ClientName    string                     `json:"client_name"`
	Date          time.Time                  `json:"date"`
	Sales         []commission.Sale          `json:"sales"`
	Summary       Summary                    `json:"summary"`
	SummaryText   string                     `json:"summary_text"`
	NextSteps     string                     `json:"next_steps"`
	Contributions []goals.ContributionResult `json:"contributions"`
	Replayed      int                        `json:"replayed"`
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

type Orchestrator struct {
	Rates  commission.RateStore
	Ledger *commission.Ledger
	Goals  *goals.Aggregator
	Logger *slog.Logger
	Now    func() time.Time
}

func NewOrchestrator(rates commission.RateStore, sales commission.SaleStore, perf goals.PerformanceStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Rates:  rates,
		Ledger: commission.NewLedger(sales),
		Goals:  goals.NewAggregator(perf, logger),
		Logger: logger,
		Now:    time.Now,
	}
}

// Run calculates every sale of the meeting, then records each one in the
// ledger and adds it to the agent's goals.
//
// All calculations and amount checks happen before anything is written, so a
// validation error in any sale leaves no trace. A goal overflow does not fail
// the run; it is reported in Contributions.
//
// A sale is flagged as contributed once its goal contribution lands. Replaying
// the journey skips flagged sales and finishes the contribution of any sale
// that was recorded without one.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Journey, error) {
	if req.UserID == "" {
		return nil, ErrMissingUser
	}
	if len(req.Sales) == 0 {
		return nil, ErrNoSales
	}
	mode := req.Mode
	if mode == "" {
		mode = commission.ModeAgreement
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", commission.ErrUnknownMode, mode)
	}

	j := &Journey{
		ID:         req.ID,
		UserID:     req.UserID,
		ClientName: req.ClientName,
		Date:       req.Date,
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Date.IsZero() {
		j.Date = o.Now().UTC()
	}
	log := o.Logger.With("journey_id", j.ID, "user_id", j.UserID)

	var agreement *commission.AgentRateAgreement
	if mode == commission.ModeAgreement {
		a, err := factory.EnsureAgreement(ctx, o.Rates, req.UserID)
		if err != nil {
			return nil, err
		}
		agreement = &a
	}

	// Phase 1: calculate everything.
	results := make([]commission.CommissionResult, 0, len(req.Sales))
	for i, sr := range req.Sales {
		if sr.Input == nil {
			return nil, fmt.Errorf("sale %d: %w", i, commission.ErrMissingInput)
		}
		if mode == commission.ModeAgreement && sr.Company == "" {
			return nil, fmt.Errorf("sale %d: %w", i, ErrMissingCompany)
		}
		input := withDefaults(sr.Input)
		if err := commission.ValidateAmounts(input); err != nil {
			return nil, fmt.Errorf("sale %d (%s): %w", i, input.Category(), err)
		}

		result, err := commission.Calculate(mode, sr.Company, input, agreement)
		if err != nil {
			return nil, fmt.Errorf("sale %d (%s): %w", i, input.Category(), err)
		}
		if commission.HasNoRates(result) {
			log.Info("no commission rates configured", "category", input.Category(), "company", sr.Company)
		}

		key := idempotencyKey(j.UserID, j.ID, i)
		j.Sales = append(j.Sales, commission.Sale{
			ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
			UserID:     j.UserID,
			ClientName: j.ClientName,
			Company:    sr.Company,
			Date:       j.Date,
			Input:      input,
			Result:     result,
		})
		results = append(results, result)
	}

	// Phase 2: record and contribute.
	for i, sale := range j.Sales {
		key := idempotencyKey(j.UserID, j.ID, i)
		err := o.Ledger.Record(ctx, commission.NewSaleRecord(sale, j.ID, key))
		switch {
		case errors.Is(err, commission.ErrDuplicateIdempotencyKey):
			j.Replayed++
			pending, err := o.pendingContribution(ctx, j.UserID, key)
			if err != nil {
				return nil, fmt.Errorf("replay sale %d: %w", i, err)
			}
			if !pending {
				log.Info("sale already recorded", "idempotency_key", key)
				continue
			}
			log.Info("resuming goal contribution", "idempotency_key", key)
		case err != nil:
			return nil, fmt.Errorf("record sale %d: %w", i, err)
		}

		if o.Goals == nil {
			continue
		}
		contribution, err := o.Goals.ContributeToGoal(ctx, sale)
		if err != nil {
			return nil, fmt.Errorf("contribute sale %d: %w", i, err)
		}
		// An overflow is final too: retrying would overflow again.
		if err := o.Ledger.MarkContributed(ctx, j.UserID, key); err != nil {
			return nil, fmt.Errorf("mark sale %d contributed: %w", i, err)
		}
		j.Contributions = append(j.Contributions, contribution)
	}

	j.Summary = Aggregate(results)
	j.SummaryText = SummaryText(j.ClientName, j.Summary)
	j.NextSteps = NextSteps(j.Summary.Categories())

	log.Info("journey completed",
		"sales", len(j.Sales), "replayed", j.Replayed, "total", j.Summary.Total.StringFixed(2))
	return j, nil
}

// pendingContribution reports whether a recorded sale still owes its goal
// contribution.
func (o *Orchestrator) pendingContribution(ctx context.Context, userID, key string) (bool, error) {
	if o.Goals == nil {
		return false, nil
	}
	rec, err := o.Ledger.Find(ctx, userID, key)
	if err != nil {
		return false, err
	}
	return rec != nil && !rec.Contributed, nil
}

// idempotencyKey names the i-th sale of an agent's journey. The sale ID is
// derived from it, so it must differ between agents.
func idempotencyKey(userID, journeyID string, i int) string {
	return fmt.Sprintf("%s:%s:%d", userID, journeyID, i)
}

func withDefaults(in commission.SaleInput) commission.SaleInput {
	if p, ok := in.(commission.PensionInput); ok && p.ProvisionRate.IsZero() {
		p.ProvisionRate = DefaultProvisionRate
		return p
	}
	return in
}
