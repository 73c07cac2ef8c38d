/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes commission calculation, agreements, journeys, the sales ledger and
  goals via REST. Handles HTTP request/response, JSON serialization and
  validation, and delegates to the domain packages.

ENDPOINTS:
  Calculation:
    POST   /api/calculate                                   One sale, no side effects

  Agreements:
    GET    /api/agents/{userID}/agreement                   Load (default on first use)
    PUT    /api/agents/{userID}/agreement                   Replace whole document
    PUT    /api/agents/{userID}/agreement/{category}/{company}  Edit one company

  Journeys & ledger:
    POST   /api/agents/{userID}/journeys                    Run a client meeting
    GET    /api/agents/{userID}/sales?from&to               Recorded sales + totals

  Goals:
    PUT    /api/agents/{userID}/goals                       Set one monthly target
    POST   /api/agents/{userID}/goals/plan                  Plan twelve targets
    GET    /api/agents/{userID}/achievements?month&year     Progress per category
    GET    /api/agents/{userID}/performance?month&year      Raw counters
    POST   /api/agents/{userID}/performance/contribute      Raw contribution
    POST   /api/agents/{userID}/performance/reset?year      Yearly reset

ARCHITECTURE:
  Handler holds the stores and the domain services built on them:
  - Rates:      agreement documents
  - Ledger:     append-only sales
  - Goals:      performance aggregator
  - Journeys:   orchestrator wiring the three together

ERROR HANDLING:
  Errors are returned as JSON {error, details} with status:
  - 400: Validation errors, invalid input (pension range messages verbatim)
  - 404: Resource not found
  - 409: Conflict (duplicate idempotency key, lost optimistic race)
  - 422: Goal overflow
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The userID path segment is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/factory"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/agentdesk/commission-engine/journey"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed or invalid request input.
var errBadRequest = errors.New("bad request")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Rates      commission.RateStore
	Ledger     *commission.Ledger
	Goals      *goals.Aggregator
	Journeys   *journey.Orchestrator
	Agreements *factory.AgreementFactory
	Logger     *slog.Logger

	// Now is the clock for default dates.
	Now func() time.Time

	validate *validator.Validate
}

// NewHandler builds the domain services over the given stores.
func NewHandler(rates commission.RateStore, sales commission.SaleStore, perf goals.PerformanceStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	orch := journey.NewOrchestrator(rates, sales, perf, logger)
	return &Handler{
		Rates:      rates,
		Ledger:     orch.Ledger,
		Goals:      orch.Goals,
		Journeys:   orch,
		Agreements: factory.NewAgreementFactory(),
		Logger:     logger,
		Now:        time.Now,
		validate:   validator.New(),
	}
}

// =============================================================================
// CALCULATION
// =============================================================================

// Calculate computes the commission of one sale without recording it.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := h.decode(r, &req, func() {
		if req.Mode == "" {
			req.Mode = string(commission.ModeAgreement)
		}
	}); err != nil {
		h.fail(w, "Invalid request body", err)
		return
	}

	category := commission.Category(req.Category)
	input, err := req.Input.ToInput(category)
	if err != nil {
		h.fail(w, "Invalid sale input", err)
		return
	}

	mode := commission.Mode(req.Mode)
	var agreement *commission.AgentRateAgreement
	if mode == commission.ModeAgreement {
		agreement, err = h.Rates.LoadAgreement(r.Context(), req.UserID)
		if err != nil {
			h.fail(w, "Failed to load agreement", err)
			return
		}
		if agreement == nil {
			def := factory.DefaultAgreement(req.UserID)
			agreement = &def
		}
	}

	result, err := commission.Calculate(mode, req.Company, input, agreement)
	if err != nil {
		h.fail(w, "Calculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(result))
}

// =============================================================================
// AGREEMENTS
// =============================================================================

// GetAgreement returns the agent's agreement, creating the default one for a
// new agent.
func (h *Handler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	a, err := factory.EnsureAgreement(r.Context(), h.Rates, userID)
	if err != nil {
		h.fail(w, "Failed to load agreement", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Agreements.ToJSON(a))
}

// PutAgreement replaces the agent's agreement document.
func (h *Handler) PutAgreement(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, "Failed to read body", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	a, err := h.Agreements.ParseAgreement(userID, string(body))
	if err != nil {
		h.fail(w, "Invalid agreement", err)
		return
	}
	if err := h.Rates.SaveAgreement(r.Context(), userID, a); err != nil {
		h.fail(w, "Failed to save agreement", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Agreements.ToJSON(a))
}

// EditCompany updates one company of one category. Pension takes rates
// directly; the product categories take a products map.
func (h *Handler) EditCompany(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	category := commission.Category(pathParam(r, "category"))
	company := pathParam(r, "company")

	var req CompanyEditRequest
	if err := h.decode(r, &req, nil); err != nil {
		h.fail(w, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	a, err := factory.EnsureAgreement(ctx, h.Rates, userID)
	if err != nil {
		h.fail(w, "Failed to load agreement", err)
		return
	}

	a, err = applyCompanyEdit(a, category, company, req)
	if err != nil {
		h.fail(w, "Invalid edit", err)
		return
	}
	if err := h.Rates.SaveAgreement(ctx, userID, a); err != nil {
		h.fail(w, "Failed to save agreement", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Agreements.ToJSON(a))
}

func applyCompanyEdit(a commission.AgentRateAgreement, category commission.Category, company string, req CompanyEditRequest) (commission.AgentRateAgreement, error) {
	var err error

	if category == commission.CategoryPension {
		current := a.PensionCompanies[company]
		active, scope, perMillion := current.Active, current.ScopeRate, current.ScopeRatePerMillion
		if req.Active != nil {
			active = *req.Active
		}
		if req.ScopeRate != nil {
			scope = *req.ScopeRate
		}
		if req.ScopeRatePerMillion != nil {
			perMillion = *req.ScopeRatePerMillion
		}
		return factory.SetPensionRates(a, company, active, scope, perMillion)
	}

	for product, rates := range req.Products {
		if a, err = factory.SetProductRates(a, category, company, product, rates.OneTime, rates.Monthly); err != nil {
			return a, err
		}
	}
	if req.Active != nil {
		if a, err = factory.SetCompanyActive(a, category, company, *req.Active); err != nil {
			return a, err
		}
	}
	return a, nil
}

// =============================================================================
// JOURNEYS & LEDGER
// =============================================================================

// RunJourney calculates, records and contributes every sale of a meeting.
func (h *Handler) RunJourney(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req JourneyRequest
	if err := h.decode(r, &req, nil); err != nil {
		h.fail(w, "Invalid request body", err)
		return
	}

	date, err := parseDate(req.Date, time.Time{})
	if err != nil {
		h.fail(w, "Invalid date", err)
		return
	}

	jr := journey.Request{
		ID:         req.ID,
		UserID:     userID,
		ClientName: req.ClientName,
		Date:       date,
		Mode:       commission.Mode(req.Mode),
	}
	for i, s := range req.Sales {
		input, err := s.Input.ToInput(commission.Category(s.Category))
		if err != nil {
			h.fail(w, fmt.Sprintf("Invalid sale %d", i), err)
			return
		}
		jr.Sales = append(jr.Sales, journey.SaleRequest{Company: s.Company, Input: input})
	}

	j, err := h.Journeys.Run(r.Context(), jr)
	if err != nil {
		h.fail(w, "Journey failed", err)
		return
	}

	status := http.StatusCreated
	if j.Replayed == len(j.Sales) {
		status = http.StatusOK
	}
	writeJSON(w, status, toJourneyDTO(j))
}

// ListSales returns recorded sales in [from, to] (dates, inclusive). The
// default range is the current year up to today.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	now := h.Now().UTC()
	q := r.URL.Query()

	from, err := parseDate(q.Get("from"), time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		h.fail(w, "Invalid from date", err)
		return
	}
	to, err := parseDate(q.Get("to"), time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	if err != nil {
		h.fail(w, "Invalid to date", err)
		return
	}
	if to.Before(from) {
		h.fail(w, "Invalid range", fmt.Errorf("%w: to is before from", errBadRequest))
		return
	}
	end := to.Add(24*time.Hour - time.Nanosecond)

	ctx := r.Context()
	recs, err := h.Ledger.Sales(ctx, userID, from, end)
	if err != nil {
		h.fail(w, "Failed to load sales", err)
		return
	}
	report, err := h.Ledger.Report(ctx, userID, from, end)
	if err != nil {
		h.fail(w, "Failed to load sales", err)
		return
	}

	dto := SalesDTO{
		From:   from.Format(dateLayout),
		To:     to.Format(dateLayout),
		Sales:  make([]SaleRecordDTO, len(recs)),
		Totals: make(map[string]CategoryTotalDTO, len(report)),
	}
	for i, rec := range recs {
		dto.Sales[i] = toSaleRecordDTO(rec)
	}
	for c, t := range report {
		dto.Totals[string(c)] = CategoryTotalDTO{Count: t.Count, Scope: t.Scope, Total: t.Total}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// GOALS
// =============================================================================

// SetGoal sets one monthly target.
func (h *Handler) SetGoal(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req SetGoalRequest
	if err := h.decode(r, &req, nil); err != nil {
		h.fail(w, "Invalid request body", err)
		return
	}

	key := h.goalKey(userID, req.Category, req.MetricType, req.Month, req.Year)
	rec, err := h.Goals.SetGoalFor(r.Context(), key, req.Target)
	if err != nil {
		h.fail(w, "Failed to set goal", err)
		return
	}
	writeJSON(w, http.StatusOK, toPerformanceDTO(rec))
}

// PlanGoals writes twelve monthly targets for one category.
func (h *Handler) PlanGoals(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req PlanRequest
	if err := h.decode(r, &req, nil); err != nil {
		h.fail(w, "Invalid request body", err)
		return
	}

	recs, err := h.Goals.PlanYear(r.Context(), userID, req.Year, goals.PlanInput{
		Category:    goals.TargetCategory(req.Category),
		BaseAmount:  req.BaseAmount,
		ClosingRate: req.ClosingRate,
		Meetings:    req.Meetings,
		Percentage:  req.Percentage,
	})
	if err != nil {
		h.fail(w, "Failed to plan goals", err)
		return
	}

	yearly := decimal.Zero
	out := make([]PerformanceDTO, len(recs))
	for i, rec := range recs {
		out[i] = toPerformanceDTO(rec)
		yearly = yearly.Add(rec.TargetAmount)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":      req.Category,
		"year":          req.Year,
		"yearly_target": yearly,
		"months":        out,
	})
}

// GetAchievements reports progress per category for one month.
func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	month, year, err := h.period(r, false)
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}

	ach, err := h.Goals.GetAchievements(r.Context(), userID, month, year)
	if err != nil {
		h.fail(w, "Failed to load achievements", err)
		return
	}

	dto := AchievementsDTO{Month: month, Year: year, Achievements: make(map[string]AchievementDTO, len(ach))}
	for c, a := range ach {
		dto.Achievements[string(c)] = AchievementDTO{Target: a.Target, Achieved: a.Achieved, Percentage: a.Percentage}
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListPerformance returns the raw counters of a month, or of the whole year
// when month=0.
func (h *Handler) ListPerformance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	month, year, err := h.period(r, true)
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}

	recs, err := h.Goals.Store.ListPerformance(r.Context(), userID, month, year)
	if err != nil {
		h.fail(w, "Failed to load performance", err)
		return
	}
	out := make([]PerformanceDTO, len(recs))
	for i, rec := range recs {
		out[i] = toPerformanceDTO(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

// Contribute adds a raw value to one counter. An overflow is reported as 422
// with the untouched record.
func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req ContributeRequest
	if err := h.decode(r, &req, nil); err != nil {
		h.fail(w, "Invalid request body", err)
		return
	}

	key := h.goalKey(userID, req.Category, req.MetricType, req.Month, req.Year)
	res, err := h.Goals.Apply(r.Context(), goals.PerformanceDelta{Key: key, Value: req.Value})
	if err != nil {
		h.fail(w, "Contribution failed", err)
		return
	}
	if !res.OK {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetPerformance zeroes the year's counters.
func (h *Handler) ResetPerformance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		h.fail(w, "Invalid year", fmt.Errorf("%w: year is required", errBadRequest))
		return
	}

	n, err := h.Goals.ResetYearly(r.Context(), userID, year)
	if err != nil {
		h.fail(w, "Failed to reset performance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"year": year, "reset": n})
}

// Health reports whether the stores answer.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, s := range []any{h.Rates, h.Goals.Store} {
		if p, ok := s.(interface{ Ping(context.Context) error }); ok {
			if err := p.Ping(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst, runs normalize (if any) and validates.
func (h *Handler) decode(r *http.Request, dst any, normalize func()) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if normalize != nil {
		normalize()
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) goalKey(userID, category, metric string, month, year int) goals.PerformanceKey {
	c := goals.TargetCategory(category)
	m := goals.MetricType(metric)
	if m == "" {
		m = goals.DefaultMetric(c)
	}
	return goals.PerformanceKey{UserID: userID, Category: c, Month: month, Year: year, MetricType: m}
}

// period reads month and year query parameters, defaulting to the current
// month. allowWholeYear accepts month=0.
func (h *Handler) period(r *http.Request, allowWholeYear bool) (int, int, error) {
	now := h.Now()
	month, year := int(now.Month()), now.Year()
	q := r.URL.Query()

	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 || m > 12 || (m == 0 && !allowWholeYear) {
			return 0, 0, fmt.Errorf("%w: invalid month %q", errBadRequest, v)
		}
		month = m
	}
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y <= 0 {
			return 0, 0, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
		}
		year = y
	}
	return month, year, nil
}

func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// fail maps a domain error to a status and writes it.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)

	var ve *commission.ValidationError
	if errors.As(err, &ve) {
		message = ve.Message
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, "error", err)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, commission.ErrDuplicateIdempotencyKey),
		errors.Is(err, commission.ErrConcurrentModification),
		errors.Is(err, goals.ErrRetriesExhausted):
		return http.StatusConflict
	case errors.Is(err, commission.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, goals.ErrPerformanceOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest),
		journey.IsClientError(err),
		factory.IsClientError(err),
		goals.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
