/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP from X-Forwarded-For / X-Real-IP
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the agent dashboard
  6. RateLimit:  Token bucket per client IP (optional)

ROUTE GROUPS:
  /api/calculate            Stateless calculation
  /api/agents/{userID}/*    Agreement, journeys, sales, goals
  /api/scenarios/*          Demo data
  /healthz                  Store liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - ratelimit.go: Per-IP limiter
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	// RateLimitRPS <= 0 disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if opts.RateLimitRPS > 0 {
		r.Use(NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware)
	}

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/calculate", h.Calculate)

		r.Route("/agents/{userID}", func(r chi.Router) {
			// Agreement routes
			r.Get("/agreement", h.GetAgreement)
			r.Put("/agreement", h.PutAgreement)
			r.Put("/agreement/{category}/{company}", h.EditCompany)

			// Journey and ledger routes
			r.Post("/journeys", h.RunJourney)
			r.Get("/sales", h.ListSales)

			// Goal routes
			r.Put("/goals", h.SetGoal)
			r.Post("/goals/plan", h.PlanGoals)
			r.Get("/achievements", h.GetAchievements)
			r.Get("/performance", h.ListPerformance)
			r.Post("/performance/contribute", h.Contribute)
			r.Post("/performance/reset", h.ResetPerformance)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
