package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"loan-engine/metrics"
)

// NewRouter mounts the loan API. limiter may be nil to disable rate limiting.
func NewRouter(h *LoanHandler, limiter *RateLimiter, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(RateLimitMiddleware(limiter))
		}

		r.Post("/loan/calculate", h.CalculateLoan)

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", h.SubmitLoan)
			r.Get("/", h.ListLoans)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetLoan)
				r.Delete("/", h.DeleteLoan)
				r.Put("/terms", h.UpdateTerms)
				r.Post("/transitions", h.Transition)
				r.Post("/repayments", h.RecordRepayment)
				r.Get("/statement", h.Statement)
				r.Get("/schedule", h.Schedule)
				r.Post("/guarantors", h.AddGuarantor)
				r.Get("/guarantors", h.ListGuarantors)
			})
		})
	})

	return r
}
