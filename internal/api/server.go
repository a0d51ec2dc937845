// Package api implements the HTTP layer for the meningioma decision-flow
// backend. Handlers are methods on *Server. Each handler file is responsible
// for one resource group and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/cases"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/elicit"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/store"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// Model is the configured model identifier, recorded on audit rows.
	Model string

	// ElicitTimeout bounds each individual model call.
	ElicitTimeout time.Duration

	// AllowedOrigins is the CORS allowlist enforced in production. Outside
	// production any origin is admitted.
	AllowedOrigins []string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// data is the bundled case dataset, read-only after startup.
	data *cases.Dataset

	// elicitor turns clinical notes into probability records.
	elicitor elicit.Elicitor

	// audit is the optional elicitation audit log. May be nil — every method
	// on a nil *store.Store is a no-op.
	audit *store.Store

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	data *cases.Dataset,
	elicitor elicit.Elicitor,
	audit *store.Store,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		data:     data,
		elicitor: elicitor,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	// No global timeout here: elicitation requests legitimately run for tens
	// of seconds. Per-call deadlines are set in the handlers.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Case dataset browsing — no model call.
		r.Get("/cases", s.handleListCases)

		// Probability elicitation (model calls).
		r.Post("/treatment", s.handleTreatment)
		r.Post("/treatment/compare", s.handleTreatmentCompare)
		r.Post("/tree", s.handleDeriveTree)

		// Pure diagram templating — deterministic, no model call.
		r.Post("/diagram", s.handleRenderDiagram)
		r.Get("/diagram/default", s.handleDefaultDiagram)

		// Audit trail (empty when the store is disabled).
		r.Get("/elicitations", s.handleListElicitations)
	})

	return r
}
