// Package api serves the HTTP surface: the public leaderboard and claim
// endpoints used by the web app, the operator endpoints for the transaction
// registry and the moderation queue, plus health and metrics.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luckybingo/bingo-bot/internal/bot/handlers"
	"github.com/luckybingo/bingo-bot/internal/health"
	"github.com/luckybingo/bingo-bot/internal/jobs"
	"github.com/luckybingo/bingo-bot/internal/leaderboard"
	"github.com/luckybingo/bingo-bot/internal/ledger"
	"github.com/luckybingo/bingo-bot/internal/middleware"
	"github.com/luckybingo/bingo-bot/internal/registry"
	"github.com/luckybingo/bingo-bot/pkg/logger"
)

// Server holds the handlers' dependencies and the assembled router.
type Server struct {
	boards     *leaderboard.Service
	engine     *ledger.Service
	txns       *registry.Service
	queue      jobs.Manager
	gate       handlers.ClaimGate
	checker    *health.Checker
	adminToken string
	maxEntries int
	validate   *validator.Validate
	log        *slog.Logger
}

// NewServer builds the HTTP API server.
func NewServer(
	boards *leaderboard.Service,
	engine *ledger.Service,
	txns *registry.Service,
	queue jobs.Manager,
	gate handlers.ClaimGate,
	checker *health.Checker,
	adminToken string,
	maxEntries int,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		boards:     boards,
		engine:     engine,
		txns:       txns,
		queue:      queue,
		gate:       gate,
		checker:    checker,
		adminToken: adminToken,
		maxEntries: maxEntries,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log,
	}
}

// Handler assembles the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(logger.Middleware)
	r.Use(middleware.RequestLogging(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// The leaderboard is embedded by third-party sites; the rest of the
		// public API is called by our own web app only.
		r.Group(func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{http.MethodGet},
			}))
			r.Get("/leaderboard", s.handleLeaderboard)
		})

		r.Post("/deposit/claim", s.handleClaim)
		r.Post("/upload-receipt", s.handleUploadReceipt)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Get("/deposits", s.handleListPending)
			r.Post("/deposits/{id}/approve", s.handleApprove)
			r.Get("/txns", s.handleListTxns)
			r.Post("/txns/add", s.handleAddTxn)
			r.Post("/txns/bulk", s.handleBulkTxns)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := map[string]string{}
	if s.checker != nil {
		results = s.checker.Check(r.Context())
	}

	status := http.StatusOK
	for _, state := range results {
		if state != "OK" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, results)
}
