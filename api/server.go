/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. requestLogger: Structured request logging via zerolog
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/billing          Aggregated statements
  /api/balance          Cash balance
  /api/bills/*          Payment operations
  /api/cards/*          Card configuration
  /api/expenses/*       Variable expenses + receipts
  /api/fixed/*          Fixed bills
  /api/income/*         Income records
  /api/installments/*   Installment purchases
  /api/investments      Investment positions
  /api/summary/*        Month and year rollups
  /api/seed             Demo data (dev only)
  /blobs/*              Uploaded receipt files

SECURITY NOTE:
  Identity comes from the X-User-ID header with a configured fallback; there
  is no credential check. Put a real authenticating proxy in front before
  exposing this beyond a trusted network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig carries the router's deployment knobs.
type RouterConfig struct {
	CORSOrigins []string
	BlobDir     string // serve /blobs/* from here when non-empty
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/billing", h.GetBilling)

		r.Get("/balance", h.GetBalance)
		r.Put("/balance", h.SetBalance)

		r.Route("/bills", func(r chi.Router) {
			r.Post("/pay", h.PayBill)
			r.Post("/pay-partial", h.PayPartial)
			r.Post("/reverse", h.ReversePayment)
			r.Post("/pay-item", h.PayItem)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", h.ListCards)
			r.Post("/", h.CreateCard)
			r.Put("/{id}", h.UpdateCard)
			r.Delete("/{id}", h.DeleteCard)
			r.Post("/{id}/block", h.BlockCard)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", h.CreateExpense)
			r.Put("/{month}/{id}", h.UpdateExpense)
			r.Delete("/{month}/{id}", h.DeleteExpense)
			r.Post("/{month}/{id}/receipt", h.AttachReceipt)
		})

		r.Route("/fixed", func(r chi.Router) {
			r.Post("/", h.CreateFixedBill)
			r.Put("/{month}/{id}", h.UpdateFixedBill)
			r.Delete("/{month}/{id}", h.DeleteFixedBill)
			r.Post("/{month}/{id}/status", h.SetFixedStatus)
		})

		r.Route("/income", func(r chi.Router) {
			r.Post("/", h.CreateIncome)
			r.Put("/{month}/{id}", h.UpdateIncome)
			r.Delete("/{month}/{id}", h.DeleteIncome)
		})

		r.Route("/installments", func(r chi.Router) {
			r.Post("/", h.CreatePurchase)
			r.Post("/{id}/reverse", h.ReversePurchase)
			r.Post("/{id}/settle", h.SettlePurchase)
		})

		r.Route("/investments", func(r chi.Router) {
			r.Get("/", h.ListPositions)
			r.Post("/", h.CreateInvestment)
		})

		r.Route("/summary", func(r chi.Router) {
			r.Get("/", h.GetSummary)
			r.Get("/annual", h.GetAnnualSummary)
		})

		r.Post("/seed", h.Seed)
	})

	// Uploaded receipts
	if cfg.BlobDir != "" {
		fileServer := http.StripPrefix("/blobs/", http.FileServer(http.Dir(cfg.BlobDir)))
		r.Get("/blobs/*", fileServer.ServeHTTP)
	}

	return r
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
