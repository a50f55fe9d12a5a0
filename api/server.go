/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Actor:      Acting-person resolution from X-Acting-As

ROUTE GROUPS:
  /api/entries/*       Loan/expense entries
  /api/payments/*      Payments and proof
  /api/installments/*  Term lifecycle and penalties
  /api/allocations/*   Group-split line items
  /api/people, /api/groups  Directory
  /api/dashboard       Aggregate summary

SEE ALSO:
  - handlers.go: Handler implementations
  - identity.go: Actor middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. fallbackActor
// is the acting person used when requests carry no X-Acting-As header.
func NewRouter(h *Handler, fallbackActor string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActingAsHeader},
		AllowCredentials: true,
	}))
	r.Use(ActorMiddleware(fallbackActor))

	r.Route("/api", func(r chi.Router) {
		// Entry routes
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Post("/auto-complete", h.AutoCompleteEntries)
			r.Get("/{id}", h.GetEntry)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
			r.Post("/{id}/complete", h.CompleteEntry)
			r.Get("/{id}/payments", h.EntryPayments)
			r.Get("/{id}/installments", h.EntryInstallments)
			r.Get("/{id}/allocations", h.EntryAllocations)
			r.Post("/{id}/allocations", h.CreateEntryAllocations)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Get("/{id}", h.GetPayment)
			r.Put("/{id}", h.UpdatePayment)
			r.Delete("/{id}", h.DeletePayment)
			r.Get("/{id}/proof", h.PaymentProof)
		})

		// Installment routes
		r.Route("/installments", func(r chi.Router) {
			r.Post("/sweep", h.SweepDelinquentTerms)
			r.Get("/penalties/total", h.TotalPaidPenalties)
			r.Route("/terms/{id}", func(r chi.Router) {
				r.Post("/skip", h.SkipTerm)
				r.Put("/status", h.UpdateTermStatus)
				r.Get("/skip-penalty", h.SkipPenaltyPreview)
				r.Get("/delinquent-fee", h.DelinquentFeePreview)
			})
		})

		// Allocation routes
		r.Route("/allocations", func(r chi.Router) {
			r.Get("/", h.ListAllocations)
			r.Put("/{id}", h.UpdateAllocation)
			r.Delete("/{id}", h.DeleteAllocation)
		})

		// Directory routes
		r.Route("/people", func(r chi.Router) {
			r.Get("/", h.ListPeople)
			r.Post("/", h.CreatePerson)
		})
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/{id}/members", h.GroupMembers)
		})

		// Dashboard
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
