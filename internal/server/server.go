// Package server wires the authenticated callables and the change-event
// intake onto an HTTP router. The transport is deliberately thin: it decodes
// JSON, hands off to the services, and maps their typed errors to statuses.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bardofig/roozterfaceapp/internal/auth"
	"github.com/bardofig/roozterfaceapp/internal/events"
	"github.com/bardofig/roozterfaceapp/internal/middleware"
	"github.com/bardofig/roozterfaceapp/internal/service"
)

// Server holds the wired services behind an HTTP handler.
type Server struct {
	eventsToken string
	adminUID    string

	dispatcher *events.Dispatcher
	membership *service.MembershipService
	ledger     *service.LedgerService
	ledgerSync *service.LedgerSync
	billing    *service.BillingService
	reconciler *service.Reconciler

	router chi.Router
}

// New assembles the router over the given services. eventsToken is the shared
// secret required on the event intake; adminUID is the only caller allowed to
// reconcile (empty means nobody).
func New(
	jwtManager *auth.JWTManager,
	eventsToken, adminUID string,
	dispatcher *events.Dispatcher,
	membership *service.MembershipService,
	ledger *service.LedgerService,
	ledgerSync *service.LedgerSync,
	billing *service.BillingService,
	reconciler *service.Reconciler,
) *Server {
	s := &Server{
		eventsToken: eventsToken,
		adminUID:    adminUID,
		dispatcher:  dispatcher,
		membership:  membership,
		ledger:      ledger,
		ledgerSync:  ledgerSync,
		billing:     billing,
		reconciler:  reconciler,
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// The change-notification substrate delivers here; it authenticates with
	// a shared secret rather than a user token.
	r.Post("/v1/events", s.handleEvent)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtManager))

		r.Post("/v1/galleras/{groupID}/invitations", s.handleInvite)
		r.Post("/v1/galleras/{groupID}/invitations/accept", s.handleAccept)
		r.Post("/v1/galleras/{groupID}/invitations/decline", s.handleDecline)
		r.Delete("/v1/galleras/{groupID}/members/{memberID}", s.handleRemoveMember)

		r.Post("/v1/galleras/{groupID}/transactions", s.handleAddExpense)
		r.Put("/v1/galleras/{groupID}/transactions/{entryID}", s.handleUpdateExpense)
		r.Delete("/v1/galleras/{groupID}/transactions/{entryID}", s.handleDeleteTransaction)
		r.Post("/v1/galleras/{groupID}/fights/{outcomeID}/result", s.handleFightResult)

		r.Post("/v1/billing/validate", s.handleValidatePurchase)
		r.Post("/v1/admin/reconcile", s.handleReconcile)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
