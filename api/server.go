/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a form frontend

ROUTE GROUPS:
  /api/calendar/*       Display calendar and date conversion
  /api/fiscal-years/*   Fiscal years
  /api/leave-types/*    Leave type definitions (factory JSON)
  /api/employees/*      Employees, balances, leave requests
  /api/leave-requests/* Status transitions
  /api/scenarios/*      Demo data

SECURITY NOTE:
  No authentication middleware. Callers are trusted back-office tools.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured. allowedOrigins
// feeds the CORS middleware; empty means no cross-origin access.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/", h.GetCalendar)
			r.Get("/display", h.DisplayDate)
			r.Get("/parse", h.ParseDate)
		})

		r.Route("/fiscal-years", func(r chi.Router) {
			r.Get("/", h.ListFiscalYears)
			r.Post("/", h.CreateFiscalYear)
			r.Get("/current", h.GetCurrentFiscalYear)
		})

		r.Route("/leave-types", func(r chi.Router) {
			r.Get("/", h.ListLeaveTypes)
			r.Post("/", h.CreateLeaveType)
			r.Get("/{id}", h.GetLeaveType)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.SaveEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/balances", h.ListBalances)
			r.Post("/{id}/entitlements", h.RecomputeEntitlements)
			r.Get("/{id}/leave-requests", h.ListLeaveRequests)
			r.Post("/{id}/leave-requests", h.SubmitLeaveRequest)
			r.Put("/{id}/leave-requests/{requestID}", h.EditLeaveRequest)
		})

		r.Post("/leave-requests/{id}/status", h.UpdateLeaveRequestStatus)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
