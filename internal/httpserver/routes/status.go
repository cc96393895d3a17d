package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/jmallet/outreach/internal/httpserver/deps"
	"github.com/jmallet/outreach/internal/httpserver/handlers"
)

func init() { Register(registerStatus) }

// registerStatus exposes the read-only run observation API. Nothing under
// /api writes to the ledger.
func registerStatus(r chi.Router, d deps.Deps) {
	r.Route("/api", func(api chi.Router) {
		api.Get("/quota", handlers.Quota(d))
		api.Get("/stats", handlers.Stats(d))
		api.Get("/history", handlers.History(d))
		api.Get("/export", handlers.Export(d))
	})
}
