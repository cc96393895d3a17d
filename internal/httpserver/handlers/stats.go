package handlers

import (
	"net/http"

	"github.com/jmallet/outreach/internal/httpserver/deps"
)

func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := d.Ledger.Statistics(r.Context())
		if err != nil {
			fail(d, w, "statistics query failed", err)
			return
		}
		writeJSON(w, stats)
	}
}
