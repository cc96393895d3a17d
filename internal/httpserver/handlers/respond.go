package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jmallet/outreach/internal/httpserver/deps"
	"github.com/jmallet/outreach/internal/logger"
)

// writeJSON encodes v with the standard headers for this API.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(v)
}

// fail logs the error and answers 500 with a terse body; internals never
// leak into the response.
func fail(d deps.Deps, w http.ResponseWriter, what string, err error) {
	d.Logger.Error(what, logger.Error(err))
	http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
}
