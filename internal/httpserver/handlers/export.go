package handlers

import (
	"bytes"
	"net/http"

	"github.com/jmallet/outreach/internal/httpserver/deps"
	"github.com/jmallet/outreach/internal/ledger"
)

// Export serves the full ledger as CSV, newest first. The export is
// buffered so a ledger read failure can still answer 500 instead of a
// truncated 200.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if _, err := ledger.ExportCSV(r.Context(), d.Ledger, &buf); err != nil {
			fail(d, w, "csv export failed", err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="outreach_sent.csv"`)
		_, _ = w.Write(buf.Bytes())
	}
}
