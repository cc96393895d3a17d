package handlers

import (
	"net/http"
	"time"

	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/httpserver/deps"
)

type historyEntry struct {
	TargetID     string `json:"target_id"`
	URL          string `json:"url"`
	DisplayName  string `json:"display_name,omitempty"`
	JobTitle     string `json:"job_title,omitempty"`
	Company      string `json:"company,omitempty"`
	SentAt       string `json:"sent_at"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type historyResponse struct {
	Count   int            `json:"count"`
	Entries []historyEntry `json:"entries"`
}

func History(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := d.Ledger.History(r.Context())
		if err != nil {
			fail(d, w, "history query failed", err)
			return
		}

		out := make([]historyEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, toHistoryEntry(e))
		}
		writeJSON(w, historyResponse{Count: len(out), Entries: out})
	}
}

func toHistoryEntry(e domain.Entry) historyEntry {
	return historyEntry{
		TargetID:     e.TargetID,
		URL:          e.URL,
		DisplayName:  e.DisplayName,
		JobTitle:     e.JobTitle,
		Company:      e.Company,
		SentAt:       e.SentAt.Format(time.RFC3339),
		Status:       string(e.Status),
		ErrorMessage: e.ErrorMessage,
	}
}
