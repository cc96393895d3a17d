package handlers

import (
	"net/http"
	"time"

	"github.com/jmallet/outreach/internal/httpserver/deps"
	"github.com/jmallet/outreach/internal/safety"
)

type quotaResponse struct {
	safety.QuotaStatus
	CanSend      bool   `json:"can_send"`
	NextEligible string `json:"next_eligible"`
}

func Quota(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := d.Quota.QuotaStatus(r.Context())
		if err != nil {
			fail(d, w, "quota status query failed", err)
			return
		}

		next, err := d.Quota.NextEligibleAt(r.Context())
		if err != nil {
			fail(d, w, "next eligible query failed", err)
			return
		}

		writeJSON(w, quotaResponse{
			QuotaStatus:  status,
			CanSend:      status.CanSend(),
			NextEligible: next.Format(time.RFC3339),
		})
	}
}
