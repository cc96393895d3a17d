package domain

import "time"

// Status is the terminal outcome class recorded for a target.
type Status string

const (
	// StatusSuccess means the request was sent (verified or optimistically
	// accepted).
	StatusSuccess Status = "success"

	// StatusAlreadyConnected means an existing or pending relationship was
	// detected before any action was invoked.
	StatusAlreadyConnected Status = "already_connected"

	// StatusFailed means the attempt terminated without sending a request.
	StatusFailed Status = "failed"
)

// Entry is one immutable historical ledger record.
//
// At most one Entry ever exists per TargetID; once written it is never
// updated or overwritten. A second write attempt for the same TargetID is
// a silent no-op at the store layer.
type Entry struct {
	TargetID    string
	URL         string
	DisplayName string
	JobTitle    string
	Company     string
	SentAt      time.Time
	Status      Status
	// ErrorMessage is set only when Status is StatusFailed.
	ErrorMessage string
}
