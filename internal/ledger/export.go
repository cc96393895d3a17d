package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// csvHeader is the stable export column order.
var csvHeader = []string{
	"target_id",
	"url",
	"display_name",
	"job_title",
	"company",
	"sent_at",
	"status",
	"error_message",
}

// ExportCSV serializes the full history to w in SentAt-descending order.
// The output is deterministic for a given ledger state.
func ExportCSV(ctx context.Context, l Ledger, w io.Writer) (int, error) {
	entries, err := l.History(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read history: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.TargetID,
			e.URL,
			e.DisplayName,
			e.JobTitle,
			e.Company,
			e.SentAt.Format(time.RFC3339),
			string(e.Status),
			e.ErrorMessage,
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}

	return len(entries), nil
}
