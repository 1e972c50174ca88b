package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/overseer/pkg/audit"
)

// CSVExporter exports records as CSV. Guardrail ids are joined with ";".
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header returns the column names.
func Header() []string {
	return []string{
		"id", "event_type", "timestamp",
		"actor", "subject_id",
		"decision_id", "user_id", "session_id", "action", "status", "risk_score", "guardrails",
		"summary", "payload_hash", "recorded_at",
	}
}

// Export writes records as CSV rows.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel until it closes, flushing every
// 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return audit.NewExportError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

func recordToRow(r *audit.Record) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}

	return []string{
		r.ID,
		string(r.EventType),
		formatTime(r.Timestamp),
		r.Actor,
		r.SubjectID,
		r.DecisionID,
		r.UserID,
		r.SessionID,
		r.Action,
		r.Status,
		strconv.Itoa(r.RiskScore),
		strings.Join(r.Guardrails, ";"),
		r.Summary,
		r.PayloadHash,
		formatTime(r.RecordedAt),
	}
}
