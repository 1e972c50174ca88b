// Package export writes audit records as JSON or CSV.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/overseer/pkg/audit"
)

// New returns the exporter for format ("json" or "csv").
func New(format string) (audit.Exporter, error) {
	switch format {
	case "json", "":
		return NewJSONExporter(true), nil
	case "csv":
		return NewCSVExporter(true), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// JSONExporter exports records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records as a JSON array. An empty slice produces "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if records == nil {
		records = []*audit.Record{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as a JSON array until the
// channel closes.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return audit.NewExportError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if _, err := io.WriteString(w, "]"); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
				return nil
			}

			if !first {
				sep := ","
				if e.Pretty {
					sep = ",\n"
				}
				if _, err := io.WriteString(w, sep); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
			}
			first = false

			var data []byte
			var err error
			if e.Pretty {
				data, err = json.MarshalIndent(record, "  ", "  ")
			} else {
				data, err = json.Marshal(record)
			}
			if err != nil {
				return audit.NewExportError("json", recordCount, err)
			}
			if _, err := w.Write(data); err != nil {
				return audit.NewExportError("json", recordCount, err)
			}
			recordCount++
		}
	}
}
