package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/overseer/pkg/audit"
)

// StreamExporter writes records as they arrive on a channel.
type StreamExporter interface {
	ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error
}

// NewStream returns the streaming exporter for format ("json" or "csv").
// Streamed JSON is compact.
func NewStream(format string) (StreamExporter, error) {
	switch format {
	case "json", "":
		return NewJSONExporter(false), nil
	case "csv":
		return NewCSVExporter(true), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == "csv" {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Stream writes every record matching q from storage to w without holding
// the result set in memory.
func Stream(ctx context.Context, storage audit.Storage, q *audit.Query, exp StreamExporter, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recordsCh, errCh, err := storage.QueryStream(ctx, q)
	if err != nil {
		return err
	}
	if err := exp.ExportStream(ctx, recordsCh, w); err != nil {
		return err
	}
	if err, ok := <-errCh; ok && err != nil {
		return err
	}
	return nil
}
