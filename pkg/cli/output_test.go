package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
)

func sampleTable() *Table {
	return &Table{
		Headers: []string{"id", "severity"},
		Rows: [][]string{
			{"builtin-pii-access", "block"},
			{"builtin-token-budget", "warn"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" csv ", FormatCSV, false},
		{"junit", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if tt.wantErr && ExitCode(err) != ExitUsage {
				t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitUsage)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, sampleTable()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	// columns are aligned, so every severity starts at the same offset
	col := strings.Index(lines[0], "severity")
	for _, line := range lines[1:] {
		if idx := strings.LastIndex(line, " ") + 1; idx != col {
			t.Errorf("line %q: second column at %d, want %d", line, idx, col)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	t.Run("rows keyed by header", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewFormatter(FormatJSON).FormatTo(&buf, sampleTable()); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		var got []map[string]string
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 2 || got[1]["severity"] != "warn" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("items take precedence", func(t *testing.T) {
		table := sampleTable()
		table.Items = []struct {
			ID string `json:"id"`
		}{{ID: "x"}}

		var buf bytes.Buffer
		if err := (&JSONFormatter{}).FormatTo(&buf, table); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		if strings.TrimSpace(buf.String()) != `[{"id":"x"}]` {
			t.Errorf("got %s", buf.String())
		}
	})

	t.Run("empty table is an empty array", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&JSONFormatter{}).FormatTo(&buf, &Table{Headers: []string{"id"}}); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("got %s", buf.String())
		}
	})
}

func TestCSVFormatter(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"needs,quoting", "log"})

	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).FormatTo(&buf, table); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[0][0] != "id" || records[3][0] != "needs,quoting" {
		t.Errorf("records = %v", records)
	}
}
