package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/cli"
	"mercator-hq/overseer/pkg/config"
	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/server"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a config that keeps every file under a temp dir.
func writeConfig(t *testing.T, extra string) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	content := fmt.Sprintf(`
server:
  listen_address: "127.0.0.1:0"
audit:
  backend: sqlite
  sqlite:
    path: %q
security:
  authentication:
    keys:
      - key: ovs_live_secret
        user_id: owner@example.com
%s`, filepath.Join(dir, "audit.db"), extra)
	path = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func TestVersionCommand(t *testing.T) {
	orig := Version
	Version = "9.9.9-test"
	defer func() { Version = orig }()

	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	for _, want := range []string{"Overseer 9.9.9-test", "Git Commit:", "Go Version:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path, _ := writeConfig(t, "")
		stdout, _, err := execute(t, "config", "validate", "--config", path)
		if err != nil {
			t.Fatalf("validate error = %v", err)
		}
		if !strings.Contains(stdout, "Configuration valid") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		path, _ := writeConfig(t, "governance:\n  token_limit: -5\n")
		_, stderr, err := execute(t, "config", "validate", "--config", path)
		if err == nil {
			t.Fatal("validate error = nil, want error")
		}
		if code := cli.ExitCode(err); code != cli.ExitConfig {
			t.Errorf("ExitCode = %d, want %d", code, cli.ExitConfig)
		}
		if !strings.Contains(stderr, "governance.token_limit") {
			t.Errorf("stderr does not name the field:\n%s", stderr)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "config", "validate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		if code := cli.ExitCode(err); code != cli.ExitConfig {
			t.Errorf("ExitCode = %d, want %d", code, cli.ExitConfig)
		}
	})
}

func TestConfigShow_MasksKeys(t *testing.T) {
	path, _ := writeConfig(t, "")
	stdout, _, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if strings.Contains(stdout, "ovs_live_secret") {
		t.Error("config show leaked an API key")
	}
	if !strings.Contains(stdout, "ovs_***") {
		t.Errorf("masked key missing:\n%s", stdout)
	}
	if !strings.Contains(stdout, "127.0.0.1:0") {
		t.Errorf("listen address missing:\n%s", stdout)
	}
}

func TestRunDryRun(t *testing.T) {
	path, _ := writeConfig(t, "")
	stdout, _, err := execute(t, "run", "--dry-run", "--config", path, "--log-level", "warn")
	if err != nil {
		t.Fatalf("run --dry-run error = %v", err)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Errorf("stdout = %q", stdout)
	}

	_, _, err = execute(t, "run", "--dry-run", "--config", path, "--log-level", "loud")
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("bad log level ExitCode = %d, want %d", code, cli.ExitConfig)
	}
}

func TestGuardrailList(t *testing.T) {
	source := filepath.Join(t.TempDir(), "guardrails.yaml")
	if err := os.WriteFile(source, []byte(`
guardrails:
  - id: no-friday-deploys
    name: No Friday deploys
    condition: deploy requests
    category: action
    severity: block
`), 0o644); err != nil {
		t.Fatal(err)
	}
	path, _ := writeConfig(t, fmt.Sprintf("guardrails:\n  source_path: %q\n", source))

	stdout, _, err := execute(t, "guardrail", "list", "--config", path, "--format", "json")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	var items []guardrail.Guardrail
	if err := json.Unmarshal([]byte(stdout), &items); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if want := len(guardrail.Builtins()) + 1; len(items) != want {
		t.Errorf("got %d guardrails, want %d", len(items), want)
	}

	stdout, _, err = execute(t, "guardrail", "list", "--config", path, "--category", "action", "--format", "csv")
	if err != nil {
		t.Fatalf("list --category error = %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	for _, row := range rows[1:] {
		if row[2] != "action" {
			t.Errorf("row %v has category %q", row, row[2])
		}
	}

	_, _, err = execute(t, "guardrail", "list", "--config", path, "--category", "weather")
	if code := cli.ExitCode(err); code != cli.ExitUsage {
		t.Errorf("unknown category ExitCode = %d, want %d", code, cli.ExitUsage)
	}
}

func TestGuardrailCompile(t *testing.T) {
	stdout, _, err := execute(t, "guardrail", "compile", "something", "entirely", "unmatched", "--category", "scope")
	if err != nil {
		t.Fatalf("compile error = %v", err)
	}
	if !strings.HasPrefix(stdout, "strategy: fallback:scope\n") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stdout, `"scope.level"`) {
		t.Errorf("predicate missing scope field:\n%s", stdout)
	}

	_, _, err = execute(t, "guardrail", "compile")
	if err == nil {
		t.Error("compile without a condition should fail")
	}
}

func seedAudit(t *testing.T, path string) {
	t.Helper()
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	st, err := server.OpenAuditStorage(cfg.Audit)
	if err != nil {
		t.Fatalf("OpenAuditStorage() error = %v", err)
	}
	defer st.Close()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []*audit.Record{
		{ID: "r1", EventType: audit.EventDecisionLogged, Actor: "analyst@example.com", SubjectID: "d1", DecisionID: "d1", Status: "escalated", RiskScore: 65},
		{ID: "r2", EventType: audit.EventInterventionCreated, Actor: "system", SubjectID: "i1", DecisionID: "d1", RiskScore: 65},
		{ID: "r3", EventType: audit.EventGuardrailCreated, Actor: "owner@example.com", SubjectID: "g1"},
	}
	for i, r := range records {
		r.Timestamp = base.Add(time.Duration(i) * time.Minute)
		r.RecordedAt = r.Timestamp
		if err := st.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
}

func TestAuditQuery(t *testing.T) {
	path, _ := writeConfig(t, "")
	seedAudit(t, path)

	stdout, _, err := execute(t, "audit", "query", "--config", path, "--decision", "d1", "--order", "asc", "--format", "json")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	var got []audit.Record
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r2" {
		t.Errorf("got %+v", got)
	}

	stdout, _, err = execute(t, "audit", "query", "--config", path, "--event-type", "guardrail.created")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if !strings.Contains(stdout, "owner@example.com") || strings.Contains(stdout, "analyst@example.com") {
		t.Errorf("text output:\n%s", stdout)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"bad event type", []string{"--event-type", "nope"}},
		{"bad time", []string{"--start", "yesterday"}},
		{"inverted risk", []string{"--min-risk", "80", "--max-risk", "10"}},
		{"bad format", []string{"--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"audit", "query", "--config", path}, tt.args...)
			_, _, err := execute(t, args...)
			if code := cli.ExitCode(err); code != cli.ExitUsage {
				t.Errorf("ExitCode = %d, want %d (err %v)", code, cli.ExitUsage, err)
			}
		})
	}
}

func TestAuditExport(t *testing.T) {
	path, dir := writeConfig(t, "")
	seedAudit(t, path)
	out := filepath.Join(dir, "audit.csv")

	_, stderr, err := execute(t, "audit", "export", "--config", path, "--format", "csv", "--output", out, "--min-risk", "50")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(stderr, "Exported to") {
		t.Errorf("stderr = %q", stderr)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("got %d rows, want header + 2", len(rows))
	}

	_, _, err = execute(t, "audit", "export", "--config", path, "--format", "xml")
	if code := cli.ExitCode(err); code != cli.ExitUsage {
		t.Errorf("bad format ExitCode = %d, want %d", code, cli.ExitUsage)
	}
}

func TestAuditRejectsMemoryBackend(t *testing.T) {
	path, _ := writeConfig(t, "")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data = bytes.Replace(data, []byte("backend: sqlite"), []byte("backend: memory"), 1)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err = execute(t, "audit", "query", "--config", path)
	if code := cli.ExitCode(err); code != cli.ExitUsage {
		t.Errorf("ExitCode = %d, want %d", code, cli.ExitUsage)
	}
}
