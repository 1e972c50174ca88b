package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/export"
	"mercator-hq/overseer/pkg/audit/query"
	"mercator-hq/overseer/pkg/cli"
	"mercator-hq/overseer/pkg/server"
)

type auditFlags struct {
	eventType  string
	actor      string
	subject    string
	decisionID string
	user       string
	status     string
	start      string
	end        string
	since      time.Duration
	minRisk    int
	maxRisk    int
	limit      int
	offset     int
	order      string
	format     string
	output     string
}

func newAuditCmd(global *globalFlags) *cobra.Command {
	queryFlags := &auditFlags{}
	exportFlags := &auditFlags{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit trail",
		Long: `Query and export the audit trail of governance events.

Subcommands:
  query   - Print matching records
  export  - Stream matching records as JSON or CSV

Times are RFC3339 ("2026-01-20T10:30:00Z") or dates ("2026-01-20").`,
	}

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query audit records",
		Long: `Query audit records with filters, newest first.

Examples:
  # Last day of escalations
  overseer audit query --event-type intervention.created --since 24h

  # Everything that happened to one decision
  overseer audit query --decision 4f1c0d5e-... --order asc --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAudit(cmd, global, queryFlags)
		},
	}
	addAuditFilterFlags(queryCmd, queryFlags)
	queryCmd.Flags().IntVar(&queryFlags.limit, "limit", query.DefaultLimit, "max results")
	queryCmd.Flags().IntVar(&queryFlags.offset, "offset", 0, "pagination offset")
	queryCmd.Flags().StringVar(&queryFlags.format, "format", "text", "output format: text, json, csv")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export audit records",
		Long: `Stream audit records as JSON or CSV without loading them into memory.

Examples:
  overseer audit export --format csv --output audit.csv
  overseer audit export --since 720h --event-type decision.logged > decisions.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportAudit(cmd, global, exportFlags)
		},
	}
	addAuditFilterFlags(exportCmd, exportFlags)
	exportCmd.Flags().IntVar(&exportFlags.limit, "limit", query.MaxLimit, "max records")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "json", "export format: json, csv")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default: stdout)")

	cmd.AddCommand(queryCmd, exportCmd)
	return cmd
}

func addAuditFilterFlags(cmd *cobra.Command, flags *auditFlags) {
	cmd.Flags().StringVar(&flags.eventType, "event-type", "", "filter by event type, e.g. decision.logged")
	cmd.Flags().StringVar(&flags.actor, "actor", "", "filter by actor")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "filter by subject id")
	cmd.Flags().StringVar(&flags.decisionID, "decision", "", "filter by decision id")
	cmd.Flags().StringVar(&flags.user, "user", "", "filter by user id")
	cmd.Flags().StringVar(&flags.status, "status", "", "filter by decision status")
	cmd.Flags().StringVar(&flags.start, "start", "", "earliest timestamp")
	cmd.Flags().StringVar(&flags.end, "end", "", "latest timestamp")
	cmd.Flags().DurationVar(&flags.since, "since", 0, "only records newer than this, e.g. 24h (overrides --start)")
	cmd.Flags().IntVar(&flags.minRisk, "min-risk", -1, "minimum risk score")
	cmd.Flags().IntVar(&flags.maxRisk, "max-risk", -1, "maximum risk score")
	cmd.Flags().StringVar(&flags.order, "order", "", "sort order: asc, desc (default desc)")
}

// buildAuditQuery converts flags into a validated query.
func buildAuditQuery(flags *auditFlags, now time.Time) (*audit.Query, error) {
	q := &audit.Query{
		EventType:  audit.EventType(flags.eventType),
		Actor:      flags.actor,
		SubjectID:  flags.subject,
		DecisionID: flags.decisionID,
		UserID:     flags.user,
		Status:     flags.status,
		Limit:      flags.limit,
		Offset:     flags.offset,
		SortOrder:  flags.order,
	}

	var err error
	if q.StartTime, err = parseTimeFlag("start", flags.start); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTimeFlag("end", flags.end); err != nil {
		return nil, err
	}
	if flags.since > 0 {
		start := now.Add(-flags.since)
		q.StartTime = &start
	}
	if flags.minRisk >= 0 {
		q.MinRiskScore = &flags.minRisk
	}
	if flags.maxRisk >= 0 {
		q.MaxRiskScore = &flags.maxRisk
	}

	query.ApplyDefaults(q)
	if err := query.Validate(q); err != nil {
		var qErr *audit.QueryError
		if errors.As(err, &qErr) {
			return nil, cli.NewUsageError("%v", qErr.Unwrap())
		}
		return nil, cli.NewUsageError("%v", err)
	}
	return q, nil
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, cli.NewUsageError("--%s: %q is not an RFC3339 time or a date", name, value)
}

func openAudit(global *globalFlags) (audit.Storage, error) {
	cfg, err := loadConfig(global)
	if err != nil {
		return nil, err
	}
	if cfg.Audit.Backend == "memory" {
		return nil, cli.NewUsageError("the memory audit backend is not readable from another process; configure audit.backend: sqlite")
	}
	return server.OpenAuditStorage(cfg.Audit)
}

func queryAudit(cmd *cobra.Command, global *globalFlags, flags *auditFlags) error {
	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	q, err := buildAuditQuery(flags, time.Now())
	if err != nil {
		return err
	}

	storage, err := openAudit(global)
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	records, err := storage.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), recordTable(records))
}

func recordTable(records []*audit.Record) *cli.Table {
	table := &cli.Table{
		Headers: []string{"timestamp", "event_type", "actor", "subject_id", "status", "risk_score"},
		Items:   records,
	}
	if records == nil {
		table.Items = []*audit.Record{}
	}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			string(r.EventType),
			r.Actor,
			r.SubjectID,
			r.Status,
			strconv.Itoa(r.RiskScore),
		})
	}
	return table
}

func exportAudit(cmd *cobra.Command, global *globalFlags, flags *auditFlags) (err error) {
	exp, err := export.NewStream(flags.format)
	if err != nil {
		return cli.NewUsageError("%v", err)
	}
	q, err := buildAuditQuery(flags, time.Now())
	if err != nil {
		return err
	}

	storage, err := openAudit(global)
	if err != nil {
		return err
	}
	defer storage.Close()

	var w io.Writer = cmd.OutOrStdout()
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cli.NewCommandError("audit export", cerr)
			}
		}()
		w = f
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	if err := export.Stream(ctx, storage, q, exp, w); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if flags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported to %s\n", flags.output)
	}
	return nil
}
