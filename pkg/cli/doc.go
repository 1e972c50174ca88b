/*
Package cli provides the error types, exit codes, output formatters and
signal handling shared by the overseer commands.

Output Formatting:

Commands build a Table and render it in the format chosen by --format:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	table := &cli.Table{Headers: []string{"id", "severity"}, Items: guardrails}
	for _, g := range guardrails {
		table.Rows = append(table.Rows, []string{g.ID, string(g.Severity)})
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Exit Codes:

	cli.ExitCode(err) // 0 ok, 1 failure, 2 configuration, 64 usage

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
