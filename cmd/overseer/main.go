// Overseer is an AI action governance server.
//
// It evaluates proposed AI actions against guardrails, records every decision,
// routes risky actions to human reviewers and keeps an append-only audit trail.
//
// Usage:
//
//	# Start the server with defaults and OVERSEER_* environment overrides
//	overseer run
//
//	# Start with a configuration file
//	overseer run --config /etc/overseer/config.yaml
//
//	# Show the guardrails the server would start with
//	overseer guardrail list --format json
//
//	# See how a natural-language condition compiles
//	overseer guardrail compile "block production deploys" --category action
//
//	# Query and export the audit trail
//	overseer audit query --event-type decision.logged --limit 20
//	overseer audit export --format csv --output audit.csv
//
//	# Check a configuration file
//	overseer config validate --config config.yaml
package main

import "os"

func main() {
	os.Exit(Execute(os.Args[1:]))
}
