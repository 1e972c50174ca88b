// Package logging builds the structured logger used across the server.
//
// New returns a plain *slog.Logger, so components take *slog.Logger and fall
// back to slog.Default() when given nil. The handler chain adds two things
// on top of log/slog:
//
//   - Redaction. With RedactPII, values under sensitive keys ("api_key",
//     "token", "password", ...) are masked and string values are scrubbed of
//     API keys, bearer tokens, emails, SSNs and card numbers.
//   - Context fields. Records logged through the *Context methods carry the
//     request_id, user_id and session_id stored with WithRequestID, WithUser
//     and WithSession.
//
// Example:
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "decision logged", "decision_id", id)
package logging
