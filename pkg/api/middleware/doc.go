// Package middleware provides the HTTP middleware for the governance API.
//
// The server assembles them outermost first:
//
//	Recovery → RequestID → Logging → Metrics → CORS → MaxBody → auth → mux
//
// Recovery catches panics anywhere below it. RequestID runs before Logging
// so every log line carries the request id, and Metrics wraps the auth layer
// so rejected requests are counted too. Handlers call SetRoute with the
// matched mux pattern, which Logging and Metrics use as a low-cardinality
// route label.
package middleware
