// Package auth authenticates API callers.
//
// Each configured API key maps to a user id. The middleware reads the key
// from the configured sources (by default "Authorization: Bearer <key>",
// then "X-API-Key"), and stores the user id in the request context where
// handlers read it with UserID. With authentication disabled the user id is
// taken from the X-User-ID header as-is, which suits local development and
// trusted sidecars only.
//
//	mw := auth.NewMiddleware(cfg.Security.Authentication, nil, logger)
//	handler = mw.Handle(handler)
package auth
