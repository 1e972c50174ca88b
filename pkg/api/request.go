package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/overseer/pkg/api/middleware"
	"mercator-hq/overseer/pkg/governance"
	"mercator-hq/overseer/pkg/security/auth"
)

// callerID returns the authenticated user id of the request.
func callerID(r *http.Request) (string, bool) {
	return auth.UserID(r.Context())
}

// decodeJSON decodes the request body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		middleware.WriteError(w, r, http.StatusRequestEntityTooLarge, middleware.CodeTooLarge, "request body too large")
		return
	}
	middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidRequest, "invalid request body: "+err.Error())
}

// writeServiceError maps governance errors onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *governance.ValidationError
	switch {
	case errors.Is(err, governance.ErrNotFound):
		middleware.WriteError(w, r, http.StatusNotFound, middleware.CodeNotFound, err.Error())
	case errors.As(err, &vErr):
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidRequest, err.Error())
	case errors.Is(err, governance.ErrConflict):
		middleware.WriteError(w, r, http.StatusConflict, middleware.CodeConflict, err.Error())
	default:
		a.logger.ErrorContext(r.Context(), "request failed", "route", r.Pattern, "error", err)
		middleware.WriteError(w, r, http.StatusInternalServerError, middleware.CodeInternal, "an internal error occurred")
	}
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidRequest, msg)
}

// queryTime parses an RFC 3339 time or a YYYY-MM-DD date parameter. A
// missing parameter yields the zero time.
func queryTime(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s must be an RFC 3339 time or YYYY-MM-DD date", name)
}

// queryInt parses a non-negative integer parameter; missing yields 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
