package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mercator-hq/overseer/pkg/api/middleware"
	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/export"
	"mercator-hq/overseer/pkg/audit/query"
)

// auditQuery builds an audit query from URL parameters. defaultLimit
// applies when the request sets no limit.
func (a *API) auditQuery(r *http.Request, defaultLimit int) (*audit.Query, error) {
	v := r.URL.Query()
	q := &audit.Query{
		EventType:  audit.EventType(v.Get("event_type")),
		Actor:      v.Get("actor"),
		SubjectID:  v.Get("subject_id"),
		DecisionID: v.Get("decision_id"),
		UserID:     v.Get("user_id"),
		Status:     v.Get("status"),
		SortOrder:  v.Get("order"),
	}

	start, err := queryTime(r, "start")
	if err != nil {
		return nil, err
	}
	if !start.IsZero() {
		q.StartTime = &start
	}
	end, err := queryTime(r, "end")
	if err != nil {
		return nil, err
	}
	if !end.IsZero() {
		q.EndTime = &end
	}

	for name, dst := range map[string]**int{"min_risk": &q.MinRiskScore, "max_risk": &q.MaxRiskScore} {
		if s := v.Get(name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%s must be an integer", name)
			}
			*dst = &n
		}
	}

	if q.Limit, err = queryInt(r, "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = queryInt(r, "offset"); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > a.maxAuditLimit() {
		return nil, fmt.Errorf("limit must be <= %d", a.maxAuditLimit())
	}
	query.ApplyDefaults(q)
	if err := query.Validate(q); err != nil {
		var qErr *audit.QueryError
		if errors.As(err, &qErr) {
			return nil, qErr.Unwrap()
		}
		return nil, err
	}
	return q, nil
}

func (a *API) maxAuditLimit() int {
	if a.auditLimits.MaxLimit > 0 {
		return a.auditLimits.MaxLimit
	}
	return query.MaxLimit
}

// auditPage is the body of an audit query response.
type auditPage struct {
	Records []*audit.Record `json:"records"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func (a *API) queryAudit(w http.ResponseWriter, r *http.Request, _ string) {
	q, err := a.auditQuery(r, a.auditLimits.DefaultLimit)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	records, err := a.auditStore.Query(r.Context(), q)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	total, err := a.auditStore.Count(r.Context(), q)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}
	middleware.WriteJSON(w, http.StatusOK, auditPage{Records: records, Total: total, Limit: q.Limit, Offset: q.Offset})
}

func (a *API) exportAudit(w http.ResponseWriter, r *http.Request, _ string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exp, err := export.NewStream(format)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	q, err := a.auditQuery(r, a.maxAuditLimit())
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit."+format))
	if err := export.Stream(r.Context(), a.auditStore, q, exp, w); err != nil {
		// headers are already sent
		a.logger.ErrorContext(r.Context(), "audit export failed", "format", format, "error", err)
	}
}
