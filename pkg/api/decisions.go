package api

import (
	"net/http"

	"mercator-hq/overseer/pkg/api/middleware"
	"mercator-hq/overseer/pkg/governance/decision"
	"mercator-hq/overseer/pkg/governance/intervention"
	"mercator-hq/overseer/pkg/governance/policy"
)

// logDecision evaluates an action. The principal is the caller: a missing
// userId defaults to it, and only owners may log on behalf of another user,
// whose own attributes are then evaluated.
func (a *API) logDecision(w http.ResponseWriter, r *http.Request, caller string) {
	var in decision.Input
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	switch {
	case in.UserID == "":
		in.UserID = caller
	case in.UserID != caller && !a.svc.Principal(r.Context(), caller).IsOwner:
		a.logger.WarnContext(r.Context(), "decision on behalf of another user denied",
			"user_id", caller,
			"requested_user_id", in.UserID,
		)
		middleware.WriteError(w, r, http.StatusForbidden, middleware.CodeForbidden, "userId must match the authenticated caller")
		return
	}
	d, err := a.svc.LogDecision(r.Context(), in)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/decisions/"+d.ID)
	middleware.WriteJSON(w, http.StatusCreated, d)
}

func (a *API) listDecisions(w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	f := decision.Filter{
		UserID: q.Get("userId"),
		Status: decision.Status(q.Get("status")),
	}
	if f.Status != "" && !f.Status.IsValid() {
		writeBadRequest(w, r, "unknown status: "+string(f.Status))
		return
	}
	var err error
	if f.From, err = queryTime(r, "from"); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	out, err := a.svc.GetDecisions(r.Context(), f)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []*decision.Decision{}
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

func (a *API) getDecision(w http.ResponseWriter, r *http.Request, _ string) {
	d, err := a.svc.GetDecision(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}

func (a *API) listInterventions(w http.ResponseWriter, r *http.Request, _ string) {
	status := intervention.Status(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		writeBadRequest(w, r, "unknown status: "+string(status))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, a.svc.ListInterventions(r.Context(), status))
}

func (a *API) getIntervention(w http.ResponseWriter, r *http.Request, _ string) {
	iv, err := a.svc.GetIntervention(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, iv)
}

// resolveRequest is the body of a resolution. The reviewer is the caller.
type resolveRequest struct {
	Type           intervention.Type `json:"type"`
	Notes          string            `json:"notes,omitempty"`
	ModifiedAction string            `json:"modifiedAction,omitempty"`
}

func (a *API) resolveIntervention(w http.ResponseWriter, r *http.Request, caller string) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	iv, err := a.svc.ResolveIntervention(r.Context(), r.PathValue("id"), intervention.Resolution{
		ResolvedBy:     caller,
		Type:           req.Type,
		Notes:          req.Notes,
		ModifiedAction: req.ModifiedAction,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, iv)
}

func (a *API) listPolicies(w http.ResponseWriter, r *http.Request, _ string) {
	middleware.WriteJSON(w, http.StatusOK, a.svc.ListPolicies())
}

func (a *API) updatePolicy(w http.ResponseWriter, r *http.Request, caller string) {
	var patch policy.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	p, err := a.svc.UpdatePolicy(r.Context(), r.PathValue("id"), patch, caller)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request, _ string) {
	st, err := a.svc.GetStats(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, st)
}
