package api

import (
	"net/http"

	"mercator-hq/overseer/pkg/api/middleware"
	"mercator-hq/overseer/pkg/governance/guardrail"
)

func (a *API) listGuardrails(w http.ResponseWriter, r *http.Request, _ string) {
	category := guardrail.Category(r.URL.Query().Get("category"))
	if category != "" && !category.IsValid() {
		writeBadRequest(w, r, "unknown category: "+string(category))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, a.svc.ListGuardrails(category))
}

func (a *API) getGuardrail(w http.ResponseWriter, r *http.Request, _ string) {
	g, err := a.svc.GetGuardrail(r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, g)
}

func (a *API) createGuardrail(w http.ResponseWriter, r *http.Request, caller string) {
	var def guardrail.Definition
	if err := decodeJSON(r, &def); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	g, err := a.svc.CreateGuardrail(r.Context(), def, caller)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/guardrails/"+g.ID)
	middleware.WriteJSON(w, http.StatusCreated, g)
}

func (a *API) updateGuardrail(w http.ResponseWriter, r *http.Request, caller string) {
	var patch guardrail.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	g, err := a.svc.UpdateGuardrail(r.Context(), r.PathValue("id"), patch, caller)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, g)
}

func (a *API) deleteGuardrail(w http.ResponseWriter, r *http.Request, caller string) {
	id := r.PathValue("id")
	if !a.svc.DeleteGuardrail(r.Context(), id, caller) {
		middleware.WriteError(w, r, http.StatusNotFound, middleware.CodeNotFound, "guardrail \""+id+"\" not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) guardrailCategories(w http.ResponseWriter, r *http.Request, _ string) {
	middleware.WriteJSON(w, http.StatusOK, a.svc.GuardrailCategories())
}

func (a *API) severities(w http.ResponseWriter, r *http.Request, _ string) {
	middleware.WriteJSON(w, http.StatusOK, a.svc.Severities())
}
