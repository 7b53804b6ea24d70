package httpapi

import (
	"net/http"

	"github.com/IvanYanishevskyi/pandora-backend/internal/proxy"
)

type generateRequest struct {
	TenantID     string `json:"tenant_id"`
	DatabaseName string `json:"database_name"`
	Prompt       string `json:"prompt"`
	ChatID       string `json:"chat_id"`
	CoreToken    string `json:"core_token"`
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.TenantID == "" || req.DatabaseName == "" || req.Prompt == "" {
		writeError(w, r, http.StatusBadRequest, "tenant_id, database_name and prompt are required")
		return
	}
	result, err := a.dispatcher.Dispatch(r.Context(), p, proxy.Request{
		TenantID:     req.TenantID,
		DatabaseName: req.DatabaseName,
		Prompt:       req.Prompt,
		ChatID:       req.ChatID,
		CoreToken:    req.CoreToken,
	}, requestMeta(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleSQLHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "pandora-sql-proxy",
	})
}
