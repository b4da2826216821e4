package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warrant/internal/audit"
	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

// handleCredentialAdd imports a credential document into the local store.
func (h *Handler) handleCredentialAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var credential models.RoleCredential
	if err := json.NewDecoder(r.Body).Decode(&credential); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "request body is not valid JSON"))
		return
	}
	if err := h.credentials.AddCredential(ctx, credential); err != nil {
		writeError(w, err)
		return
	}
	caller := callerID(ctx)
	for _, role := range credential.CredentialSubject.RoleSet() {
		h.emit(ctx, audit.EventCredentialAdded, caller, role, credential.ID)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"credential_id": credential.ID,
		"roles":         credential.CredentialSubject.RoleSet(),
	})
}

// callerID returns the authenticated agent behind the request, if any.
func callerID(ctx context.Context) id.AgentID {
	if authCtx := GetAuthContext(ctx); authCtx != nil {
		return authCtx.AgentID
	}
	return ""
}

func (h *Handler) handleCredentialRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"roles": h.credentials.Roles(r.Context())})
}

func (h *Handler) handleCredentialGet(w http.ResponseWriter, r *http.Request) {
	role, err := id.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, err)
		return
	}
	credential := h.credentials.GetCredential(r.Context(), role)
	if credential == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "no credential for role"))
		return
	}
	writeJSON(w, http.StatusOK, credential)
}

func (h *Handler) handleCredentialRemove(w http.ResponseWriter, r *http.Request) {
	role, err := id.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, err)
		return
	}
	removed, err := h.credentials.RemoveCredential(r.Context(), role)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "no credential for role"))
		return
	}
	h.emit(r.Context(), audit.EventCredentialRemoved, callerID(r.Context()), role, "")
	w.WriteHeader(http.StatusNoContent)
}

// handleAuditList returns the recorded audit trail, newest last.
func (h *Handler) handleAuditList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.audit.List()})
}

// handleCacheInvalidate drops a verification receipt, forcing the next
// authorization attempt for the key to re-verify.
func (h *Handler) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	role, err := id.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, err)
		return
	}
	dropped, err := h.cache.Invalidate(r.Context(), agentID, role)
	if err != nil {
		writeError(w, err)
		return
	}
	if !dropped {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "no cached entry for key"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
