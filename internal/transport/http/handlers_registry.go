package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warrant/internal/audit"
	registrymodels "warrant/internal/registry/models"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

type registerRequest struct {
	AgentID     string            `json:"agent_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ServiceURL  string            `json:"service_url,omitempty"`
	DID         string            `json:"did"`
	PublicKey   string            `json:"public_key"`
	Skills      []string          `json:"skills,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Secret      string            `json:"secret,omitempty"`
}

func (h *Handler) handleAgentRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "request body is not valid JSON"))
		return
	}
	card := registrymodels.AgentCard{
		AgentID:     id.AgentID(req.AgentID),
		Name:        req.Name,
		Description: req.Description,
		ServiceURL:  req.ServiceURL,
		DID:         id.DID(req.DID),
		PublicKey:   req.PublicKey,
		Skills:      req.Skills,
		Metadata:    req.Metadata,
	}
	if err := h.registry.Register(ctx, card, req.Secret); err != nil {
		writeError(w, err)
		return
	}
	h.emit(ctx, audit.EventAgentRegistered, card.AgentID, "", card.DID.String())
	writeJSON(w, http.StatusCreated, map[string]string{"agent_id": req.AgentID})
}

func (h *Handler) handleAgentList(w http.ResponseWriter, r *http.Request) {
	cards, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": cards})
}

func (h *Handler) handleAgentResolve(w http.ResponseWriter, r *http.Request) {
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	card, err := h.registry.Resolve(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) handleAgentDeregister(w http.ResponseWriter, r *http.Request) {
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	secret := r.Header.Get("X-Registration-Secret")
	if err := h.registry.Deregister(r.Context(), agentID, secret); err != nil {
		writeError(w, err)
		return
	}
	h.emit(r.Context(), audit.EventAgentDeregistered, agentID, "", "")
	w.WriteHeader(http.StatusNoContent)
}
