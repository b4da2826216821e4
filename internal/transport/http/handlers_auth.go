package httptransport

import (
	"encoding/json"
	"net/http"

	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

type tokenRequest struct {
	AgentID string `json:"agent_id"`
	Secret  string `json:"secret"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// handleTokenIssue exchanges an agent's registration secret for a bearer
// token. This is the base authentication layer; roles come later.
func (h *Handler) handleTokenIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "request body is not valid JSON"))
		return
	}
	agentID, err := id.ParseAgentID(req.AgentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.registry.Authenticate(ctx, agentID, req.Secret); err != nil {
		h.logger.WarnContext(ctx, "token issue refused",
			"agent_id", req.AgentID, "error", err)
		// Always 401 here; a 404 would reveal which agent IDs exist.
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication failed"))
		return
	}
	token, err := h.tokens.GenerateToken(ctx, agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer"})
}
