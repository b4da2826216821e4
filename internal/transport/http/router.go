// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns stay
// isolated.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warrant/internal/audit"
	"warrant/internal/platform/middleware"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
	httpErrors "warrant/pkg/http-errors"
)

// Handler bundles the services the routes delegate to. Mutations of the
// credential store and the agent directory are recorded on the audit trail.
type Handler struct {
	auth        RoleAuthenticator
	verifier    TokenVerifier
	tokens      TokenIssuer
	registry    RegistryService
	credentials CredentialAdmin
	cache       CacheAdmin
	audit       AuditReader
	auditTrail  *audit.Publisher
	logger      *slog.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(auth RoleAuthenticator, verifier TokenVerifier, tokens TokenIssuer, registry RegistryService, credentials CredentialAdmin, cache CacheAdmin, auditLog AuditReader, auditTrail *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		auth:        auth,
		verifier:    verifier,
		tokens:      tokens,
		registry:    registry,
		credentials: credentials,
		cache:       cache,
		audit:       auditLog,
		auditTrail:  auditTrail,
		logger:      logger,
	}
}

func (h *Handler) emit(ctx context.Context, eventType audit.EventType, agentID id.AgentID, role id.Role, detail string) {
	if h.auditTrail != nil {
		h.auditTrail.Emit(ctx, eventType, agentID, role, detail)
	}
}

// NewRouter wires all endpoints with the shared middleware stack. The
// credential exchange endpoint is mounted separately because peers
// authenticate with presentations, not bearer tokens.
func NewRouter(h *Handler, credentialExchange http.HandlerFunc, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientInfo)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Agent-to-agent credential exchange
	r.Post("/a2a/credentials", credentialExchange)

	// Base authentication
	r.Post("/auth/token", h.handleTokenIssue)

	// Agent directory
	r.Route("/registry/agents", func(r chi.Router) {
		r.Post("/", h.handleAgentRegister)
		r.Get("/", h.handleAgentList)
		r.Get("/{agentID}", h.handleAgentResolve)
		r.Delete("/{agentID}", h.handleAgentDeregister)
	})

	// Credential administration, guarded by the agent's own bearer token
	r.Route("/credentials", func(r chi.Router) {
		r.Use(RequireAuth(h.verifier, logger))
		r.Post("/", h.handleCredentialAdd)
		r.Get("/", h.handleCredentialRoles)
		r.Get("/{role}", h.handleCredentialGet)
		r.Delete("/{role}", h.handleCredentialRemove)
	})

	// Operations that require a verified admin role
	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireRole(h.auth, "admin", logger))
		r.Get("/audit", h.handleAuditList)
		r.Delete("/cache/{agentID}/{role}", h.handleCacheInvalidate)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError translates a domain error into the JSON error envelope. The
// response carries the code and a safe description; the diagnostic detail
// stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             string(code),
		"error_description": httpErrors.SafeMessage(code),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
