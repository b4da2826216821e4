package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"warrant/internal/platform/middleware"
	rbacservice "warrant/internal/rbac/service"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

type authContextKey struct{}

// GetAuthContext retrieves the authorization outcome from the request context.
func GetAuthContext(ctx context.Context) *rbacservice.AuthContext {
	if authCtx, ok := ctx.Value(authContextKey{}).(*rbacservice.AuthContext); ok {
		return authCtx
	}
	return nil
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// RequireAuth performs base token authentication and stores the caller's
// identity in the request context. No role is verified.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", middleware.GetRequestID(ctx), "path", r.URL.Path)
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			agentID, claims, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", middleware.GetRequestID(ctx), "error", err)
				writeError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token"))
				return
			}
			ctx = context.WithValue(ctx, authContextKey{}, &rbacservice.AuthContext{
				AgentID: agentID,
				Claims:  claims,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole runs the full authorization flow for the given role before
// letting the request through. The verified AuthContext is stored in the
// request context for the handler.
func RequireRole(auth RoleAuthenticator, role id.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", middleware.GetRequestID(ctx), "path", r.URL.Path)
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			authCtx, err := auth.AuthenticateWithRole(ctx, token, role)
			if err != nil {
				logger.WarnContext(ctx, "role authorization denied",
					"request_id", middleware.GetRequestID(ctx),
					"role", role.String(),
					"error", err)
				writeError(w, err)
				return
			}
			ctx = context.WithValue(ctx, authContextKey{}, authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
