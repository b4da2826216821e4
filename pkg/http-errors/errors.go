package httpErrors

import (
	"net/http"

	dErrors "warrant/pkg/domain-errors"
)

// ToHTTPStatus maps a domain error code onto an HTTP status so handlers stay
// free of case-by-case translation. Denials map to 403, base authentication
// failures to 401, upstream credential-request timeouts to 504 so callers can
// tell a retriable condition from a definitive refusal.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeProtocolViolation:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// SafeMessage returns the externally visible description for a code. Internal
// diagnostic text must never cross the trust boundary, so responses carry the
// code plus this generic description while the detail goes to logs and audit.
func SafeMessage(code dErrors.Code) string {
	switch code {
	case dErrors.CodeUnauthorized:
		return "Authentication required"
	case dErrors.CodeForbidden:
		return "Access denied"
	case dErrors.CodeProtocolViolation:
		return "Access denied"
	case dErrors.CodeTimeout:
		return "Upstream verification timed out"
	case dErrors.CodeNotFound:
		return "Not found"
	default:
		return "Request could not be processed"
	}
}
