package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type clientInfoKey struct{}

// ClientInfo annotates the context with a human-readable description of the
// calling client, derived from the User-Agent header. The audit trail records
// it on administrative mutations.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientInfoKey{}, describeClient(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientInfo retrieves the client description from the context.
func GetClientInfo(ctx context.Context) string {
	if info, ok := ctx.Value(clientInfoKey{}).(string); ok {
		return info
	}
	return ""
}

// describeClient renders "Browser on OS" for interactive clients and the raw
// product token for programmatic ones.
func describeClient(userAgentString string) string {
	if userAgentString == "" {
		return "unknown client"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	browser = strings.TrimSpace(browser)
	os = strings.TrimSpace(os)
	if browser == "" || os == "" {
		// Programmatic clients like Go-http-client/2.0 carry no OS segment.
		if fields := strings.Fields(userAgentString); len(fields) > 0 {
			return fields[0]
		}
		return "unknown client"
	}
	return browser + " on " + os
}
