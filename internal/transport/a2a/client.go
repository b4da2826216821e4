// Package a2a implements the HTTP transport for agent-to-agent credential
// exchange: the outbound client the orchestrator uses to request
// presentations, and the responder that serves them from the local store.
package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"warrant/contracts/a2a"
	registrymodels "warrant/internal/registry/models"
	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

// CredentialPath is the endpoint agents serve credential requests on.
const CredentialPath = "/a2a/credentials"

const maxResponseBytes = 1 << 20

// Directory resolves agent IDs to their registered cards.
type Directory interface {
	Resolve(ctx context.Context, agentID id.AgentID) (registrymodels.AgentCard, error)
}

// ClientOption configures the client.
type ClientOption func(*Client)

// Client requests credentials from remote agents over HTTP. Outbound calls
// are rate limited so a storm of cache misses cannot flood a peer.
type Client struct {
	directory Directory
	httpc     *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewClient constructs a credential request client.
func NewClient(directory Directory, opts ...ClientOption) *Client {
	c := &Client{
		directory: directory,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(50), 100),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) { c.httpc = httpc }
}

// WithRateLimit overrides the outbound request rate limit.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithLogger configures a logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// RequestCredential sends a credential request to the target agent and
// decodes its response. The context deadline bounds the whole round trip.
func (c *Client) RequestCredential(ctx context.Context, target id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
	card, err := c.directory.Resolve(ctx, target)
	if err != nil {
		return models.RoleCredentialResponse{}, dErrors.Wrap(err, dErrors.CodeNotFound, "target agent is not registered")
	}
	if card.ServiceURL == "" {
		return models.RoleCredentialResponse{}, dErrors.New(dErrors.CodeConfiguration, "target agent has no service URL")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.RoleCredentialResponse{}, c.classify(err, "rate limit wait interrupted")
	}

	body, err := json.Marshal(a2a.CredentialRequest{
		RequiredRole: request.RequiredRole.String(),
		Context:      request.Context,
		Nonce:        request.Nonce,
	})
	if err != nil {
		return models.RoleCredentialResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not encode credential request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, card.ServiceURL+CredentialPath, bytes.NewReader(body))
	if err != nil {
		return models.RoleCredentialResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not build credential request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return models.RoleCredentialResponse{}, c.classify(err, "credential request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "credential request rejected",
			"target", target.String(), "status", resp.StatusCode)
		return models.RoleCredentialResponse{}, dErrors.New(dErrors.CodeProtocolViolation,
			fmt.Sprintf("credential endpoint returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.RoleCredentialResponse{}, c.classify(err, "could not read credential response")
	}

	var wire a2a.CredentialResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return models.RoleCredentialResponse{}, dErrors.New(dErrors.CodeProtocolViolation, "credential response is not valid JSON")
	}
	if err := wire.Validate(); err != nil {
		return models.RoleCredentialResponse{}, dErrors.Wrap(err, dErrors.CodeProtocolViolation, "credential response is malformed")
	}

	decoded := models.RoleCredentialResponse{Nonce: wire.Nonce, Error: wire.Error}
	if len(wire.Presentation) > 0 {
		presentation := new(models.VerifiablePresentation)
		if err := json.Unmarshal(wire.Presentation, presentation); err != nil {
			return models.RoleCredentialResponse{}, dErrors.New(dErrors.CodeProtocolViolation, "presentation payload is malformed")
		}
		decoded.Presentation = presentation
	}
	return decoded, nil
}

// classify maps context expiry to the timeout code so the orchestrator can
// distinguish a slow peer from a broken one.
func (c *Client) classify(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeForbidden, msg)
}
