// Package verifier checks verifiable presentations against a required role.
//
// Verification is ordered and fail-fast; the first failing check determines
// the error. All proof checks perform real Ed25519 signature verification
// against keys resolved through the DID resolver, never against key material
// carried inside the presented document itself.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"warrant/internal/did"
	"warrant/internal/rbac/models"
	"warrant/internal/rbac/sign"
	id "warrant/pkg/domain"
)

// Option configures the verifier.
type Option func(*Verifier)

// Verifier validates presentations. Expected validation failures come back as
// invalid results with a reason; only the construction of the verifier itself
// can fail.
type Verifier struct {
	resolver did.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a verifier resolving issuer and holder keys through the
// given resolver.
func New(resolver did.Resolver, opts ...Option) *Verifier {
	v := &Verifier{
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// WithLogger configures a logger for the verifier.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// VerifyPresentation checks that the presentation proves possession of the
// required role and is bound to the given challenge. It never returns an
// error or panics; every failure path, including unexpected ones, produces an
// invalid result with a human-readable reason.
func (v *Verifier) VerifyPresentation(ctx context.Context, presentation *models.VerifiablePresentation, requiredRole id.Role, challenge string) (result models.RoleVerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.ErrorContext(ctx, "presentation verification panicked",
				"role", requiredRole.String(), "panic", r)
			result = models.Invalid(fmt.Sprintf("verification failed unexpectedly: %v", r))
		}
	}()

	if presentation == nil || len(presentation.VerifiableCredential) == 0 {
		return models.Invalid("presentation carries no credentials")
	}

	credential, ok := selectRoleCredential(presentation.VerifiableCredential)
	if !ok {
		return models.Invalid("presentation carries no RoleCredential")
	}

	if !credential.HasType(models.TypeRoleCredential) {
		return models.Invalid("credential is not a RoleCredential")
	}
	if !credential.CredentialSubject.HasRole(requiredRole) {
		return models.Invalid(fmt.Sprintf("credential does not grant role %q", requiredRole))
	}
	if credential.Expired(v.now()) {
		return models.Invalid(fmt.Sprintf("credential expired at %s",
			credential.ExpirationDate.UTC().Format(time.RFC3339)))
	}

	if !credential.Proof.Complete() {
		return models.Invalid("credential proof is missing or incomplete")
	}
	issuerKey, err := v.resolver.ResolveKey(ctx, credential.Issuer)
	if err != nil {
		v.logger.WarnContext(ctx, "issuer key resolution failed",
			"issuer", credential.Issuer.String(), "error", err)
		return models.Invalid(fmt.Sprintf("could not resolve issuer %q", credential.Issuer))
	}
	if err := sign.VerifyCredentialProof(credential, issuerKey); err != nil {
		return models.Invalid("credential signature is invalid")
	}

	if !presentation.Proof.Complete() {
		return models.Invalid("presentation proof is missing or incomplete")
	}
	// A presentation proof without a challenge is replayable and therefore a
	// format violation, regardless of what the caller expected.
	if presentation.Proof.Challenge == "" {
		return models.Invalid("presentation proof carries no challenge")
	}
	if challenge != "" && presentation.Proof.Challenge != challenge {
		return models.Invalid("presentation is not bound to the expected challenge")
	}
	holderKey, err := v.resolver.ResolveKey(ctx, presentation.Holder)
	if err != nil {
		v.logger.WarnContext(ctx, "holder key resolution failed",
			"holder", presentation.Holder.String(), "error", err)
		return models.Invalid(fmt.Sprintf("could not resolve holder %q", presentation.Holder))
	}
	if err := sign.VerifyPresentationProof(*presentation, holderKey); err != nil {
		return models.Invalid("presentation signature is invalid")
	}

	hash, err := credential.Hash()
	if err != nil {
		return models.Invalid("could not compute credential hash")
	}

	v.logger.DebugContext(ctx, "presentation verified",
		"role", requiredRole.String(),
		"issuer", credential.Issuer.String(),
		"holder", presentation.Holder.String())
	return models.RoleVerificationResult{
		Valid:          true,
		Role:           requiredRole,
		IssuerDID:      credential.Issuer,
		ExpiresAt:      credential.ExpirationDate,
		CredentialHash: hash,
	}
}

// selectRoleCredential returns the first credential typed as a RoleCredential.
func selectRoleCredential(credentials []models.RoleCredential) (models.RoleCredential, bool) {
	for _, c := range credentials {
		if c.HasType(models.TypeRoleCredential) {
			return c, true
		}
	}
	return models.RoleCredential{}, false
}
