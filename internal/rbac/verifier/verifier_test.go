package verifier

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warrant/internal/did"
	"warrant/internal/rbac/models"
	"warrant/internal/rbac/sign"
	id "warrant/pkg/domain"
)

const (
	issuerDID = id.DID("did:example:issuer")
	holderDID = id.DID("did:example:holder")
)

var verifyTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	verifier  *Verifier
	issuerKey ed25519.PrivateKey
	holderKey ed25519.PrivateKey
	resolver  *did.StaticResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuerPub, issuerPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	holderPub, holderPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resolver := did.NewStaticResolver(map[id.DID]ed25519.PublicKey{
		issuerDID: issuerPub,
		holderDID: holderPub,
	})
	v := New(resolver,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return verifyTime }),
	)
	return &fixture{verifier: v, issuerKey: issuerPriv, holderKey: holderPriv, resolver: resolver}
}

func (f *fixture) credential(t *testing.T, roles []string, expires *time.Time) models.RoleCredential {
	t.Helper()
	cred := models.RoleCredential{
		ID:             "https://issuer.example/credentials/1",
		Type:           []string{models.TypeVerifiableCredential, models.TypeRoleCredential},
		Issuer:         issuerDID,
		IssuanceDate:   verifyTime.Add(-24 * time.Hour),
		ExpirationDate: expires,
		CredentialSubject: models.CredentialSubject{
			ID:    holderDID,
			Roles: roles,
		},
	}
	require.NoError(t, sign.SignCredential(&cred, f.issuerKey, string(issuerDID)+"#key-1", verifyTime.Add(-24*time.Hour)))
	return cred
}

func (f *fixture) presentation(t *testing.T, challenge string, creds ...models.RoleCredential) *models.VerifiablePresentation {
	t.Helper()
	p := &models.VerifiablePresentation{
		Context:              []string{"https://www.w3.org/2018/credentials/v1"},
		Type:                 []string{"VerifiablePresentation"},
		Holder:               holderDID,
		VerifiableCredential: creds,
	}
	require.NoError(t, sign.SignPresentation(p, f.holderKey, string(holderDID)+"#key-1", challenge, verifyTime))
	return p
}

func TestVerifyValidPresentation(t *testing.T) {
	f := newFixture(t)
	expires := verifyTime.Add(time.Hour)
	cred := f.credential(t, []string{"admin"}, &expires)
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")

	require.True(t, result.Valid, result.ErrorMessage)
	assert.Equal(t, id.Role("admin"), result.Role)
	assert.Equal(t, issuerDID, result.IssuerDID)
	require.NotNil(t, result.ExpiresAt)
	assert.Equal(t, expires, *result.ExpiresAt)
	assert.NotEmpty(t, result.CredentialHash)
	assert.Empty(t, result.ErrorMessage)
}

func TestVerifyEmptyPresentation(t *testing.T) {
	f := newFixture(t)

	result := f.verifier.VerifyPresentation(context.Background(), f.presentation(t, "chal-1"), "admin", "chal-1")
	assert.False(t, result.Valid)

	result = f.verifier.VerifyPresentation(context.Background(), nil, "admin", "chal-1")
	assert.False(t, result.Valid)
}

func TestVerifyNoRoleCredential(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"admin"}, nil)
	cred.Type = []string{models.TypeVerifiableCredential}
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "RoleCredential")
}

func TestVerifyRoleNotGranted(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"manager"}, nil)
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "admin", "denial names the missing role")
}

func TestVerifyExpiredCredential(t *testing.T) {
	f := newFixture(t)
	expired := verifyTime.Add(-time.Minute)
	cred := f.credential(t, []string{"admin"}, &expired)
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "expired")
}

func TestVerifyExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	atNow := verifyTime
	cred := f.credential(t, []string{"admin"}, &atNow)
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid, "expiry exactly at now is expired")
}

func TestVerifyMissingCredentialProof(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"admin"}, nil)
	cred.Proof = nil
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "proof")
}

func TestVerifyForgedCredentialSignature(t *testing.T) {
	f := newFixture(t)
	_, wrongKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cred := models.RoleCredential{
		ID:           "https://issuer.example/credentials/1",
		Type:         []string{models.TypeVerifiableCredential, models.TypeRoleCredential},
		Issuer:       issuerDID,
		IssuanceDate: verifyTime.Add(-24 * time.Hour),
		CredentialSubject: models.CredentialSubject{
			ID:    holderDID,
			Roles: []string{"admin"},
		},
	}
	require.NoError(t, sign.SignCredential(&cred, wrongKey, string(issuerDID)+"#key-1", verifyTime))
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "signature")
}

func TestVerifyTamperedSubject(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"manager"}, nil)
	cred.CredentialSubject.Roles = []string{"manager", "admin"}
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid, "role escalation after signing must fail")
}

func TestVerifyUnknownIssuer(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"admin"}, nil)
	cred.Issuer = "did:example:stranger"
	p := f.presentation(t, "chal-1", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "did:example:stranger")
}

func TestVerifyChallengeMismatch(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"admin"}, nil)
	p := f.presentation(t, "chal-other", cred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "challenge")
}

func TestVerifyUnboundProofRejected(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"admin"}, nil)
	p := f.presentation(t, "", cred)

	// Even a caller that expects no particular challenge must not accept a
	// proof that binds to none; such a presentation is replayable.
	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "")
	assert.False(t, result.Valid)
	assert.Contains(t, result.ErrorMessage, "challenge")
}

func TestVerifyMissingPresentationProof(t *testing.T) {
	f := newFixture(t)
	cred := f.credential(t, []string{"admin"}, nil)
	p := f.presentation(t, "chal-1", cred)
	p.Proof = nil

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
}

func TestVerifyForgedPresentationSignature(t *testing.T) {
	f := newFixture(t)
	_, wrongKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cred := f.credential(t, []string{"admin"}, nil)
	p := &models.VerifiablePresentation{
		Type:                 []string{"VerifiablePresentation"},
		Holder:               holderDID,
		VerifiableCredential: []models.RoleCredential{cred},
	}
	require.NoError(t, sign.SignPresentation(p, wrongKey, string(holderDID)+"#key-1", "chal-1", verifyTime))

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.False(t, result.Valid)
}

func TestVerifySkipsNonRoleCredentials(t *testing.T) {
	f := newFixture(t)
	other := f.credential(t, []string{"admin"}, nil)
	other.Type = []string{models.TypeVerifiableCredential}
	roleCred := f.credential(t, []string{"admin"}, nil)
	p := f.presentation(t, "chal-1", other, roleCred)

	result := f.verifier.VerifyPresentation(context.Background(), p, "admin", "chal-1")
	assert.True(t, result.Valid, result.ErrorMessage)
}
