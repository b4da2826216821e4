package sign

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warrant/internal/rbac/models"
)

func newKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func newCredential() models.RoleCredential {
	return models.RoleCredential{
		ID:           "https://issuer.example/credentials/42",
		Type:         []string{models.TypeVerifiableCredential, models.TypeRoleCredential},
		Issuer:       "did:example:issuer",
		IssuanceDate: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		CredentialSubject: models.CredentialSubject{
			ID:   "did:example:holder",
			Role: "admin",
		},
	}
}

func TestCredentialSignVerifyRoundTrip(t *testing.T) {
	pub, priv := newKeyPair(t)
	cred := newCredential()

	require.NoError(t, SignCredential(&cred, priv, "did:example:issuer#key-1", time.Now()))
	require.NotNil(t, cred.Proof)
	assert.Equal(t, ProofTypeEd25519, cred.Proof.Type)
	assert.Equal(t, PurposeAssertion, cred.Proof.ProofPurpose)

	assert.NoError(t, VerifyCredentialProof(cred, pub))
}

func TestCredentialVerifyRejectsWrongKey(t *testing.T) {
	_, priv := newKeyPair(t)
	otherPub, _ := newKeyPair(t)
	cred := newCredential()
	require.NoError(t, SignCredential(&cred, priv, "did:example:issuer#key-1", time.Now()))

	assert.Error(t, VerifyCredentialProof(cred, otherPub))
}

func TestCredentialVerifyRejectsTamperedContent(t *testing.T) {
	pub, priv := newKeyPair(t)
	cred := newCredential()
	require.NoError(t, SignCredential(&cred, priv, "did:example:issuer#key-1", time.Now()))

	cred.CredentialSubject.Role = "superadmin"
	assert.Error(t, VerifyCredentialProof(cred, pub))
}

func TestPresentationChallengeBinding(t *testing.T) {
	pub, priv := newKeyPair(t)
	_, issuerPriv := newKeyPair(t)

	cred := newCredential()
	require.NoError(t, SignCredential(&cred, issuerPriv, "did:example:issuer#key-1", time.Now()))

	pres := models.VerifiablePresentation{
		Type:                 []string{"VerifiablePresentation"},
		Holder:               "did:example:holder",
		VerifiableCredential: []models.RoleCredential{cred},
	}
	require.NoError(t, SignPresentation(&pres, priv, "did:example:holder#key-1", "chal-1", time.Now()))
	assert.Equal(t, "chal-1", pres.Proof.Challenge)
	assert.NoError(t, VerifyPresentationProof(pres, pub))

	// Rewriting the challenge after signing must invalidate the proof.
	pres.Proof.Challenge = "chal-2"
	assert.Error(t, VerifyPresentationProof(pres, pub))
}

func TestPublicKeyEncodeDecode(t *testing.T) {
	pub, _ := newKeyPair(t)

	encoded := EncodePublicKey(pub)
	decoded, err := DecodePublicKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, pub, decoded)

	_, err = DecodePublicKey("not base64 !!!")
	assert.Error(t, err)

	_, err = DecodePublicKey("c2hvcnQ")
	assert.Error(t, err)
}
