// Package sign implements proof generation and verification for role
// credentials and presentations using Ed25519 over canonical JSON.
//
// The signing input is always the document with its proof removed, serialized
// deterministically (sorted keys). Presentation inputs additionally cover the
// request challenge so a presentation signed for one challenge cannot be
// replayed against another.
package sign

import (
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"warrant/internal/rbac/models"
	dErrors "warrant/pkg/domain-errors"
)

// ProofTypeEd25519 identifies the signature suite used for all proofs.
const ProofTypeEd25519 = "Ed25519Signature2020"

// Proof purposes, per the verifiable credential data model.
const (
	PurposeAssertion      = "assertionMethod"
	PurposeAuthentication = "authentication"
)

// ErrBadSignature is wrapped into verification failures so callers can treat
// signature mismatches uniformly.
var ErrBadSignature = dErrors.New(dErrors.CodeForbidden, "signature verification failed")

// CredentialSigningInput returns the canonical bytes an issuer signs: the
// credential document with its proof stripped.
func CredentialSigningInput(c models.RoleCredential) ([]byte, error) {
	c.Proof = nil
	return models.CanonicalMarshal(c)
}

// PresentationSigningInput returns the canonical bytes a holder signs: the
// presentation with its proof stripped, wrapped together with the challenge.
func PresentationSigningInput(p models.VerifiablePresentation, challenge string) ([]byte, error) {
	p.Proof = nil
	return models.CanonicalMarshal(map[string]any{
		"challenge":    challenge,
		"presentation": p,
	})
}

// SignCredential attaches an issuer proof to the credential.
func SignCredential(c *models.RoleCredential, key ed25519.PrivateKey, verificationMethod string, now time.Time) error {
	input, err := CredentialSigningInput(*c)
	if err != nil {
		return err
	}
	created := now.UTC().Truncate(time.Second)
	c.Proof = &models.Proof{
		Type:               ProofTypeEd25519,
		Created:            &created,
		VerificationMethod: verificationMethod,
		ProofPurpose:       PurposeAssertion,
		ProofValue:         base64.RawURLEncoding.EncodeToString(ed25519.Sign(key, input)),
	}
	return nil
}

// SignPresentation attaches a holder proof bound to the challenge.
func SignPresentation(p *models.VerifiablePresentation, key ed25519.PrivateKey, verificationMethod, challenge string, now time.Time) error {
	input, err := PresentationSigningInput(*p, challenge)
	if err != nil {
		return err
	}
	created := now.UTC().Truncate(time.Second)
	p.Proof = &models.Proof{
		Type:               ProofTypeEd25519,
		Created:            &created,
		VerificationMethod: verificationMethod,
		ProofPurpose:       PurposeAuthentication,
		Challenge:          challenge,
		ProofValue:         base64.RawURLEncoding.EncodeToString(ed25519.Sign(key, input)),
	}
	return nil
}

// VerifyCredentialProof checks the credential's proof signature against the
// issuer's public key. The proof must be structurally complete before calling.
func VerifyCredentialProof(c models.RoleCredential, pub ed25519.PublicKey) error {
	if !c.Proof.Complete() {
		return dErrors.New(dErrors.CodeValidation, "credential proof is incomplete")
	}
	sig, err := base64.RawURLEncoding.DecodeString(c.Proof.ProofValue)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "credential proof value is not valid base64")
	}
	input, err := CredentialSigningInput(c)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, input, sig) {
		return dErrors.Wrap(ErrBadSignature, dErrors.CodeForbidden, "invalid credential signature")
	}
	return nil
}

// VerifyPresentationProof checks the presentation's proof signature against
// the holder's public key, covering the challenge recorded in the proof.
func VerifyPresentationProof(p models.VerifiablePresentation, pub ed25519.PublicKey) error {
	if !p.Proof.Complete() {
		return dErrors.New(dErrors.CodeValidation, "presentation proof is incomplete")
	}
	sig, err := base64.RawURLEncoding.DecodeString(p.Proof.ProofValue)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "presentation proof value is not valid base64")
	}
	input, err := PresentationSigningInput(p, p.Proof.Challenge)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, input, sig) {
		return dErrors.Wrap(ErrBadSignature, dErrors.CodeForbidden, "invalid presentation signature")
	}
	return nil
}

// EncodePublicKey renders an Ed25519 public key in the base64 form stored in
// the agent registry.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(pub)
}

// DecodePublicKey parses a registry-stored public key.
func DecodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is not valid base64")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key has wrong length")
	}
	return ed25519.PublicKey(raw), nil
}
