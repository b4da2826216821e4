package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	dErrors "warrant/pkg/domain-errors"
)

// Hash computes the canonical content hash of the credential: SHA-256 over a
// deterministic JSON serialization. The credential is round-tripped through a
// generic map so encoding/json emits object keys in sorted order, making the
// digest stable across re-serialization and key-order permutation. The hash
// is the cache de-duplication key and integrity anchor for verification
// receipts.
func (c RoleCredential) Hash() (string, error) {
	return canonicalHash(c)
}

func canonicalHash(v any) (string, error) {
	canonical, err := CanonicalMarshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalMarshal serializes v to deterministic JSON. The value is
// round-tripped through a generic structure so object keys come out sorted
// regardless of struct field order. Signing inputs and content hashes both
// build on this.
func CanonicalMarshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize for canonicalization")
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not canonicalize")
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not canonicalize")
	}
	return canonical, nil
}
