// Package did resolves DIDs to verification keys.
//
// The verifier must obtain issuer and holder keys independently of the
// presented document; accepting a key that travels with the presentation
// would let anyone mint credentials. Resolution goes through the agent
// directory (or a static key set for tooling and tests), never through
// material supplied by the peer being verified.
package did

import (
	"context"
	"crypto/ed25519"
	"sync"

	registryservice "warrant/internal/registry/service"
	"warrant/internal/rbac/sign"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

// Resolver resolves a DID to the Ed25519 key its documents are verified with.
type Resolver interface {
	ResolveKey(ctx context.Context, did id.DID) (ed25519.PublicKey, error)
}

// RegistryResolver resolves DIDs against the agent directory.
type RegistryResolver struct {
	registry *registryservice.Service
}

// NewRegistryResolver creates a resolver backed by the agent directory.
func NewRegistryResolver(registry *registryservice.Service) *RegistryResolver {
	return &RegistryResolver{registry: registry}
}

// ResolveKey looks up the agent card for the DID and decodes its public key.
func (r *RegistryResolver) ResolveKey(ctx context.Context, did id.DID) (ed25519.PublicKey, error) {
	card, err := r.registry.ResolveByDID(ctx, did)
	if err != nil {
		return nil, err
	}
	key, err := sign.DecodePublicKey(card.PublicKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registered key for "+did.String()+" is invalid")
	}
	return key, nil
}

// StaticResolver resolves DIDs from a fixed key set. Used by the CLI and in
// tests where no directory is running.
type StaticResolver struct {
	mu   sync.RWMutex
	keys map[id.DID]ed25519.PublicKey
}

// NewStaticResolver creates a resolver over a fixed DID -> key map.
func NewStaticResolver(keys map[id.DID]ed25519.PublicKey) *StaticResolver {
	copied := make(map[id.DID]ed25519.PublicKey, len(keys))
	for d, k := range keys {
		copied[d] = k
	}
	return &StaticResolver{keys: copied}
}

// Add registers a key for a DID.
func (r *StaticResolver) Add(did id.DID, key ed25519.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[did] = key
}

// ResolveKey returns the key for the DID or a not-found error.
func (r *StaticResolver) ResolveKey(_ context.Context, did id.DID) (ed25519.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key, ok := r.keys[did]; ok {
		return key, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "could not resolve DID: "+did.String())
}
