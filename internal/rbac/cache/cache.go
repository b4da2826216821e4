package cache

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

// DefaultTTL bounds the trust window for entries whose credential carries no
// expiry of its own. Verification results are never trusted indefinitely.
const DefaultTTL = time.Hour

const lockStripes = 64

// Option configures the role cache.
type Option func(*RoleCache)

// RoleCache serves and records verification receipts. Reads past an entry's
// expiry are misses. Storage read failures also degrade to misses so a broken
// cache backend slows authorization down instead of blocking it.
type RoleCache struct {
	store      Store
	logger     *slog.Logger
	now        func() time.Time
	defaultTTL time.Duration

	// Striped locks serialize lookups and upserts per (agent, role) key.
	locks [lockStripes]sync.Mutex
}

// New constructs a role cache over the given store.
func New(store Store, opts ...Option) *RoleCache {
	c := &RoleCache{
		store:      store,
		now:        time.Now,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// WithLogger configures a logger for the cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *RoleCache) { c.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *RoleCache) { c.now = now }
}

// WithDefaultTTL overrides the trust window applied when a verification
// result carries no expiry.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *RoleCache) { c.defaultTTL = ttl }
}

func (c *RoleCache) lockFor(agentID id.AgentID, role id.Role) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(agentID.String()))
	h.Write([]byte{0})
	h.Write([]byte(role.String()))
	return &c.locks[h.Sum32()%lockStripes]
}

// GetCachedRole returns the usable entry for (agent, role), or nil when there
// is none. Expired entries and storage read failures both report a miss; the
// entry itself is never mutated by a lookup.
func (c *RoleCache) GetCachedRole(ctx context.Context, agentID id.AgentID, role id.Role) *models.CachedRoleEntry {
	lock := c.lockFor(agentID, role)
	lock.Lock()
	defer lock.Unlock()

	entry, err := c.store.Get(ctx, agentID, role)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		c.logger.WarnContext(ctx, "role cache read failed, treating as miss",
			"agent_id", agentID.String(), "role", role.String(), "error", err)
		return nil
	}
	if c.IsExpired(entry) {
		c.logger.DebugContext(ctx, "role cache entry expired",
			"agent_id", agentID.String(), "role", role.String(),
			"expires_at", entry.ExpiresAt)
		return nil
	}
	return &entry
}

// IsExpired reports whether the entry's trust window has closed. An entry
// expiring at t is already expired at t.
func (c *RoleCache) IsExpired(entry models.CachedRoleEntry) bool {
	return !c.now().Before(entry.ExpiresAt)
}

// CacheVerifiedRole records a verification receipt, overwriting any prior
// entry for the same (agent, role). A nil expiry is bounded by the default
// TTL rather than trusted forever.
func (c *RoleCache) CacheVerifiedRole(ctx context.Context, agentID id.AgentID, role id.Role, credentialHash string, issuerDID id.DID, expiresAt *time.Time) error {
	now := c.now()
	entry := models.CachedRoleEntry{
		AgentID:        agentID,
		Role:           role,
		CredentialHash: credentialHash,
		IssuerDID:      issuerDID,
		VerifiedAt:     now,
	}
	if expiresAt != nil {
		entry.ExpiresAt = *expiresAt
	} else {
		entry.ExpiresAt = now.Add(c.defaultTTL)
	}

	lock := c.lockFor(agentID, role)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.Put(ctx, entry); err != nil {
		c.logger.ErrorContext(ctx, "role cache write failed",
			"agent_id", agentID.String(), "role", role.String(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeStorage, "could not cache verified role")
	}
	c.logger.DebugContext(ctx, "role cached",
		"agent_id", agentID.String(), "role", role.String(),
		"expires_at", entry.ExpiresAt)
	return nil
}

// Invalidate drops the entry for (agent, role). Returns false when no entry
// was cached.
func (c *RoleCache) Invalidate(ctx context.Context, agentID id.AgentID, role id.Role) (bool, error) {
	lock := c.lockFor(agentID, role)
	lock.Lock()
	defer lock.Unlock()

	err := c.store.Delete(ctx, agentID, role)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeStorage, "could not invalidate cached role")
	}
	return true, nil
}

// PurgeExpired removes every entry whose trust window has closed and returns
// how many were removed.
func (c *RoleCache) PurgeExpired(ctx context.Context) (int, error) {
	purged, err := c.store.PurgeExpired(ctx, c.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "could not purge role cache")
	}
	if purged > 0 {
		c.logger.InfoContext(ctx, "role cache purged", "entries", purged)
	}
	return purged, nil
}
