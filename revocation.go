package users

import (
	"context"
	"sync"
	"time"
)

// RevocationRegistry tracks invalidated token identifiers until their natural
// expiry. A jti present in the registry makes that exact token permanently
// unusable regardless of signature validity. Implementations must be safe for
// concurrent revoke/check from in-flight requests.
//
// The guard depends only on this interface: single-node deployments use the
// in-memory registry, multi-instance ones back it with shared storage.
type RevocationRegistry interface {
	// Revoke is an idempotent insert. expiresAt is the token's original
	// expiry; entries past it may be purged since the issuer already rejects
	// expired tokens on its own.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) error
}

// MemoryRevocations is the in-process registry. State does not survive
// restarts and does not scale across instances; see the bun-backed registry
// for shared deployments.
type MemoryRevocations struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

var _ RevocationRegistry = (*MemoryRevocations)(nil)

// NewMemoryRevocations creates an empty in-memory registry.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		entries: make(map[string]time.Time),
	}
}

// Revoke records the jti. Re-revoking keeps the original expiry.
func (m *MemoryRevocations) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[jti]; !ok {
		m.entries[jti] = expiresAt
	}

	return nil
}

// IsRevoked reports membership. Entries past their token's expiry still count
// as revoked until purged; the issuer rejects those tokens anyway.
func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[jti]
	return ok, nil
}

// PurgeExpired drops entries whose token would have expired by now.
func (m *MemoryRevocations) PurgeExpired(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for jti, expiresAt := range m.entries {
		if !expiresAt.After(now) {
			delete(m.entries, jti)
		}
	}

	return nil
}

// Len is used by tests and diagnostics.
func (m *MemoryRevocations) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
