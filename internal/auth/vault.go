package auth

import (
	"context"
	"sync"
	"time"

	"classaccess/internal/backend"
)

// Vault keeps backend credentials server-side under an opaque reference.
type Vault interface {
	Put(ctx context.Context, ref string, cred backend.Credential, ttl time.Duration) error
	Get(ctx context.Context, ref string) (backend.Credential, bool, error)
	Delete(ctx context.Context, ref string) error
}

type vaultEntry struct {
	cred    backend.Credential
	expires time.Time
}

// MemoryVault is a process-local vault. Sessions do not survive a restart.
type MemoryVault struct {
	mu      sync.Mutex
	entries map[string]vaultEntry
	now     func() time.Time
}

// NewMemoryVault creates an empty in-process vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{entries: make(map[string]vaultEntry), now: time.Now}
}

func (v *MemoryVault) Put(_ context.Context, ref string, cred backend.Credential, ttl time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	for k, e := range v.entries {
		if now.After(e.expires) {
			delete(v.entries, k)
		}
	}
	v.entries[ref] = vaultEntry{cred: cred, expires: now.Add(ttl)}
	return nil
}

func (v *MemoryVault) Get(_ context.Context, ref string) (backend.Credential, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[ref]
	if !ok {
		return backend.Credential{}, false, nil
	}
	if v.now().After(e.expires) {
		delete(v.entries, ref)
		return backend.Credential{}, false, nil
	}
	return e.cred, true, nil
}

func (v *MemoryVault) Delete(_ context.Context, ref string) error {
	v.mu.Lock()
	delete(v.entries, ref)
	v.mu.Unlock()
	return nil
}

// JSONStore is the subset of cache.Redis the shared vault needs.
type JSONStore interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// StoreVault keeps credentials in a shared store so every dashboard replica
// can resolve a session.
type StoreVault struct {
	store  JSONStore
	prefix string
}

// NewStoreVault wraps store, namespacing keys under classaccess:cred:.
func NewStoreVault(store JSONStore) *StoreVault {
	return &StoreVault{store: store, prefix: "classaccess:cred:"}
}

func (v *StoreVault) Put(ctx context.Context, ref string, cred backend.Credential, ttl time.Duration) error {
	return v.store.Set(ctx, v.prefix+ref, cred, ttl)
}

func (v *StoreVault) Get(ctx context.Context, ref string) (backend.Credential, bool, error) {
	var cred backend.Credential
	ok, err := v.store.Get(ctx, v.prefix+ref, &cred)
	return cred, ok, err
}

func (v *StoreVault) Delete(ctx context.Context, ref string) error {
	return v.store.Delete(ctx, v.prefix+ref)
}
