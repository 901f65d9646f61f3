// Package store persists the user's profile and settings as JSON records in
// the local key-value database.
package store

import (
	"context"
	"sync"
)

// Fixed keys of the persisted records
const (
	ProfileKey  = "userProfile"
	SettingsKey = "appSettings"
)

// KV is the persistent key-value capability the stores need.
// *database.DB satisfies it.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is a process-local KV, used by tests and the built-in sample run
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty in-memory KV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// ValidationError carries a message meant to be shown to the user as-is
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
