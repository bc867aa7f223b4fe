package backend

import (
	"context"

	"imprimecheque/internal/storage"
)

// Store kinds understood by the factory.
const (
	MemoryBackend   Kind = "memory"
	SQLiteBackend   Kind = "sqlite"
	PostgresBackend Kind = "postgres"
)

// Kind names a storage backend for the check register.
type Kind string

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	return k == MemoryBackend || k == SQLiteBackend || k == PostgresBackend
}

// Durable reports whether issued checks survive a restart. Issuing from a
// non-durable store can hand out a reference twice across restarts.
func (k Kind) Durable() bool {
	return k != MemoryBackend
}

// Config holds what opening a store needs.
type Config struct {
	Type         Kind
	SQLiteDBPath string
	DatabaseURL  string
	SeedFile     string // Applied once the store is open
}

// BackendResult is an open store and the function that closes it.
type BackendResult struct {
	Store   storage.Store
	Cleanup func() error
}

// Factory opens the store selected by configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
