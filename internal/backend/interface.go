package backend

import (
	"context"

	"dompet/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the row store and optional cleanup function
type BackendResult struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Factory creates row stores based on configuration
type Factory interface {
	// CreateBackend opens the store selected by config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Persistent reports whether data survives a restart.
func (bt BackendType) Persistent() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}
