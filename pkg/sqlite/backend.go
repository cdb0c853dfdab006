// Package sqlite provides the public API for the SQLite board store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import "github.com/mesh-intelligence/pinboard/internal/sqlite"

// Backend is the SQLite board store. It implements types.Store,
// types.BatchUpdater and types.BoardStore.
type Backend = sqlite.Backend

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pinboard",
//	})
//	defer backend.Detach()
func NewBackend() *Backend {
	return sqlite.NewBackend()
}
