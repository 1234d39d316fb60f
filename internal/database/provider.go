package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	providerMu          sync.RWMutex
	postgresLedgerStore func() LedgerStore
	postgresGallery     func() GalleryWriter
	mariadbLedgerStore  func() LedgerStore
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(ledgerStore func() LedgerStore, galleryRepo func() GalleryWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresLedgerStore = ledgerStore
	postgresGallery = galleryRepo
}

// RegisterMariaDBBackend registers the MariaDB ledger constructor.
func RegisterMariaDBBackend(ledgerStore func() LedgerStore) {
	providerMu.Lock()
	defer providerMu.Unlock()
	mariadbLedgerStore = ledgerStore
}

// ResetBackends forgets all registered backends. Used by tests.
func ResetBackends() {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresLedgerStore = nil
	postgresGallery = nil
	mariadbLedgerStore = nil
}

// GetLedgerStore returns the ledger store registered for backend.
func GetLedgerStore(ctx context.Context, backend string) (LedgerStore, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()

	switch backend {
	case BackendPostgres:
		if postgresLedgerStore == nil {
			return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
		}
		return postgresLedgerStore(), nil
	case BackendMariaDB:
		if mariadbLedgerStore == nil {
			return nil, fmt.Errorf("MariaDB backend not initialized: MARIADB_DSN is required")
		}
		return mariadbLedgerStore(), nil
	default:
		return nil, fmt.Errorf("no database ledger store for backend %q", backend)
	}
}

// GetGalleryReader returns the PostgreSQL gallery repository for matching.
func GetGalleryReader(ctx context.Context) (GalleryReader, error) {
	return GetGalleryWriter(ctx)
}

// GetGalleryWriter returns the PostgreSQL gallery repository.
func GetGalleryWriter(ctx context.Context) (GalleryWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if postgresGallery == nil {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	return postgresGallery(), nil
}
