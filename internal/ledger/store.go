package ledger

import (
	"context"
	"errors"
)

var (
	// ErrLedgerWrite is returned when a record could not be persisted.
	// The identity stays unmarked and a later attempt may succeed.
	ErrLedgerWrite = errors.New("ledger write failed")
	// ErrLedgerRead is returned when an existing ledger could not be loaded.
	ErrLedgerRead = errors.New("ledger read failed")
	// ErrDuplicate is returned by stores that enforce uniqueness themselves
	// when a record for the same identity and day already exists.
	ErrDuplicate = errors.New("attendance already recorded")
)

// Store persists day-scoped ledgers.
type Store interface {
	// Load returns the records of day in insertion order. A day without a
	// ledger yet has no records and no error.
	Load(ctx context.Context, day Day) ([]Record, error)
	// Append adds rec to the ledger of day.
	Append(ctx context.Context, day Day, rec Record) error
}

// Locator is implemented by stores that can tell where a day's ledger lives.
type Locator interface {
	Location(day Day) string
}
