// Package tx declares the transaction contract used by the domain layer.
// The implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a function inside a database transaction.
// If fn returns an error the transaction is rolled back, otherwise committed.
// Nested calls reuse the transaction already in ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only snapshots.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only REPEATABLE READ transaction, so every
	// query inside fn observes the same snapshot.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error

	// Savepoint runs fn under a savepoint of the transaction in ctx. When fn
	// fails only the work since the savepoint is rolled back and the outer
	// transaction stays usable. Without a transaction in ctx fn runs directly.
	Savepoint(ctx context.Context, fn func(ctx context.Context) error) error
}
