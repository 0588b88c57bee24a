package gatekit

import (
	"context"
	"fmt"

	"github.com/fernandezvara/dbkit"
)

// txContextKey carries the transaction handle bound by Transaction and
// friends. The handle travels through the context instead of a field on the
// service, so concurrent calls each see their own transaction and checks
// from many callers need no coordination.
type txContextKey struct{}

func withTxContext(ctx context.Context, tx dbkit.IDB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// conn returns the database handle for this call: the transaction bound to
// ctx when running inside Transaction/ReadOnlyTransaction, otherwise the
// service's root handle. Every query in the service goes through conn.
func (s *Service) conn(ctx context.Context) dbkit.IDB {
	if tx, ok := ctx.Value(txContextKey{}).(dbkit.IDB); ok {
		return tx
	}
	return s.db
}

// Transaction executes a function within a database transaction with automatic commit/rollback.
// If the function returns an error, the transaction is rolled back. Otherwise, it's committed.
// Service calls inside fn must use the ctx passed to fn; that is how they
// reach the transaction.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context) error {
//	    if _, err := service.AssignRole(ctx, editorInput); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    if _, err := service.AssignRole(ctx, viewerInput); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    return nil // This will cause a commit
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Check if this call is already in a transaction
	if tx, ok := s.conn(ctx).(*dbkit.Tx); ok {
		// Nested call, use savepoint
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(withTxContext(ctx, tx))
		})
	}

	// Not in a transaction, start a new one
	if db, ok := s.conn(ctx).(*dbkit.DBKit); ok {
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(withTxContext(ctx, tx))
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// TransactionWithOptions executes a function within a database transaction with custom options.
// Supports read-only transactions, isolation levels, and other transaction parameters.
//
// Example:
//
//	err := service.TransactionWithOptions(ctx, dbkit.SerializableTxOptions(), func(ctx context.Context) error {
//	    // High isolation level operations
//	    _, err := service.AssignRole(ctx, input)
//	    return err
//	})
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error {
	// Check if this call is already in a transaction
	if tx, ok := s.conn(ctx).(*dbkit.Tx); ok {
		// Nested call, use savepoint (no options support in nested transactions)
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(withTxContext(ctx, tx))
		})
	}

	// Not in a transaction, start a new one
	if db, ok := s.conn(ctx).(*dbkit.DBKit); ok {
		return db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(withTxContext(ctx, tx))
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// ReadOnlyTransaction executes a function within a read-only database transaction.
// Every decision function runs inside one so the snapshot load observes a
// single consistent state.
//
// Example:
//
//	err := service.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
//	    snap, err := service.LoadSnapshot(ctx, tenantID)
//	    if err != nil {
//	        return err
//	    }
//	    result = snap.CheckPermission(principalID, entityID, "read", tenantID)
//	    return nil
//	})
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}
