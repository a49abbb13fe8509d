package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "startingline/pkg/domain-errors"
	txcontext "startingline/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// TxManager runs units of work in Postgres transactions. The transaction is
// carried in the context; stores pick it up through their executor.
type TxManager struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTxManager(db *sql.DB, timeout time.Duration) *TxManager {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &TxManager{db: db, timeout: timeout}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(ctx, err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if ctx.Err() != nil {
			return classify(ctx, err, "transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(ctx, err, "commit transaction")
	}
	return nil
}

// RunInSavepoint wraps fn in a SAVEPOINT so a failed statement does not poison
// the enclosing transaction.
func (m *TxManager) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return m.RunInTx(ctx, fn)
	}
	name := "sp_" + uuid.NewString()[:8]
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// classify turns driver errors at transaction boundaries into domain errors.
// A commit that outlives the deadline is never treated as success.
func classify(ctx context.Context, err error, op string) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrTxDone) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" not acknowledged")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
}
