package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
)

// BackupCodeRepository implements port.BackupCodeRepository using PostgreSQL.
// Only code hashes are stored; plaintext codes exist solely in the response
// that delivered them to the account holder.
type BackupCodeRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBackupCodeRepository constructs a repository backed by any pool that
// satisfies pgPool. Replace opens its own transaction on the pool.
func NewBackupCodeRepository(pool pgPool) *BackupCodeRepository {
	return &BackupCodeRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *BackupCodeRepository) WithTx(tx pgx.Tx) *BackupCodeRepository {
	if tx == nil {
		return r
	}
	return &BackupCodeRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Replace swaps the account's batch for the given hashes in one transaction
// so a failure cannot leave the account with a partial batch.
func (r *BackupCodeRepository) Replace(ctx context.Context, accountID string, hashes []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace backup codes: %w", err)
	}
	defer tx.Rollback(ctx)

	delStmt, delArgs, err := r.builder.
		Delete("compass.backup_codes").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete backup codes sql: %w", err)
	}

	if _, err := tx.Exec(ctx, delStmt, delArgs...); err != nil {
		return fmt.Errorf("delete backup codes: %w", err)
	}

	if len(hashes) > 0 {
		insert := r.builder.
			Insert("compass.backup_codes").
			Columns("account_id", "code_hash", "created_at")

		now := time.Now().UTC()
		for _, hash := range hashes {
			insert = insert.Values(accountID, hash, now)
		}

		insStmt, insArgs, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert backup codes sql: %w", err)
		}

		if _, err := tx.Exec(ctx, insStmt, insArgs...); err != nil {
			return fmt.Errorf("insert backup codes: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace backup codes: %w", err)
	}

	return nil
}

// Consume deletes the row matching the hash. The delete doubles as the
// consumption check: zero rows affected means the code was wrong or
// already spent, and concurrent presentations of the same code can only
// succeed once.
func (r *BackupCodeRepository) Consume(ctx context.Context, accountID, codeHash string) (bool, error) {
	stmt, args, err := r.builder.
		Delete("compass.backup_codes").
		Where(squirrel.Eq{"account_id": accountID, "code_hash": codeHash}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build consume backup code sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("consume backup code: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Count returns how many unused codes remain for the account.
func (r *BackupCodeRepository) Count(ctx context.Context, accountID string) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("compass.backup_codes").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count backup codes sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count backup codes: %w", err)
	}

	return count, nil
}

// DeleteAll removes the account's entire batch.
func (r *BackupCodeRepository) DeleteAll(ctx context.Context, accountID string) error {
	stmt, args, err := r.builder.
		Delete("compass.backup_codes").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete backup codes sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete backup codes: %w", err)
	}

	return nil
}

var _ port.BackupCodeRepository = (*BackupCodeRepository)(nil)
