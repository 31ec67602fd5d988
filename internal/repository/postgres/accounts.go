package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/repository"
)

var accountColumns = []string{
	"id",
	"email",
	"first_name",
	"last_name",
	"phone",
	"organization",
	"password_hash",
	"password_algo",
	"status",
	"email_verified",
	"twofa_enabled",
	"twofa_secret",
	"device_salt",
	"profile_completed",
	"registered_at",
	"last_login",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	var phoneValue any
	if account.Phone != nil && *account.Phone != "" {
		phoneValue = *account.Phone
	}

	query := r.builder.Insert("compass.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			account.FirstName,
			account.LastName,
			phoneValue,
			account.Organization,
			account.PasswordHash,
			account.PasswordAlgo,
			account.Status,
			account.EmailVerified,
			account.TwoFAEnabled,
			account.TwoFASecret,
			account.DeviceSalt,
			account.ProfileCompleted,
			account.RegisteredAt,
			account.LastLogin,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("compass.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves an account by its email address.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("compass.accounts").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		phone     sql.NullString
		lastLogin *time.Time
		account   domain.Account
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&phone,
		&account.Organization,
		&account.PasswordHash,
		&account.PasswordAlgo,
		&account.Status,
		&account.EmailVerified,
		&account.TwoFAEnabled,
		&account.TwoFASecret,
		&account.DeviceSalt,
		&account.ProfileCompleted,
		&account.RegisteredAt,
		&lastLogin,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.LastLogin = lastLogin
	if phone.Valid {
		val := phone.String
		account.Phone = &val
	}

	return &account, nil
}

// UpdateLastLogin stamps the most recent successful login time.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.
		Update("compass.accounts").
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash, passwordAlgo string) error {
	stmt, args, err := r.builder.
		Update("compass.accounts").
		Set("password_hash", passwordHash).
		Set("password_algo", passwordAlgo).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetTwoFA toggles the second-factor flag and replaces the shared secret.
func (r *AccountRepository) SetTwoFA(ctx context.Context, id string, enabled bool, secret string) error {
	stmt, args, err := r.builder.
		Update("compass.accounts").
		Set("twofa_enabled", enabled).
		Set("twofa_secret", secret).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update twofa sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update twofa: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetDeviceSalt writes the fingerprint salt only when none is stored yet,
// so concurrent first grants settle on a single value.
func (r *AccountRepository) SetDeviceSalt(ctx context.Context, id, salt string) error {
	stmt, args, err := r.builder.
		Update("compass.accounts").
		Set("device_salt", salt).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"device_salt": ""}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update device salt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update device salt: %w", err)
	}

	return nil
}

// SetProfileCompleted records whether the account finished profile setup.
func (r *AccountRepository) SetProfileCompleted(ctx context.Context, id string, completed bool) error {
	stmt, args, err := r.builder.
		Update("compass.accounts").
		Set("profile_completed", completed).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile completed sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update profile completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
