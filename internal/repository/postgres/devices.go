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

var deviceColumns = []string{
	"id",
	"account_id",
	"fingerprint",
	"name",
	"user_agent",
	"ip",
	"created_at",
	"last_used_at",
	"expires_at",
	"revoked",
}

// DeviceRepository implements port.DeviceRepository using PostgreSQL.
type DeviceRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDeviceRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewDeviceRepository(exec pgExecutor) *DeviceRepository {
	return &DeviceRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *DeviceRepository) WithTx(tx pgx.Tx) *DeviceRepository {
	if tx == nil {
		return r
	}
	return &DeviceRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Upsert inserts the device or refreshes the existing grant for the same
// (account, fingerprint) pair. Re-trusting an already trusted browser
// extends its expiry instead of creating a duplicate row.
func (r *DeviceRepository) Upsert(ctx context.Context, device *domain.TrustedDevice) error {
	var ipValue any
	if device.IP != nil && *device.IP != "" {
		ipValue = *device.IP
	}

	stmt, args, err := r.builder.
		Insert("compass.trusted_devices").
		Columns(deviceColumns...).
		Values(
			device.ID,
			device.AccountID,
			device.Fingerprint,
			device.Name,
			device.UserAgent,
			ipValue,
			device.CreatedAt,
			device.LastUsedAt,
			device.ExpiresAt,
			device.Revoked,
		).
		Suffix(`ON CONFLICT (account_id, fingerprint) DO UPDATE SET
			name = EXCLUDED.name,
			user_agent = EXCLUDED.user_agent,
			ip = EXCLUDED.ip,
			last_used_at = EXCLUDED.last_used_at,
			expires_at = EXCLUDED.expires_at,
			revoked = FALSE`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert device sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}

	return nil
}

// GetByFingerprint retrieves the grant for the given account and fingerprint.
func (r *DeviceRepository) GetByFingerprint(ctx context.Context, accountID, fingerprint string) (*domain.TrustedDevice, error) {
	stmt, args, err := r.builder.
		Select(deviceColumns...).
		From("compass.trusted_devices").
		Where(squirrel.Eq{"account_id": accountID, "fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select device sql: %w", err)
	}

	return scanDevice(r.exec.QueryRow(ctx, stmt, args...))
}

func scanDevice(row pgx.Row) (*domain.TrustedDevice, error) {
	var (
		ip     sql.NullString
		device domain.TrustedDevice
	)

	if err := row.Scan(
		&device.ID,
		&device.AccountID,
		&device.Fingerprint,
		&device.Name,
		&device.UserAgent,
		&ip,
		&device.CreatedAt,
		&device.LastUsedAt,
		&device.ExpiresAt,
		&device.Revoked,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan device: %w", err)
	}

	if ip.Valid {
		val := ip.String
		device.IP = &val
	}

	return &device, nil
}

// Touch updates the device's last-used time.
func (r *DeviceRepository) Touch(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.
		Update("compass.trusted_devices").
		Set("last_used_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch device sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *DeviceRepository) activeWhere(accountID string, now time.Time) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"account_id": accountID},
		squirrel.Eq{"revoked": false},
		squirrel.Gt{"expires_at": now},
	}
}

// ListActive returns the account's unexpired, unrevoked grants ordered by
// most recent use.
func (r *DeviceRepository) ListActive(ctx context.Context, accountID string, now time.Time) ([]domain.TrustedDevice, error) {
	stmt, args, err := r.builder.
		Select(deviceColumns...).
		From("compass.trusted_devices").
		Where(r.activeWhere(accountID, now)).
		OrderBy("last_used_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list devices sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []domain.TrustedDevice
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}

	return devices, nil
}

// CountActive returns the number of live grants for the account.
func (r *DeviceRepository) CountActive(ctx context.Context, accountID string, now time.Time) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("compass.trusted_devices").
		Where(r.activeWhere(accountID, now)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count devices sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}

	return count, nil
}

// OldestActive returns the least recently used live grant.
func (r *DeviceRepository) OldestActive(ctx context.Context, accountID string, now time.Time) (*domain.TrustedDevice, error) {
	stmt, args, err := r.builder.
		Select(deviceColumns...).
		From("compass.trusted_devices").
		Where(r.activeWhere(accountID, now)).
		OrderBy("last_used_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build oldest device sql: %w", err)
	}

	return scanDevice(r.exec.QueryRow(ctx, stmt, args...))
}

// Revoke marks a single grant as revoked.
func (r *DeviceRepository) Revoke(ctx context.Context, accountID, deviceID string) error {
	stmt, args, err := r.builder.
		Update("compass.trusted_devices").
		Set("revoked", true).
		Where(squirrel.Eq{"account_id": accountID, "id": deviceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke device sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeAll marks every grant for the account as revoked.
func (r *DeviceRepository) RevokeAll(ctx context.Context, accountID string) error {
	stmt, args, err := r.builder.
		Update("compass.trusted_devices").
		Set("revoked", true).
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke all devices sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("revoke all devices: %w", err)
	}

	return nil
}

// DeleteExpired purges grants whose expiry has passed.
func (r *DeviceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	stmt, args, err := r.builder.
		Delete("compass.trusted_devices").
		Where(squirrel.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired devices sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired devices: %w", err)
	}

	return tag.RowsAffected(), nil
}

var _ port.DeviceRepository = (*DeviceRepository)(nil)
