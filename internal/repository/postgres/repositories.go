package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Accounts    *AccountRepository
	Devices     *DeviceRepository
	BackupCodes *BackupCodeRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts:    NewAccountRepository(pool),
		Devices:     NewDeviceRepository(pool),
		BackupCodes: NewBackupCodeRepository(pool),
	}
}
