package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
)

// isMySQLDuplicateEntry checks if the error is a MySQL duplicate entry error.
func isMySQLDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// MySQLAccountRepository implements account persistence for MySQL.
type MySQLAccountRepository struct {
	db *sql.DB
}

// NewMySQLAccountRepository creates a new MySQL account repository.
func NewMySQLAccountRepository(db *sql.DB) *MySQLAccountRepository {
	return &MySQLAccountRepository{db: db}
}

// Create inserts a new account. Account names are unique.
func (r *MySQLAccountRepository) Create(ctx context.Context, account *identityDomain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO accounts (id, name, secret, principal_kind, principal_id, is_active, failed_attempts, locked_until, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		account.ID.String(),
		account.Name,
		account.Secret,
		string(account.Principal.Kind),
		account.Principal.ID,
		account.IsActive,
		account.FailedAttempts,
		account.LockedUntil,
		account.CreatedAt,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "account name already exists")
		}
		return apperrors.Wrap(err, "failed to create account")
	}
	return nil
}

// GetByName returns the account with the given name.
func (r *MySQLAccountRepository) GetByName(ctx context.Context, name string) (*identityDomain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := accountColumns + ` FROM accounts WHERE name = ?`

	return scanAccount(querier.QueryRowContext(ctx, query, name).Scan)
}

// GetByID returns the account with the given id.
func (r *MySQLAccountRepository) GetByID(ctx context.Context, id string) (*identityDomain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := accountColumns + ` FROM accounts WHERE id = ?`

	return scanAccount(querier.QueryRowContext(ctx, query, id).Scan)
}

// UpdateLockState persists the failed-attempt counter and lockout window.
func (r *MySQLAccountRepository) UpdateLockState(ctx context.Context, account *identityDomain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE accounts SET failed_attempts = ?, locked_until = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, account.FailedAttempts, account.LockedUntil, account.ID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update account lock state")
	}
	return nil
}
