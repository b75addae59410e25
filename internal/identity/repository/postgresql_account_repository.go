// Package repository implements service account and token persistence for
// both PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"strings"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
)

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique
// constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// PostgreSQLAccountRepository implements account persistence for PostgreSQL.
type PostgreSQLAccountRepository struct {
	db *sql.DB
}

// NewPostgreSQLAccountRepository creates a new PostgreSQL account repository.
func NewPostgreSQLAccountRepository(db *sql.DB) *PostgreSQLAccountRepository {
	return &PostgreSQLAccountRepository{db: db}
}

// Create inserts a new account. Account names are unique.
func (r *PostgreSQLAccountRepository) Create(ctx context.Context, account *identityDomain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO accounts (id, name, secret, principal_kind, principal_id, is_active, failed_attempts, locked_until, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(ctx, query,
		account.ID,
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
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "account name already exists")
		}
		return apperrors.Wrap(err, "failed to create account")
	}
	return nil
}

// GetByName returns the account with the given name.
func (r *PostgreSQLAccountRepository) GetByName(ctx context.Context, name string) (*identityDomain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := accountColumns + ` FROM accounts WHERE name = $1`

	return scanAccount(querier.QueryRowContext(ctx, query, name).Scan)
}

// GetByID returns the account with the given id.
func (r *PostgreSQLAccountRepository) GetByID(ctx context.Context, id string) (*identityDomain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccount(querier.QueryRowContext(ctx, query, id).Scan)
}

// UpdateLockState persists the failed-attempt counter and lockout window.
func (r *PostgreSQLAccountRepository) UpdateLockState(ctx context.Context, account *identityDomain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE accounts SET failed_attempts = $1, locked_until = $2 WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, account.FailedAttempts, account.LockedUntil, account.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update account lock state")
	}
	return nil
}

const accountColumns = `SELECT id, name, secret, principal_kind, principal_id, is_active, failed_attempts, locked_until, created_at`

// scanAccount maps a single row onto an account, shared by both drivers.
func scanAccount(scan func(dest ...any) error) (*identityDomain.Account, error) {
	var account identityDomain.Account
	var principalKind string
	err := scan(
		&account.ID,
		&account.Name,
		&account.Secret,
		&principalKind,
		&account.Principal.ID,
		&account.IsActive,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan account")
	}
	account.Principal.Kind = authzDomain.PrincipalKind(principalKind)

	return &account, nil
}
