package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
)

// PostgreSQLTokenRepository implements token persistence for PostgreSQL.
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}

// Create inserts a new token.
func (r *PostgreSQLTokenRepository) Create(ctx context.Context, token *identityDomain.Token) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO tokens (id, token_hash, account_id, expires_at, revoked_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(ctx, query,
		token.ID,
		token.TokenHash,
		token.AccountID,
		token.ExpiresAt,
		token.RevokedAt,
		token.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// GetByTokenHash returns the token with the given hash.
func (r *PostgreSQLTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*identityDomain.Token, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, token_hash, account_id, expires_at, revoked_at, created_at
			  FROM tokens WHERE token_hash = $1`

	return scanToken(querier.QueryRowContext(ctx, query, tokenHash).Scan)
}

// Revoke marks a token as revoked. Revoking an already revoked token is a
// no-op.
func (r *PostgreSQLTokenRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE tokens SET revoked_at = $1 WHERE token_hash = $2 AND revoked_at IS NULL`

	_, err := querier.ExecContext(ctx, query, at, tokenHash)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}
	return nil
}

// DeleteExpired removes tokens whose expiry is before the cutoff. Returns the
// number of rows removed.
func (r *PostgreSQLTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM tokens WHERE expires_at < $1`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired tokens")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to check deleted rows")
	}
	return affected, nil
}

// scanToken maps a single row onto a token, shared by both drivers.
func scanToken(scan func(dest ...any) error) (*identityDomain.Token, error) {
	var token identityDomain.Token
	err := scan(
		&token.ID,
		&token.TokenHash,
		&token.AccountID,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan token")
	}
	return &token, nil
}
