package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
)

// MySQLTokenRepository implements token persistence for MySQL.
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQL token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}

// Create inserts a new token.
func (r *MySQLTokenRepository) Create(ctx context.Context, token *identityDomain.Token) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO tokens (id, token_hash, account_id, expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		token.ID.String(),
		token.TokenHash,
		token.AccountID.String(),
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
func (r *MySQLTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*identityDomain.Token, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, token_hash, account_id, expires_at, revoked_at, created_at
			  FROM tokens WHERE token_hash = ?`

	return scanToken(querier.QueryRowContext(ctx, query, tokenHash).Scan)
}

// Revoke marks a token as revoked. Revoking an already revoked token is a
// no-op.
func (r *MySQLTokenRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`

	_, err := querier.ExecContext(ctx, query, at, tokenHash)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}
	return nil
}

// DeleteExpired removes tokens whose expiry is before the cutoff. Returns the
// number of rows removed.
func (r *MySQLTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM tokens WHERE expires_at < ?`

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
