package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx(t *testing.T) {
	t.Run("CommitOnSuccess", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE permissions").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		manager := NewTxManager(db)
		err = manager.WithTx(context.Background(), func(ctx context.Context) error {
			querier := GetTx(ctx, db)
			_, execErr := querier.ExecContext(ctx, "UPDATE permissions SET permissions = $1", `["READ"]`)
			return execErr
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("ace mutation failed")
		manager := NewTxManager(db)
		err = manager.WithTx(context.Background(), func(ctx context.Context) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFailurePropagates", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		manager := NewTxManager(db)
		err = manager.WithTx(context.Background(), func(ctx context.Context) error {
			t.Fatal("fn should not run when begin fails")
			return nil
		})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetTx(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("ReturnsDBWithoutTransaction", func(t *testing.T) {
		querier := GetTx(context.Background(), db)
		assert.Equal(t, Querier(db), querier)
	})
}

func TestIsSupportedDriver(t *testing.T) {
	assert.True(t, IsSupportedDriver(DriverPostgres))
	assert.True(t, IsSupportedDriver(DriverMySQL))
	assert.False(t, IsSupportedDriver("cassandra"))
}
