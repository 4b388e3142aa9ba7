package project

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func expectMigrationLock(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(migrationLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS collaboration").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
}

func expectMigrationUnlock(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(migrationLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func TestMigrationFilesEmbedded(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_create_raw_projects.sql", names[0])
}

func TestMigrate_FreshDB(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	names, err := migrationNames()
	require.NoError(t, err)

	expectMigrationLock(mock)
	mock.ExpectQuery("SELECT filename FROM collaboration.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	for _, name := range names {
		mock.ExpectExec(".*").WillReturnResult(pgxmock.NewResult("EXEC", 0))
		mock.ExpectExec("INSERT INTO collaboration.schema_migrations").
			WithArgs(name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	expectMigrationUnlock(mock)

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_AlreadyApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	names, err := migrationNames()
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"filename"})
	for _, name := range names {
		rows.AddRow(name)
	}

	expectMigrationLock(mock)
	mock.ExpectQuery("SELECT filename FROM collaboration.schema_migrations").WillReturnRows(rows)
	expectMigrationUnlock(mock)

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_ApplyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMigrationLock(mock)
	mock.ExpectQuery("SELECT filename FROM collaboration.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	mock.ExpectExec(".*").WillReturnError(fmt.Errorf("permission denied"))
	expectMigrationUnlock(mock)

	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migration 001_create_raw_projects.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_LockError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(migrationLockKey).
		WillReturnError(fmt.Errorf("connection refused"))

	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire migration lock")
}
