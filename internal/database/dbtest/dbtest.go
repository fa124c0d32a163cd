// Package dbtest provides throwaway in-memory databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"employee-directory/internal/config"
	"employee-directory/internal/database"
	"employee-directory/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// DSN returns a fresh shared-cache in-memory sqlite DSN with foreign keys on.
func DSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
}

// New opens and migrates an isolated database that lives until the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DriverSQLite, DSN(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
