package bootstrap

import (
	"context"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSuperuser_Disabled(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, EnsureSuperuser(context.Background(), &config.Config{}, db))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEnsureSuperuser_RequiresPassword(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	err := EnsureSuperuser(context.Background(), &config.Config{SuperuserEmail: "root@example.com"}, db)
	assert.Error(t, err)
}

func TestEnsureSuperuser_CreatesThenPromotes(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	cfg := &config.Config{SuperuserEmail: "Root@Example.com", SuperuserPassword: "Quiet-Harbor-1987"}

	require.NoError(t, EnsureSuperuser(ctx, cfg, db))
	require.NoError(t, EnsureSuperuser(ctx, cfg, db))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "root@example.com", users[0].Email)
	assert.True(t, users[0].IsSuperuser)
	assert.True(t, users[0].IsStaff)
	assert.True(t, users[0].IsVerified)

	// An existing account is promoted rather than duplicated.
	existing, _ := testutil.CreateUser(t, db, "editor@example.com", testutil.UserOpts{})
	cfg.SuperuserEmail = existing.Email
	require.NoError(t, EnsureSuperuser(ctx, cfg, db))
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, existing.ID).Error)
	assert.True(t, reloaded.IsSuperuser)
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), &config.Config{}, "inkwell-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
