package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/accounts-selfhosted/src/database"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Postgres-backed tests; skipped when TEST_DATABASE_URL is unreachable.

func TestCreateUser_DuplicateEmail_Postgres(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		us := NewUserService(tdb.Pool)

		_, err := us.CreateUser(ctx, CreateUserParams{
			Email:    "dup@example.com",
			Password: "secret-password",
		})
		require.NoError(t, err)

		// Same address with different domain casing hits the unique index
		_, err = us.CreateUser(ctx, CreateUserParams{
			Email:    "dup@EXAMPLE.COM",
			Password: "secret-password",
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		us := NewUserService(tdb.Pool)

		_, err := us.GetUserByEmail(context.Background(), "missing@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestListUsers_FiltersAndOrdering(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		us := NewUserService(tdb.Pool)

		staff := true
		for _, params := range []CreateUserParams{
			{Email: "carol@example.com", Password: "secret-password"},
			{Email: "alice@example.com", Password: "secret-password", IsStaff: &staff},
			{Email: "bob@example.com", Password: "secret-password"},
		} {
			_, err := us.CreateUser(ctx, params)
			require.NoError(t, err)
		}

		// No filter: ordered by email
		users, err := us.ListUsers(ctx, repositories.UserFilter{})
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, "alice@example.com", users[0].Email)
		assert.Equal(t, "bob@example.com", users[1].Email)
		assert.Equal(t, "carol@example.com", users[2].Email)

		// Staff filter
		users, err = us.ListUsers(ctx, repositories.UserFilter{IsStaff: &staff})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice@example.com", users[0].Email)

		// Email search
		users, err = us.ListUsers(ctx, repositories.UserFilter{Search: "BOB"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "bob@example.com", users[0].Email)
	})
}

func TestSetPassword_UnknownUser(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		us := NewUserService(tdb.Pool)

		err := us.SetPassword(context.Background(), uuid.New(), "whatever-password")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestDeleteUser_Postgres(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		us := NewUserService(tdb.Pool)

		user, err := us.CreateUser(ctx, CreateUserParams{
			Email:    "gone@example.com",
			Password: "secret-password",
		})
		require.NoError(t, err)

		require.NoError(t, us.DeleteUser(ctx, user.ID))

		_, err = us.GetUserByID(ctx, user.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)

		// Second delete reports not found
		assert.ErrorIs(t, us.DeleteUser(ctx, user.ID), ErrUserNotFound)
	})
}

func TestHasUsers(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		us := NewUserService(tdb.Pool)

		has, err := us.HasUsers(ctx)
		require.NoError(t, err)
		assert.False(t, has)

		_, err = us.CreateUser(ctx, CreateUserParams{
			Email:    "first@example.com",
			Password: "secret-password",
		})
		require.NoError(t, err)

		has, err = us.HasUsers(ctx)
		require.NoError(t, err)
		assert.True(t, has)
	})
}

func TestCleanup_DeletesStaleResetTokens(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		us := NewUserService(tdb.Pool)

		user, err := us.CreateUser(ctx, CreateUserParams{
			Email:    "stale@example.com",
			Password: "secret-password",
		})
		require.NoError(t, err)

		require.NoError(t, tdb.CreateTestResetToken(user.ID, "stale-token", time.Now().Add(-time.Hour)))

		cs := NewCleanupService(tdb.Pool, true)
		deleted, err := cs.DeleteStaleResetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})
}
