package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"domain uppercased", "User@EXAMPLE.com", "User@example.com"},
		{"local part preserved", "UsEr@Example.COM", "UsEr@example.com"},
		{"already normalized", "user@example.com", "user@example.com"},
		{"no at sign", "not-an-email", "not-an-email"},
		{"empty", "", ""},
		{"multiple at signs", `"a@b"@EXAMPLE.com`, `"a@b"@example.com`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmail(tt.input))
		})
	}
}

func TestCreateUser_EmptyEmail(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	_, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "",
		Password: "secret-password",
	})

	require.ErrorIs(t, err, ErrEmailRequired)
	assert.Empty(t, repo.Calls["Create"], "no record should be persisted")
}

func TestCreateUser_WhitespaceEmail(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	_, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "   ",
		Password: "secret-password",
	})

	require.ErrorIs(t, err, ErrEmailRequired)
	assert.Empty(t, repo.Calls["Create"])
}

func TestCreateUser_NormalizesEmailDomain(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	user, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "User@EXAMPLE.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.Equal(t, "User@example.com", user.Email)
	assert.Len(t, repo.Calls["Create"], 1)
}

func TestCreateUser_Defaults(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	user, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "user@example.com",
		Username: "user",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff)
	assert.False(t, user.IsSuperuser)
	assert.Nil(t, user.LastLogin)
	assert.False(t, user.DateJoined.IsZero())
}

func TestCreateUser_HashesPassword(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	user, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "user@example.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.NotEqual(t, "secret-password", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-password")))
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := mock.NewUserRepository()
	repo.CreateFunc = func(ctx context.Context, user *models.User) error {
		return ErrEmailTaken
	}
	us := NewUserServiceWithRepo(repo)

	_, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "user@example.com",
		Password: "secret-password",
	})

	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateSuperuser_DefaultsElevatedFlags(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	user, err := us.CreateSuperuser(context.Background(), CreateUserParams{
		Email:    "root@example.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.True(t, user.IsStaff)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsActive)
}

func TestCreateSuperuser_ExplicitStaffFalse(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	staff := false
	_, err := us.CreateSuperuser(context.Background(), CreateUserParams{
		Email:    "root@example.com",
		Password: "secret-password",
		IsStaff:  &staff,
	})

	require.ErrorIs(t, err, ErrSuperuserNotStaff)
	assert.Empty(t, repo.Calls["Create"], "no record should be persisted")
}

func TestCreateSuperuser_ExplicitSuperuserFalse(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	super := false
	_, err := us.CreateSuperuser(context.Background(), CreateUserParams{
		Email:       "root@example.com",
		Password:    "secret-password",
		IsSuperuser: &super,
	})

	require.ErrorIs(t, err, ErrSuperuserFlagRequired)
	assert.Empty(t, repo.Calls["Create"])
}

func TestCreateSuperuser_EmptyEmail(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	_, err := us.CreateSuperuser(context.Background(), CreateUserParams{
		Password: "secret-password",
	})

	require.ErrorIs(t, err, ErrEmailRequired)
}

func TestUpdateUser_EmptyEmailRejected(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	created, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "user@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	repo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		u := *created
		return &u, nil
	}

	empty := ""
	_, err = us.UpdateUser(context.Background(), created.ID, UpdateUserParams{Email: &empty})
	require.ErrorIs(t, err, ErrEmailRequired)
	assert.Empty(t, repo.Calls["Update"])
}

func TestUpdateUser_NormalizesNewEmail(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	created, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "user@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	repo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		u := *created
		return &u, nil
	}

	newEmail := "Moved@NEW-DOMAIN.ORG"
	updated, err := us.UpdateUser(context.Background(), created.ID, UpdateUserParams{Email: &newEmail})
	require.NoError(t, err)
	assert.Equal(t, "Moved@new-domain.org", updated.Email)
}

func TestSetActive_Deactivates(t *testing.T) {
	repo := mock.NewUserRepository()
	us := NewUserServiceWithRepo(repo)

	created, err := us.CreateUser(context.Background(), CreateUserParams{
		Email:    "user@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	repo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		u := *created
		return &u, nil
	}

	require.NoError(t, us.SetActive(context.Background(), created.ID, false))

	require.Len(t, repo.Calls["Update"], 1)
	saved := repo.Calls["Update"][0].(*models.User)
	assert.False(t, saved.IsActive)
}

func TestSetActive_UnknownUser(t *testing.T) {
	repo := mock.NewUserRepository()
	repo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		return nil, ErrUserNotFound
	}
	us := NewUserServiceWithRepo(repo)

	err := us.SetActive(context.Background(), uuid.New(), false)
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, repo.Calls["Update"])
}
