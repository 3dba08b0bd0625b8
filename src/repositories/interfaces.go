package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/khabaroff/accounts-selfhosted/src/models"
)

// UserFilter narrows List results. Nil flag pointers mean "no filter",
// mirroring the admin panel's three boolean list filters.
type UserFilter struct {
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
	Search      string // substring match on email
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}
