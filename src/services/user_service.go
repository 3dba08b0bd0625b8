package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, username, first_name, last_name, password_hash,
	is_active, is_staff, is_superuser, last_login, date_joined`

// UserService owns the user account lifecycle: creation (regular and
// superuser), lookups, the admin panel's list view, and mutation.
type UserService struct {
	pool *pgxpool.Pool
	repo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(pool *pgxpool.Pool) *UserService {
	return &UserService{pool: pool}
}

// NewUserServiceWithRepo creates a new user service with repository (for testing)
func NewUserServiceWithRepo(repo repositories.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// CreateUserParams carries the fields accepted by user creation. The flag
// fields are pointers so "not provided" and "explicitly false" stay distinct.
type CreateUserParams struct {
	Email       string
	Username    string
	Password    string
	FirstName   string
	LastName    string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

// NormalizeEmail lowercases the domain portion of an email address,
// leaving the local part untouched: User@EXAMPLE.com -> User@example.com.
func NormalizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// CreateUser creates a user account with a bcrypt-hashed password.
// The email is required and stored with its domain case-normalized.
func (us *UserService) CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, ErrEmailRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(params.Email),
		Username:     params.Username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: string(hash),
		IsActive:     boolOrDefault(params.IsActive, true),
		IsStaff:      boolOrDefault(params.IsStaff, false),
		IsSuperuser:  boolOrDefault(params.IsSuperuser, false),
		DateJoined:   time.Now(),
	}

	// Use repository if available (for testing)
	if us.repo != nil {
		if err := us.repo.Create(ctx, user); err != nil {
			return nil, mapUserError(err, "failed to create user")
		}
		return user, nil
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10)
	`

	_, err = us.pool.Exec(ctx, query,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName,
		user.PasswordHash, user.IsActive, user.IsStaff, user.IsSuperuser, user.DateJoined,
	)
	if err != nil {
		return nil, mapUserError(err, "failed to create user")
	}

	return user, nil
}

// CreateSuperuser creates a user with elevated flags. The staff, superuser
// and active flags default to true; passing staff or superuser explicitly
// as false is rejected.
func (us *UserService) CreateSuperuser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	if params.IsStaff == nil {
		params.IsStaff = boolPtr(true)
	}
	if params.IsSuperuser == nil {
		params.IsSuperuser = boolPtr(true)
	}
	if params.IsActive == nil {
		params.IsActive = boolPtr(true)
	}

	if !*params.IsStaff {
		return nil, ErrSuperuserNotStaff
	}
	if !*params.IsSuperuser {
		return nil, ErrSuperuserFlagRequired
	}

	return us.CreateUser(ctx, params)
}

// GetUserByID retrieves a user by ID
func (us *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if us.repo != nil {
		user, err := us.repo.GetByID(ctx, id)
		if err != nil {
			return nil, mapUserError(err, "failed to get user")
		}
		return user, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return us.queryUser(ctx, query, id)
}

// GetUserByEmail retrieves a user by email. The lookup is performed against
// the normalized form, so domain casing does not matter.
func (us *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)

	if us.repo != nil {
		user, err := us.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, mapUserError(err, "failed to get user")
		}
		return user, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return us.queryUser(ctx, query, email)
}

// ListUsers returns users matching the filter, ordered by email. This backs
// the admin panel's list view (boolean flag filters plus email search).
func (us *UserService) ListUsers(ctx context.Context, filter repositories.UserFilter) ([]*models.User, error) {
	if us.repo != nil {
		users, err := us.repo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users`
	var conditions []string
	var args []interface{}

	addFlag := func(column string, value *bool) {
		if value != nil {
			args = append(args, *value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	addFlag("is_active", filter.IsActive)
	addFlag("is_staff", filter.IsStaff)
	addFlag("is_superuser", filter.IsSuperuser)

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("lower(email) LIKE $%d", len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY email"

	rows, err := us.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateUserParams carries the mutable fields of the admin change form.
// Nil fields are left unchanged.
type UpdateUserParams struct {
	Email       *string
	Username    *string
	FirstName   *string
	LastName    *string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

// UpdateUser applies the change-form fields to an existing user
func (us *UserService) UpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) (*models.User, error) {
	user, err := us.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Email != nil {
		if strings.TrimSpace(*params.Email) == "" {
			return nil, ErrEmailRequired
		}
		user.Email = NormalizeEmail(*params.Email)
	}
	if params.Username != nil {
		user.Username = *params.Username
	}
	if params.FirstName != nil {
		user.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		user.LastName = *params.LastName
	}
	if params.IsActive != nil {
		user.IsActive = *params.IsActive
	}
	if params.IsStaff != nil {
		user.IsStaff = *params.IsStaff
	}
	if params.IsSuperuser != nil {
		user.IsSuperuser = *params.IsSuperuser
	}

	if us.repo != nil {
		if err := us.repo.Update(ctx, user); err != nil {
			return nil, mapUserError(err, "failed to update user")
		}
		return user, nil
	}

	query := `
		UPDATE users
		SET email = $2, username = $3, first_name = $4, last_name = $5,
		    is_active = $6, is_staff = $7, is_superuser = $8
		WHERE id = $1
	`

	_, err = us.pool.Exec(ctx, query,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName,
		user.IsActive, user.IsStaff, user.IsSuperuser,
	)
	if err != nil {
		return nil, mapUserError(err, "failed to update user")
	}

	return user, nil
}

// SetPassword replaces the user's password hash
func (us *UserService) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if us.repo != nil {
		if err := us.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
			return mapUserError(err, "failed to set password")
		}
		return nil
	}

	result, err := us.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, string(hash))
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin stamps the user's last_login with the current time
func (us *UserService) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	if us.repo != nil {
		if err := us.repo.UpdateLastLogin(ctx, id); err != nil {
			return mapUserError(err, "failed to update last_login")
		}
		return nil
	}

	result, err := us.pool.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last_login: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive toggles the is_active flag
func (us *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if us.repo != nil {
		user, err := us.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		user.IsActive = active
		if err := us.repo.Update(ctx, user); err != nil {
			return mapUserError(err, "failed to update is_active")
		}
		return nil
	}

	result, err := us.pool.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update is_active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user record
func (us *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if us.repo != nil {
		if err := us.repo.Delete(ctx, id); err != nil {
			return mapUserError(err, "failed to delete user")
		}
		return nil
	}

	result, err := us.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// HasUsers reports whether any user records exist (first-run seed check)
func (us *UserService) HasUsers(ctx context.Context) (bool, error) {
	if us.repo != nil {
		count, err := us.repo.Count(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to count users: %w", err)
		}
		return count > 0, nil
	}

	var count int
	if err := us.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

func (us *UserService) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(us.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// scanUser scans a row in userColumns order
func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.IsActive, &user.IsStaff, &user.IsSuperuser,
		&user.LastLogin, &user.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// mapUserError translates storage errors into sentinel errors where possible
func mapUserError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	if errors.Is(err, ErrEmailTaken) {
		return ErrEmailTaken
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func boolPtr(v bool) *bool {
	return &v
}
