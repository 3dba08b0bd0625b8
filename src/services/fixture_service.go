package services

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// UserFixture describes one user entry in a fixtures file
type UserFixture struct {
	Email       string `yaml:"email"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	IsActive    *bool  `yaml:"is_active"`
	IsStaff     *bool  `yaml:"is_staff"`
	IsSuperuser *bool  `yaml:"is_superuser"`
}

// FixtureFile is the top-level structure of a fixtures YAML file
type FixtureFile struct {
	Users []UserFixture `yaml:"users"`
}

// FixtureService seeds initial user accounts from a YAML file on first run
type FixtureService struct {
	users *UserService
}

// NewFixtureService creates a new fixture service
func NewFixtureService(users *UserService) *FixtureService {
	return &FixtureService{users: users}
}

// LoadFromFile reads a fixtures file and creates the users it describes.
// Entries flagged as superusers go through CreateSuperuser so its flag
// invariants are enforced. Returns the number of users created.
func (fs *FixtureService) LoadFromFile(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- operator-supplied fixtures path
	if err != nil {
		return 0, fmt.Errorf("failed to read fixtures file: %w", err)
	}

	var file FixtureFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return 0, fmt.Errorf("failed to parse fixtures file: %w", err)
	}

	created := 0
	for _, fixture := range file.Users {
		params := CreateUserParams{
			Email:       fixture.Email,
			Username:    fixture.Username,
			Password:    fixture.Password,
			FirstName:   fixture.FirstName,
			LastName:    fixture.LastName,
			IsActive:    fixture.IsActive,
			IsStaff:     fixture.IsStaff,
			IsSuperuser: fixture.IsSuperuser,
		}

		var createErr error
		if fixture.IsSuperuser != nil && *fixture.IsSuperuser {
			_, createErr = fs.users.CreateSuperuser(ctx, params)
		} else {
			_, createErr = fs.users.CreateUser(ctx, params)
		}

		if createErr != nil {
			return created, fmt.Errorf("failed to create fixture user %q: %w", fixture.Email, createErr)
		}

		log.Info().Str("email", NormalizeEmail(fixture.Email)).Msg("fixture user created")
		created++
	}

	return created, nil
}
