package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// ErrResetTokenExpired indicates the password reset token has expired
var ErrResetTokenExpired = errors.New("password reset token has expired")

// ErrResetTokenUsed indicates the password reset token was already used
var ErrResetTokenUsed = errors.New("password reset token has already been used")

// ErrResetTokenInvalid indicates the password reset token is invalid
var ErrResetTokenInvalid = errors.New("invalid password reset token")

// AuthService handles email+password authentication, session tokens and the
// password reset token lifecycle
type AuthService struct {
	pool             *pgxpool.Pool
	users            *UserService
	jwtSecret        string
	sessionTTL       time.Duration
	resetTokenExpiry time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(pool *pgxpool.Pool, users *UserService, jwtSecret string, sessionTTLHours, resetTokenExpirySeconds int) *AuthService {
	return &AuthService{
		pool:             pool,
		users:            users,
		jwtSecret:        jwtSecret,
		sessionTTL:       time.Duration(sessionTTLHours) * time.Hour,
		resetTokenExpiry: time.Duration(resetTokenExpirySeconds) * time.Second,
	}
}

// SessionTTL returns the configured session lifetime
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Authenticate verifies an email+password pair. Lookup failures and bad
// passwords both come back as ErrInvalidCredentials so the two are
// indistinguishable to callers. Updates last_login on success.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to update last_login")
	}
	user.LastLogin = &now

	return user, nil
}

// SessionClaims represents JWT claims for an authenticated session
type SessionClaims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	jwt.RegisteredClaims
}

// GenerateSessionToken creates a signed JWT session token for a user
func (s *AuthService) GenerateSessionToken(user *models.User) (string, error) {
	claims := SessionClaims{
		UserID:      user.ID.String(),
		Email:       user.Email,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "accounts-selfhosted",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// VerifySessionToken parses and validates a JWT session token
func (s *AuthService) VerifySessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	return claims, nil
}

// GenerateResetToken generates a cryptographically secure token (32 bytes, base64url)
func (s *AuthService) GenerateResetToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// StoreResetToken stores a password reset token for a user
func (s *AuthService) StoreResetToken(ctx context.Context, userID uuid.UUID, token string) error {
	expiresAt := time.Now().Add(s.resetTokenExpiry)

	query := `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.pool.Exec(ctx, query, uuid.New(), userID, token, expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// VerifyResetToken verifies a password reset token and marks it as used,
// returning the owning user's ID. Tokens are single use.
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	var usedAt *time.Time

	query := `
		SELECT user_id, expires_at, used_at
		FROM password_reset_tokens
		WHERE token = $1
	`

	err := s.pool.QueryRow(ctx, query, token).Scan(&userID, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrResetTokenInvalid
		}
		return uuid.Nil, fmt.Errorf("failed to verify reset token: %w", err)
	}

	if usedAt != nil {
		return uuid.Nil, ErrResetTokenUsed
	}
	if time.Now().After(expiresAt) {
		return uuid.Nil, ErrResetTokenExpired
	}

	if _, err := s.pool.Exec(ctx, `UPDATE password_reset_tokens SET used_at = NOW() WHERE token = $1`, token); err != nil {
		return uuid.Nil, fmt.Errorf("failed to mark reset token as used: %w", err)
	}

	return userID, nil
}

// ResetPassword consumes a reset token and sets the new password
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.VerifyResetToken(ctx, token)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, userID, newPassword)
}
