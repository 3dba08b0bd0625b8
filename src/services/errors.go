package services

import "errors"

// Sentinel errors for explicit error handling
// These errors allow callers to distinguish between different failure modes
// using errors.Is() instead of string matching

var (
	// ErrEmailRequired indicates a user creation attempt without an email
	ErrEmailRequired = errors.New("email address is required")

	// ErrEmailTaken indicates the email is already registered
	ErrEmailTaken = errors.New("email address already in use")

	// ErrUserNotFound indicates the user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials indicates authentication failed
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserInactive indicates the account exists but is deactivated
	ErrUserInactive = errors.New("user account is inactive")

	// ErrSuperuserNotStaff indicates a superuser creation attempt with staff
	// explicitly disabled
	ErrSuperuserNotStaff = errors.New("superuser must have is_staff=true")

	// ErrSuperuserFlagRequired indicates a superuser creation attempt with the
	// superuser flag explicitly disabled
	ErrSuperuserFlagRequired = errors.New("superuser must have is_superuser=true")
)
