package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// LoginRequest represents the request body for login. Email is the login
// identifier; there is no username-based login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response for successful login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// HandleLogin authenticates a user by email and password and returns a JWT
// session token, also set as an HTTP-only cookie
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserInactive) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "account is inactive",
			})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid email or password",
		})
		return
	}

	token, err := h.authService.GenerateSessionToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to generate token",
		})
		return
	}

	ttl := h.authService.SessionTTL()
	c.SetCookie(
		middleware.SessionCookieName,
		token,
		int(ttl.Seconds()),
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c *gin.Context) {
	c.SetCookie(
		middleware.SessionCookieName,
		"",
		-1,
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "logged out",
	})
}

// HandleMe returns the authenticated user's own record
func (h *AuthHandler) HandleMe(c *gin.Context) {
	claims := middleware.GetSessionClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// PasswordResetRequest represents the request body for requesting a reset token
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// HandleRequestPasswordReset issues a single-use password reset token.
// The response is identical whether or not the email exists.
func (h *AuthHandler) HandleRequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	genericResponse := gin.H{
		"message": "If the email is registered, a password reset token has been issued.",
	}

	user, err := h.userService.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			log.Error().Err(err).Msg("password reset lookup failed")
		}
		c.JSON(http.StatusOK, genericResponse)
		return
	}

	token, err := h.authService.GenerateResetToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate reset token"})
		return
	}

	if err := h.authService.StoreResetToken(c.Request.Context(), user.ID, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store reset token"})
		return
	}

	// No outbound mail in a self-hosted install: the operator reads the
	// token from the service log and relays it out of band.
	log.Info().Str("email", user.Email).Str("reset_token", token).Msg("password reset token issued")

	c.JSON(http.StatusOK, genericResponse)
}

// PasswordResetConfirmRequest carries the reset token plus the new password
// entered twice for confirmation
type PasswordResetConfirmRequest struct {
	Token     string `json:"token" binding:"required"`
	Password1 string `json:"password1" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required"`
}

// HandleConfirmPasswordReset consumes a reset token and sets the new password
func (h *AuthHandler) HandleConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	if req.Password1 != req.Password2 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "passwords do not match",
		})
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.Password1)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrResetTokenInvalid),
			errors.Is(err, services.ErrResetTokenUsed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or used reset token"})
		case errors.Is(err, services.ErrResetTokenExpired):
			c.JSON(http.StatusGone, gin.H{"error": "reset token has expired"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "password updated",
	})
}
