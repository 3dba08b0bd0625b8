package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/khabaroff/accounts-selfhosted/src/repositories"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// UsersHandler exposes the admin panel's user management endpoints
type UsersHandler struct {
	userService *services.UserService
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(userService *services.UserService) *UsersHandler {
	return &UsersHandler{userService: userService}
}

// parseFlagParam reads a "true"/"false" query parameter into a *bool filter
func parseFlagParam(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	default:
		return nil
	}
}

// HandleListUsers lists users ordered by email, with the list view's
// boolean flag filters and email search
func (uh *UsersHandler) HandleListUsers(c *gin.Context) {
	filter := repositories.UserFilter{
		IsActive:    parseFlagParam(c, "is_active"),
		IsStaff:     parseFlagParam(c, "is_staff"),
		IsSuperuser: parseFlagParam(c, "is_superuser"),
		Search:      c.Query("search"),
	}

	users, err := uh.userService.ListUsers(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list users",
		})
		return
	}

	if users == nil {
		users = []*models.User{}
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// CreateUserRequest mirrors the admin add form: username, email, the new
// password entered twice, and the staff/active flags
type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email" binding:"required,email"`
	Password1 string `json:"password1" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   *bool  `json:"is_staff"`
	IsActive  *bool  `json:"is_active"`
}

// HandleCreateUser creates a user through the add form
func (uh *UsersHandler) HandleCreateUser(c *gin.Context) {
	var req CreateUserRequest
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

	user, err := uh.userService.CreateUser(c.Request.Context(), services.CreateUserParams{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password1,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsStaff:   req.IsStaff,
		IsActive:  req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// userDetail renders a user grouped the way the admin change form groups
// its fields
func userDetail(user *models.User) gin.H {
	return gin.H{
		"id": user.ID,
		"login_credentials": gin.H{
			"email": user.Email,
		},
		"personal_information": gin.H{
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
		"permissions": gin.H{
			"is_active":    user.IsActive,
			"is_staff":     user.IsStaff,
			"is_superuser": user.IsSuperuser,
		},
		"dates": gin.H{
			"last_login":  user.LastLogin,
			"date_joined": user.DateJoined,
		},
	}
}

// parseUserID reads and validates the :id path parameter
func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

// HandleGetUser returns a single user in change-form layout
func (uh *UsersHandler) HandleGetUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	user, err := uh.userService.GetUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userDetail(user)})
}

// UpdateUserRequest mirrors the admin change form. All fields are optional;
// absent fields are left unchanged.
type UpdateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	Username    *string `json:"username"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// HandleUpdateUser applies change-form edits. Permission flag changes are
// reserved for superusers.
func (uh *UsersHandler) HandleUpdateUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	changesFlags := req.IsActive != nil || req.IsStaff != nil || req.IsSuperuser != nil
	claims := middleware.GetSessionClaims(c)
	if changesFlags && (claims == nil || !claims.IsSuperuser) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "superuser access required to change permission flags",
		})
		return
	}

	user, err := uh.userService.UpdateUser(c.Request.Context(), id, services.UpdateUserParams{
		Email:       req.Email,
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IsActive:    req.IsActive,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, services.ErrEmailRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userDetail(user)})
}

// SetPasswordRequest carries the new password entered twice
type SetPasswordRequest struct {
	Password1 string `json:"password1" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required"`
}

// HandleSetPassword replaces a user's password
func (uh *UsersHandler) HandleSetPassword(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req SetPasswordRequest
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

	if err := uh.userService.SetPassword(c.Request.Context(), id, req.Password1); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

// handleSetActive toggles is_active, shared by activate/deactivate
func (uh *UsersHandler) handleSetActive(c *gin.Context, active bool, status string) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := uh.userService.SetActive(c.Request.Context(), id, active); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// HandleActivateUser sets is_active=true
func (uh *UsersHandler) HandleActivateUser(c *gin.Context) {
	uh.handleSetActive(c, true, "activated")
}

// HandleDeactivateUser sets is_active=false
func (uh *UsersHandler) HandleDeactivateUser(c *gin.Context) {
	uh.handleSetActive(c, false, "deactivated")
}

// HandleDeleteUser removes a user record
func (uh *UsersHandler) HandleDeleteUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := uh.userService.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
