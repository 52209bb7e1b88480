package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/middleware"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
	"github.com/monocle-dev/workspace/internal/utils"
)

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type UpdateUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email" binding:"omitempty,email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"omitempty,min=6"`
}

type DeleteUserRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) setAuthCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.AuthCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		MaxAge:   maxAge,
		Secure:   h.cfg.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookie(ctx *gin.Context) {
	h.setAuthCookie(ctx, "", -1)
}

// startSession creates a server session for user and hands the token out as a cookie.
func (h *Handler) startSession(ctx *gin.Context, user models.User) bool {
	_, token, err := h.sessions.Create(ctx.Request.Context(), user)

	if err != nil {
		h.log.Errorw("failed to create session", "error", err, "user_id", user.ID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	h.setAuthCookie(ctx, token, int(h.sessions.TTL().Seconds()))
	return true
}

func (h *Handler) newUser(ctx *gin.Context, name, email, password string) (models.User, error) {
	passwordHash, err := auth.HashPassword(password)

	if err != nil {
		return models.User{}, err
	}

	now := h.now().UTC()

	return h.store.CreateUser(ctx.Request.Context(), models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// nameFromEmail derives a display name from the local part of an email address.
func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func (h *Handler) CreateUser(ctx *gin.Context) {
	var body CreateUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.newUser(ctx, body.Name, normalizeEmail(body.Email), body.Password)

	if err != nil {
		h.writeError(ctx, err, "User not found", "Internal server error")
		return
	}

	if !h.startSession(ctx, user) {
		return
	}

	h.log.Infow("user registered", "user_id", user.ID)

	ctx.JSON(http.StatusCreated, gin.H{"user": types.NewUserResponse(user)})
}

func (h *Handler) LoginUser(ctx *gin.Context) {
	var body LoginUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	email := normalizeEmail(body.Email)
	user, err := h.store.UserByEmail(ctx.Request.Context(), email)

	switch {
	case err == nil:
		if !auth.CheckPassword(user.PasswordHash, body.Password) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
	case errors.Is(err, types.ErrNotFound) && h.cfg.AutoRegister:
		user, err = h.newUser(ctx, nameFromEmail(email), email, body.Password)
		if err != nil {
			h.writeError(ctx, err, "User not found", "Internal server error")
			return
		}
		h.log.Infow("user auto-registered on login", "user_id", user.ID)
	case errors.Is(err, types.ErrNotFound):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	default:
		h.writeError(ctx, err, "User not found", "Internal server error")
		return
	}

	if !h.startSession(ctx, user) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": types.NewUserResponse(user)})
}

func (h *Handler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:    currentUser.ID,
			Name:  currentUser.Name,
			Email: currentUser.Email,
		},
	})
}

// LogoutUser tears down the server session. It succeeds even without a valid token so
// a stale cookie can always be cleared.
func (h *Handler) LogoutUser(ctx *gin.Context) {
	if token := middleware.TokenFromRequest(ctx.Request); token != "" {
		if err := h.sessions.Teardown(ctx.Request.Context(), token); err != nil {
			h.log.Errorw("failed to tear down session", "error", err)
		}
	}

	h.clearAuthCookie(ctx)

	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) UpdateUser(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body UpdateUserRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.store.UserByID(ctx.Request.Context(), userID)
	if err != nil {
		h.writeError(ctx, err, "User not found", "Internal server error")
		return
	}

	changed := false

	if name := strings.TrimSpace(body.Name); name != "" {
		user.Name = name
		changed = true
	}

	if body.Email != "" {
		user.Email = normalizeEmail(body.Email)
		changed = true
	}

	if body.NewPassword != "" {
		if body.CurrentPassword == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is required to change password"})
			return
		}

		if !auth.CheckPassword(user.PasswordHash, body.CurrentPassword) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
			return
		}

		passwordHash, err := auth.HashPassword(body.NewPassword)
		if err != nil {
			h.writeError(ctx, err, "User not found", "Internal server error")
			return
		}

		user.PasswordHash = passwordHash
		changed = true
	}

	if !changed {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	user.UpdatedAt = h.now().UTC()

	user, err = h.store.UpdateUser(ctx.Request.Context(), user)
	if err != nil {
		h.writeError(ctx, err, "User not found", "Internal server error")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    types.NewUserResponse(user),
	})
}

func (h *Handler) DeleteUser(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body DeleteUserRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Password is required for account deletion"})
		return
	}

	user, err := h.store.UserByID(ctx.Request.Context(), userID)
	if err != nil {
		h.writeError(ctx, err, "User not found", "Internal server error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, body.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect password"})
		return
	}

	if err := h.store.DeleteUser(ctx.Request.Context(), user.ID); err != nil {
		h.writeError(ctx, err, "User not found", "Internal server error")
		return
	}

	if token := middleware.TokenFromRequest(ctx.Request); token != "" {
		if err := h.sessions.Teardown(ctx.Request.Context(), token); err != nil {
			h.log.Errorw("failed to tear down session", "error", err, "user_id", user.ID)
		}
	}

	h.clearAuthCookie(ctx)

	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Account deleted successfully"})
}
