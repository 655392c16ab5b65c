package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/01moynul/refuel-storefront/internal/repository"
	"github.com/gin-gonic/gin"
)

// RegisterInput defines the JSON for creating an account.
type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Number   string `json:"number"`
}

// LoginInput defines the JSON for logging in.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse is returned by login and registration.
type SessionResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	IsAdmin bool        `json:"isAdmin"`
	Token   string      `json:"token"`
	Cart    models.Cart `json:"cart"`
}

func (h *Handlers) session(c *gin.Context, status int, u *models.User) {
	token, err := h.Tokens.GenerateToken(u.ID)
	if err != nil {
		h.respondError(c, apperr.Internal("Failed to generate token", err))
		return
	}

	cart := u.Cart
	if cart == nil {
		cart = models.Cart{}
	}

	c.JSON(status, SessionResponse{
		ID:      u.ID.Hex(),
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
		Token:   token,
		Cart:    cart,
	})
}

// Register handles POST /api/users
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind ---
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Invalid user data", err.Error()))
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// 2. --- Reject duplicates early; the unique index still backs this up ---
	if _, err := h.Users.GetByEmail(c.Request.Context(), email); err == nil {
		h.respondError(c, apperr.Conflict("User already exists"))
		return
	}

	// 3. --- Hash the password ---
	var pw models.Password
	if err := pw.Set(input.Password); err != nil {
		h.respondError(c, apperr.Internal("Failed to hash password", err))
		return
	}

	// 4. --- Save ---
	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Number:       input.Number,
		PasswordHash: pw.Hash,
	}
	if err := h.Users.Insert(c.Request.Context(), user); err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}

	h.session(c, http.StatusCreated, user)
}

// Login handles POST /api/users/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Email and password are required", err.Error()))
		return
	}

	invalid := apperr.Unauthenticated("Invalid email or password")

	user, err := h.Users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.respondError(c, invalid)
			return
		}
		h.respondError(c, storeError(err, "User"))
		return
	}

	pw := models.Password{Hash: user.PasswordHash}
	ok, err := pw.Matches(input.Password)
	if err != nil || !ok {
		h.respondError(c, invalid)
		return
	}

	if user.Blocked {
		h.respondError(c, apperr.Forbidden("Account is blocked. Contact support."))
		return
	}

	h.session(c, http.StatusOK, user)
}

// GetProfile handles GET /api/users/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// ListUsers handles GET /api/users (admin)
func (h *Handlers) ListUsers(c *gin.Context) {
	page := pageParams(c, defaultListLimit)

	users, total, err := h.Users.List(c.Request.Context(), strings.TrimSpace(c.Query("search")), page)
	if err != nil {
		h.respondError(c, storeError(err, "Users"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":       users,
		"totalPages":  totalPages(total, page.Limit),
		"currentPage": page.Number,
		"totalUsers":  total,
	})
}

// UpdateUser handles PATCH /api/users/:id (admin)
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, err := objectIDParam(c, "id", "User")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var input models.UserUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Invalid user data", err.Error()))
		return
	}
	if input.Empty() {
		h.respondError(c, apperr.Validation("No fields to update", ""))
		return
	}
	if input.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*input.Email))
		input.Email = &e
	}

	user, err := h.Users.Update(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /api/users/:id (admin)
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, err := objectIDParam(c, "id", "User")
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.Users.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
