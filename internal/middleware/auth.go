package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/01moynul/refuel-storefront/internal/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ContextUserIDKey = "userID"
	ContextUserKey   = "user"
)

// TokenVerifier turns a bearer token into the user id it was issued for.
type TokenVerifier interface {
	ValidateToken(token string) (primitive.ObjectID, error)
}

// UserLoader fetches the current state of a user.
type UserLoader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

func abort(c *gin.Context, err error) {
	status, body := apperr.Response(err)
	c.AbortWithStatusJSON(status, body)
}

// AuthMiddleware requires a valid bearer token for an existing, unblocked user.
// The loaded user is stored in the context under ContextUserKey.
func AuthMiddleware(tokens TokenVerifier, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperr.Unauthenticated("Not authorized, no token"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abort(c, apperr.Unauthenticated("Not authorized, invalid token format"))
			return
		}

		// 2. --- Validate Token ---
		userID, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, apperr.Unauthenticated("Not authorized, token failed"))
			return
		}

		// 3. --- Load the user; tokens outlive deleted accounts ---
		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				abort(c, apperr.Unauthenticated("Not authorized, user not found"))
				return
			}
			abort(c, apperr.Internal("Failed to load user", err))
			return
		}

		// 4. --- Blocked accounts keep their token but lose access ---
		if user.Blocked {
			abort(c, apperr.Forbidden("Account is blocked. Contact support."))
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware. Administrator identity is the
// isAdmin flag on the stored user and nothing else.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, apperr.Unauthenticated("Not authorized"))
			return
		}
		if !user.IsAdmin {
			abort(c, apperr.Forbidden("Not authorized as an admin"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user placed in the context by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentUserID returns the id AuthMiddleware resolved from the token.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok && !id.IsZero()
}
