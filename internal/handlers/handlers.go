package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/events"
	"github.com/01moynul/refuel-storefront/internal/middleware"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/01moynul/refuel-storefront/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the credential store plus the per-user cart and wishlist.
type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	List(ctx context.Context, search string, page repository.Page) ([]models.User, int64, error)
	MatchingIDs(ctx context.Context, search string) ([]primitive.ObjectID, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)

	SetCart(ctx context.Context, id primitive.ObjectID, cart models.Cart) (*models.User, error)
	AddCartItem(ctx context.Context, id, productID primitive.ObjectID, qty int) (*models.User, error)
	RemoveCartItem(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error)
	SetWishlist(ctx context.Context, id primitive.ObjectID, w models.Wishlist) (*models.User, error)
	AddWishlistItem(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error)
	RemoveWishlistItem(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error)
}

// ProductStore is the catalog.
type ProductStore interface {
	Insert(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f models.ProductFilter, page repository.Page) ([]models.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// OrderStore holds placed orders.
type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, f models.OrderFilter, page repository.Page) ([]models.Order, int64, error)
	Recent(ctx context.Context, n int64) ([]models.Order, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.OrderUpdate) (*models.Order, error)
	Count(ctx context.Context) (int64, error)
	TotalAmounts(ctx context.Context) ([]float64, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateToken(userID primitive.ObjectID) (string, error)
}

// PaymentGateway is the external payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (map[string]interface{}, error)
	VerifySignature(orderID, paymentID, signature string) error
	KeyID() string
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Users    UserStore
	Products ProductStore
	Orders   OrderStore
	Tokens   TokenIssuer
	Payments PaymentGateway
	Events   events.Publisher
	Logger   zerolog.Logger

	UploadDir string
	BaseURL   string
}

const (
	defaultProductLimit = 12
	defaultListLimit    = 10
	maxPageLimit        = 100
)

// respondError writes err in the standard error shape. Server-side failures
// are logged with their cause; the client only sees the safe message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status, body := apperr.Response(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.JSON(status, body)
}

// storeError classifies a repository failure for a record called what.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(what + " not found")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.Conflict("User already exists")
	default:
		return apperr.Internal("Failed to access "+what, err)
	}
}

// currentUser is only valid behind AuthMiddleware.
func currentUser(c *gin.Context) *models.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// pageParams reads ?page and ?limit, clamping to sane bounds.
func pageParams(c *gin.Context, defaultLimit int64) repository.Page {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return repository.Page{Number: page, Limit: limit}
}

func totalPages(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(limit)))
}

// objectIDParam parses a path parameter; an unparsable id can never match a record.
func objectIDParam(c *gin.Context, name, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(what + " not found")
	}
	return id, nil
}

// publish sends an order event without failing the request.
func (h *Handlers) publish(ctx context.Context, e events.OrderEvent) {
	if h.Events == nil {
		return
	}
	if err := h.Events.Publish(ctx, e); err != nil {
		h.Logger.Warn().Err(err).Str("event", e.Type).Str("order_id", e.OrderID).Msg("order event not published")
	}
}
