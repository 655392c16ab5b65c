package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//
// --- Cart Handlers (caller's own cart) ---
//

// AddToCartInput defines the JSON for adding an item to the cart.
type AddToCartInput struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// ReplaceCartInput is the authoritative full cart sent by the client.
// Entries stay raw so one malformed entry is dropped instead of failing the batch.
type ReplaceCartInput struct {
	Cart *[]json.RawMessage `json:"cart"`
}

// populatedCart joins the cart with live products, omitting dangling entries.
func (h *Handlers) populatedCart(c *gin.Context, cart models.Cart) ([]models.PopulatedCartItem, error) {
	products, err := h.Products.GetByIDs(c.Request.Context(), cart.ProductIDs())
	if err != nil {
		return nil, apperr.Internal("Server error fetching cart", err)
	}
	return models.PopulateCart(cart, products), nil
}

func (h *Handlers) respondCart(c *gin.Context, u *models.User) {
	items, err := h.populatedCart(c, u.Cart)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetCart handles GET /api/cart
func (h *Handlers) GetCart(c *gin.Context) {
	// 1. --- Re-read; the context copy was loaded before this request's writes ---
	user, err := h.Users.GetByID(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}

	// 2. --- Populate ---
	h.respondCart(c, user)
}

// AddToCart handles POST /api/cart
func (h *Handlers) AddToCart(c *gin.Context) {
	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Invalid input", err.Error()))
		return
	}

	productID, err := primitive.ObjectIDFromHex(input.ProductID)
	if err != nil {
		h.respondError(c, apperr.Validation("Invalid product id", input.ProductID))
		return
	}

	user, err := h.Users.AddCartItem(c.Request.Context(), currentUser(c).ID, productID, input.Quantity)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	h.respondCart(c, user)
}

// RemoveFromCart handles DELETE /api/cart/:id
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	user := currentUser(c)

	// An id that can't parse can't be in the cart either.
	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.GetCart(c)
		return
	}

	updated, err := h.Users.RemoveCartItem(c.Request.Context(), user.ID, productID)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	h.respondCart(c, updated)
}

// ClearCart handles DELETE /api/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	if _, err := h.Users.SetCart(c.Request.Context(), currentUser(c).ID, models.Cart{}); err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// ReplaceCart handles PUT /api/cart
func (h *Handlers) ReplaceCart(c *gin.Context) {
	// 1. --- Bind; a non-array cart is the only hard failure ---
	var input ReplaceCartInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Cart == nil {
		h.respondError(c, apperr.Validation("Cart data must be an array", ""))
		return
	}

	// 2. --- Sanitize entries ---
	entries := make([]models.CartEntryInput, 0, len(*input.Cart))
	for _, raw := range *input.Cart {
		var entry models.CartEntryInput
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	cart := models.SanitizeCart(entries)

	// 3. --- Overwrite ---
	user, err := h.Users.SetCart(c.Request.Context(), currentUser(c).ID, cart)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	h.respondCart(c, user)
}
