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
// --- Wishlist Handlers (caller's own wishlist) ---
//

type AddToWishlistInput struct {
	ProductID string `json:"productId" binding:"required"`
}

type ReplaceWishlistInput struct {
	Wishlist *[]json.RawMessage `json:"wishlist"`
}

func (h *Handlers) respondWishlist(c *gin.Context, u *models.User) {
	products, err := h.Products.GetByIDs(c.Request.Context(), u.Wishlist.ProductIDs())
	if err != nil {
		h.respondError(c, apperr.Internal("Server error fetching wishlist", err))
		return
	}
	c.JSON(http.StatusOK, models.PopulateWishlist(u.Wishlist, products))
}

// GetWishlist handles GET /api/wishlist
func (h *Handlers) GetWishlist(c *gin.Context) {
	user, err := h.Users.GetByID(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	h.respondWishlist(c, user)
}

// AddToWishlist handles POST /api/wishlist. Adding a product that is already
// present succeeds without changing anything.
func (h *Handlers) AddToWishlist(c *gin.Context) {
	var input AddToWishlistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Invalid input", err.Error()))
		return
	}

	productID, err := primitive.ObjectIDFromHex(input.ProductID)
	if err != nil {
		h.respondError(c, apperr.Validation("Invalid product id", input.ProductID))
		return
	}

	user, err := h.Users.AddWishlistItem(c.Request.Context(), currentUser(c).ID, productID)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	h.respondWishlist(c, user)
}

// RemoveFromWishlist handles DELETE /api/wishlist/:id
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.GetWishlist(c)
		return
	}

	user, err := h.Users.RemoveWishlistItem(c.Request.Context(), currentUser(c).ID, productID)
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	h.respondWishlist(c, user)
}

// ReplaceWishlist handles PUT /api/wishlist
func (h *Handlers) ReplaceWishlist(c *gin.Context) {
	var input ReplaceWishlistInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Wishlist == nil {
		h.respondError(c, apperr.Validation("Wishlist data must be an array", ""))
		return
	}

	entries := make([]models.WishlistEntryInput, 0, len(*input.Wishlist))
	for _, raw := range *input.Wishlist {
		var entry models.WishlistEntryInput
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	user, err := h.Users.SetWishlist(c.Request.Context(), currentUser(c).ID, models.SanitizeWishlist(entries))
	if err != nil {
		h.respondError(c, storeError(err, "User"))
		return
	}
	h.respondWishlist(c, user)
}
