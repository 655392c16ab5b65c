package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Catalog (public reads, admin writes) ---
//

// ProductInput defines the JSON for creating a product.
type ProductInput struct {
	Name        string  `json:"name" binding:"required"`
	Price       float64 `json:"price" binding:"gte=0"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock" binding:"gte=0"`
	Description string  `json:"description"`
}

// ProductUpdateInput is a partial update; absent fields keep their value.
type ProductUpdateInput struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Image       *string  `json:"image"`
	Category    *string  `json:"category"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	Description *string  `json:"description"`
}

func (in ProductUpdateInput) apply(p *models.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
}

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation("Invalid "+key, raw+" is not a number")
	}
	return &f, nil
}

// ListProducts handles GET /api/products
func (h *Handlers) ListProducts(c *gin.Context) {
	// 1. --- Parse filters ---
	minPrice, err := optionalFloat(c, "minPrice")
	if err != nil {
		h.respondError(c, err)
		return
	}
	maxPrice, err := optionalFloat(c, "maxPrice")
	if err != nil {
		h.respondError(c, err)
		return
	}

	filter := models.ProductFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.Query("sort"),
	}
	page := pageParams(c, defaultProductLimit)

	// 2. --- Query ---
	products, total, err := h.Products.List(c.Request.Context(), filter, page)
	if err != nil {
		h.respondError(c, storeError(err, "Products"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":      products,
		"totalPages":    totalPages(total, page.Limit),
		"currentPage":   page.Number,
		"totalProducts": total,
	})
}

// GetProduct handles GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	id, err := objectIDParam(c, "id", "Product")
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, storeError(err, "Product"))
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetCategories handles GET /api/products/categories
func (h *Handlers) GetCategories(c *gin.Context) {
	categories, err := h.Products.Categories(c.Request.Context())
	if err != nil {
		h.respondError(c, storeError(err, "Categories"))
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateProduct handles POST /api/products (admin)
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Invalid product data", err.Error()))
		return
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Image:       input.Image,
		Category:    input.Category,
		Stock:       input.Stock,
		Description: input.Description,
	}
	if err := h.Products.Insert(c.Request.Context(), product); err != nil {
		h.respondError(c, storeError(err, "Product"))
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/:id (admin)
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id, err := objectIDParam(c, "id", "Product")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var input ProductUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Invalid product data", err.Error()))
		return
	}

	product, err := h.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, storeError(err, "Product"))
		return
	}
	input.apply(product)

	updated, err := h.Products.Update(c.Request.Context(), product)
	if err != nil {
		h.respondError(c, storeError(err, "Product"))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct handles DELETE /api/products/:id (admin).
// Carts, wishlists and orders keep their references; reads skip or snapshot them.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, err := objectIDParam(c, "id", "Product")
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.Products.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, storeError(err, "Product"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}
