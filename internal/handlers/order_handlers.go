package handlers

import (
	"net/http"
	"strings"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/events"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//
// --- Order Handlers ---
//

// OrderItemInput is one line of the client's cart snapshot. Clients send the
// product reference under any of productId, id, _id or product.
type OrderItemInput struct {
	ProductID string  `json:"productId"`
	ID        string  `json:"id"`
	MongoID   string  `json:"_id"`
	Product   string  `json:"product"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price" binding:"gte=0"`
}

func (in OrderItemInput) reference() (primitive.ObjectID, bool) {
	for _, candidate := range []string{in.ID, in.MongoID, in.ProductID, in.Product} {
		if candidate == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(candidate)
		return id, err == nil
	}
	return primitive.NilObjectID, false
}

// CreateOrderInput defines the JSON for placing an order.
type CreateOrderInput struct {
	Items           []OrderItemInput        `json:"items" binding:"dive"`
	TotalAmount     float64                 `json:"totalAmount" binding:"gte=0"`
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                  `json:"paymentMethod"`
	PaymentDetails  map[string]interface{}  `json:"paymentDetails"`
}

// UpdateOrderInput lists the only fields an order update may touch.
type UpdateOrderInput struct {
	Status          *string                 `json:"status"`
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   *string                 `json:"paymentMethod"`
	PaymentDetails  map[string]interface{}  `json:"paymentDetails"`
}

// OrderView is an order with its customer flattened in for listing.
type OrderView struct {
	models.Order
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
}

// CreateOrder handles POST /api/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	user := currentUser(c)

	// 1. --- Bind ---
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Order validation failed", err.Error()))
		return
	}
	if len(input.Items) == 0 {
		h.respondError(c, &apperr.Error{Kind: apperr.KindValidation, Code: "InvalidRequest", Message: "No items in order"})
		return
	}

	// 2. --- Snapshot items; price and name come from the client ---
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		productID, ok := in.reference()
		if !ok {
			h.respondError(c, &apperr.Error{Kind: apperr.KindValidation, Code: "InvalidRequest", Message: "One or more items are missing a valid product ID."})
			return
		}
		qty := in.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, models.OrderItem{
			ProductID: productID,
			Name:      in.Name,
			Image:     in.Image,
			Quantity:  qty,
			Price:     in.Price,
		})
	}

	shipping := models.DefaultShippingAddress()
	if input.ShippingAddress != nil {
		shipping = *input.ShippingAddress
	}

	// 3. --- Persist ---
	order := &models.Order{
		UserID:          user.ID,
		Items:           items,
		TotalAmount:     input.TotalAmount,
		ShippingAddress: shipping,
		PaymentMethod:   input.PaymentMethod,
		PaymentDetails:  input.PaymentDetails,
		Status:          models.OrderStatusProcessing,
	}
	if err := h.Orders.Insert(c.Request.Context(), order); err != nil {
		h.respondError(c, storeError(err, "Order"))
		return
	}

	// 4. --- Notify ---
	h.publish(c.Request.Context(), events.NewOrderEvent(events.TypeOrderCreated, order))

	c.JSON(http.StatusCreated, order)
}

// ListOrders handles GET /api/orders. Non-admins only ever see their own
// orders, whatever they put in the query string.
func (h *Handlers) ListOrders(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()
	page := pageParams(c, defaultListLimit)

	// 1. --- Build filter ---
	var filter models.OrderFilter
	if !user.IsAdmin {
		filter.UserID = &user.ID
	} else {
		filter.Status = strings.TrimSpace(c.Query("status"))

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter.Searched = true
			if oid, err := primitive.ObjectIDFromHex(search); err == nil {
				filter.OrderID = &oid
			}
			ids, err := h.Users.MatchingIDs(ctx, search)
			if err != nil {
				h.respondError(c, storeError(err, "Users"))
				return
			}
			filter.UserIDs = ids
		}
	}

	// 2. --- Query ---
	orders, total, err := h.Orders.List(ctx, filter, page)
	if err != nil {
		h.respondError(c, storeError(err, "Orders"))
		return
	}

	// 3. --- Back-fill customers and missing item images ---
	views, err := h.orderViews(c, orders)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":      views,
		"totalPages":  totalPages(total, page.Limit),
		"currentPage": page.Number,
		"totalOrders": total,
	})
}

func (h *Handlers) orderViews(c *gin.Context, orders []models.Order) ([]OrderView, error) {
	ctx := c.Request.Context()

	var userIDs, productIDs []primitive.ObjectID
	for _, o := range orders {
		userIDs = append(userIDs, o.UserID)
		for _, item := range o.Items {
			if item.Image == "" {
				productIDs = append(productIDs, item.ProductID)
			}
		}
	}

	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, apperr.Internal("Failed to load customers", err)
	}
	products, err := h.Products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, apperr.Internal("Failed to load products", err)
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v := OrderView{Order: o, CustomerName: "Unknown Customer"}
		if u, ok := users[o.UserID]; ok {
			v.CustomerName, v.CustomerEmail, v.CustomerPhone = u.Name, u.Email, u.Number
		}

		items := make([]models.OrderItem, len(o.Items))
		copy(items, o.Items)
		for i := range items {
			if items[i].Image != "" {
				continue
			}
			if p, ok := products[items[i].ProductID]; ok {
				items[i].Image = p.Image
			}
		}
		v.Items = items
		views = append(views, v)
	}
	return views, nil
}

// GetOrder handles GET /api/orders/:id. Other users' orders look missing.
func (h *Handlers) GetOrder(c *gin.Context) {
	user := currentUser(c)

	id, err := objectIDParam(c, "id", "Order")
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.Orders.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, storeError(err, "Order"))
		return
	}
	if !user.IsAdmin && order.UserID != user.ID {
		h.respondError(c, apperr.NotFound("Order not found"))
		return
	}

	views, err := h.orderViews(c, []models.Order{*order})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views[0])
}

// UpdateOrder handles PATCH and PUT /api/orders/:id (admin).
// Items, total and owner are never editable.
func (h *Handlers) UpdateOrder(c *gin.Context) {
	id, err := objectIDParam(c, "id", "Order")
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 1. --- Bind and validate ---
	var input UpdateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.Validation("Invalid order update", err.Error()))
		return
	}
	if input.Status != nil && !models.ValidOrderStatus(*input.Status) {
		h.respondError(c, apperr.Validation("Invalid status", *input.Status))
		return
	}

	// 2. --- Load current state for the status event ---
	ctx := c.Request.Context()
	before, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		h.respondError(c, storeError(err, "Order"))
		return
	}

	// 3. --- Apply ---
	updated, err := h.Orders.Update(ctx, id, models.OrderUpdate{
		Status:          input.Status,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentDetails:  input.PaymentDetails,
	})
	if err != nil {
		h.respondError(c, storeError(err, "Order"))
		return
	}

	if updated.Status != before.Status {
		e := events.NewOrderEvent(events.TypeOrderStatusChanged, updated)
		e.PreviousStatus = before.Status
		h.publish(ctx, e)
	}

	c.JSON(http.StatusOK, updated)
}
