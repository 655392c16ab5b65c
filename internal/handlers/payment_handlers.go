package handlers

import (
	"net/http"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/gin-gonic/gin"
)

//
// --- Payment Gateway Bridge ---
//

// GatewayOrderInput defines the JSON for POST /api/orders/razorpay.
type GatewayOrderInput struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
}

// VerifyPaymentInput is the callback payload the checkout widget returns.
type VerifyPaymentInput struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// CreateGatewayOrder handles POST /api/orders/razorpay. The gateway order is
// returned with the public keyId the checkout widget opens with.
func (h *Handlers) CreateGatewayOrder(c *gin.Context) {
	var input GatewayOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.ErrInvalidAmount)
		return
	}

	order, err := h.Payments.CreateOrder(c.Request.Context(), input.Amount, input.Currency, input.Receipt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	order["keyId"] = h.Payments.KeyID()
	c.JSON(http.StatusOK, order)
}

// VerifyPayment handles POST /api/orders/verify. It only checks the
// signature; the order itself is placed separately by the client.
func (h *Handlers) VerifyPayment(c *gin.Context) {
	var input VerifyPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, apperr.ErrInvalidSignature)
		return
	}

	if err := h.Payments.VerifySignature(input.OrderID, input.PaymentID, input.Signature); err != nil {
		status, body := apperr.Response(err)
		if status >= http.StatusInternalServerError {
			h.respondError(c, err)
			return
		}
		c.JSON(status, gin.H{"message": body.Message, "code": body.Code, "success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment verified successfully", "success": true})
}
