// Package payment bridges checkout to the Razorpay gateway: it creates
// gateway orders and verifies the signature the gateway hands back to the browser.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "INR"
	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

// orderCreator is the subset of the Razorpay SDK order resource we call.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Gateway is safe for concurrent use.
type Gateway struct {
	keyID  string
	secret string
	orders orderCreator

	attempts int
	backoff  time.Duration
}

// NewGateway returns a gateway. With either credential missing it is
// returned disabled and every call fails with PaymentGatewayUnavailable.
func NewGateway(keyID, secret string) *Gateway {
	g := &Gateway{
		keyID:    keyID,
		secret:   secret,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
	if keyID != "" && secret != "" {
		g.orders = razorpay.NewClient(keyID, secret).Order
	}
	return g
}

func (g *Gateway) Enabled() bool {
	return g != nil && g.orders != nil
}

// KeyID is the public key the browser checkout widget needs.
func (g *Gateway) KeyID() string {
	return g.keyID
}

// ToSubunits converts a rupee amount into paise, rounding half away from zero.
func ToSubunits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// retryable reports whether a failed Create may succeed on another attempt.
// Gateway 4xx answers are final; 5xx answers and transport failures are not.
func retryable(err error) bool {
	var badRequest *rzperrors.BadRequestError
	var signature *rzperrors.SignatureVerificationError
	return !errors.As(err, &badRequest) && !errors.As(err, &signature)
}

// CreateOrder registers an order with the gateway for amount (in major units).
// Server, gateway and transport failures are retried a bounded number of times.
func (g *Gateway) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (map[string]interface{}, error) {
	if !g.Enabled() {
		return nil, apperr.ErrGatewayUnavailable
	}
	if amount <= 0 {
		return nil, apperr.ErrInvalidAmount
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if receipt == "" {
		receipt = "receipt_" + uuid.NewString()
	}

	data := map[string]interface{}{
		"amount":   ToSubunits(amount),
		"currency": currency,
		"receipt":  receipt,
	}

	var lastErr error
	attempt := 0
	for ; attempt < g.attempts; attempt++ {
		if attempt > 0 {
			wait := g.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, apperr.Upstream("Razorpay order creation failed", ctx.Err())
			case <-time.After(wait):
			}
		}

		order, err := g.orders.Create(data, nil)
		if err == nil && order != nil {
			return order, nil
		}
		if err == nil {
			err = fmt.Errorf("empty response from gateway")
		}
		lastErr = err
		if !retryable(err) {
			return nil, apperr.Upstream("Razorpay order creation failed", err)
		}
	}
	return nil, apperr.Upstream("Razorpay order creation failed", fmt.Errorf("after %d attempts: %w", attempt, lastErr))
}

// Signature computes the hex HMAC-SHA256 of "orderID|paymentID".
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a payment callback against the shared secret.
// The comparison is constant time.
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	if g == nil || g.secret == "" {
		return apperr.ErrGatewayUnavailable
	}
	expected := Signature(g.secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperr.ErrInvalidSignature
	}
	return nil
}
