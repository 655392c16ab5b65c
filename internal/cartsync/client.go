package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/01moynul/refuel-storefront/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Remote is the server side of the cart and wishlist.
type Remote interface {
	FetchCart(ctx context.Context, token string) (models.Cart, error)
	FetchWishlist(ctx context.Context, token string) (models.Wishlist, error)
	ReplaceCart(ctx context.Context, token string, cart models.Cart) error
	ReplaceWishlist(ctx context.Context, token string, wishlist models.Wishlist) error
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

// APIClient talks to the storefront REST API.
type APIClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *APIClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var eb struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(res.Body).Decode(&eb)
		return &StatusError{StatusCode: res.StatusCode, Message: eb.Message}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// populated entries carry the whole product under "productId"; only its id matters here.
type populatedRef struct {
	ID primitive.ObjectID `json:"id"`
}

type populatedCartLine struct {
	Product  populatedRef `json:"productId"`
	Quantity int          `json:"quantity"`
}

type populatedWishLine struct {
	Product populatedRef `json:"productId"`
}

func (c *APIClient) FetchCart(ctx context.Context, token string) (models.Cart, error) {
	var lines []populatedCartLine
	if err := c.do(ctx, http.MethodGet, "/api/cart", token, nil, &lines); err != nil {
		return nil, err
	}
	cart := make(models.Cart, 0, len(lines))
	for _, l := range lines {
		cart = cart.Add(l.Product.ID, l.Quantity)
	}
	return cart, nil
}

func (c *APIClient) FetchWishlist(ctx context.Context, token string) (models.Wishlist, error) {
	var lines []populatedWishLine
	if err := c.do(ctx, http.MethodGet, "/api/wishlist", token, nil, &lines); err != nil {
		return nil, err
	}
	w := make(models.Wishlist, 0, len(lines))
	for _, l := range lines {
		w, _ = w.Add(l.Product.ID)
	}
	return w, nil
}

func (c *APIClient) ReplaceCart(ctx context.Context, token string, cart models.Cart) error {
	entries := make([]models.CartEntryInput, 0, len(cart))
	for _, item := range cart {
		entries = append(entries, models.CartEntryInput{ProductID: item.ProductID.Hex(), Quantity: item.Quantity})
	}
	return c.do(ctx, http.MethodPut, "/api/cart", token, map[string]interface{}{"cart": entries}, nil)
}

func (c *APIClient) ReplaceWishlist(ctx context.Context, token string, wishlist models.Wishlist) error {
	entries := make([]models.WishlistEntryInput, 0, len(wishlist))
	for _, item := range wishlist {
		entries = append(entries, models.WishlistEntryInput{ProductID: item.ProductID.Hex()})
	}
	return c.do(ctx, http.MethodPut, "/api/wishlist", token, map[string]interface{}{"wishlist": entries}, nil)
}
