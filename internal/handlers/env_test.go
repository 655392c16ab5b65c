package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/01moynul/refuel-storefront/internal/auth"
	"github.com/01moynul/refuel-storefront/internal/handlers"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/01moynul/refuel-storefront/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	gatewayKeyID  = "rzp_test_key"
	gatewaySecret = "rzp_secret_test"
)

type testEnv struct {
	router   *gin.Engine
	users    *memUsers
	products *memProducts
	orders   *memOrders
	events   *recordingPublisher
	gateway  *fakeGateway
	tokens   *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		users:    newMemUsers(),
		products: newMemProducts(),
		orders:   &memOrders{},
		events:   &recordingPublisher{},
		gateway:  newFakeGateway(gatewaySecret),
		tokens:   auth.NewTokenManager("handlers-test-secret"),
	}

	h := &handlers.Handlers{
		Users:     env.users,
		Products:  env.products,
		Orders:    env.orders,
		Tokens:    env.tokens,
		Payments:  env.gateway,
		Events:    env.events,
		Logger:    zerolog.Nop(),
		UploadDir: t.TempDir(),
		BaseURL:   "http://api.test",
	}
	env.router = routes.SetupRouter(h, routes.Deps{Tokens: env.tokens, Logger: zerolog.Nop()})
	return env
}

// seedUser stores a user with password "secret123" and returns it with a valid token.
func (e *testEnv) seedUser(t *testing.T, name, email string, admin bool) (*models.User, string) {
	t.Helper()
	var pw models.Password
	require.NoError(t, pw.Set("secret123"))

	u := &models.User{Name: name, Email: email, Number: "9999999999", IsAdmin: admin, PasswordHash: pw.Hash}
	require.NoError(t, e.users.Insert(context.Background(), u))

	token, err := e.tokens.GenerateToken(u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) seedProduct(t *testing.T, name, category string, price float64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Category: category, Price: price, Stock: 10, Image: "/img/" + name + ".png"}
	require.NoError(t, e.products.Insert(context.Background(), p))
	return p
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
}
