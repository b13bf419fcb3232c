package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"toko-checkout/internal/middleware"
	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware_secret"

// noUsers satisfies repositories.UserRepository; the middleware never reads users.
type noUsers struct{}

func (noUsers) Create(context.Context, *models.User) error { return nil }
func (noUsers) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, errors.New("no users")
}
func (noUsers) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("no users")
}
func (noUsers) GetByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("no users")
}
func (noUsers) SaveAddress(context.Context, *models.SavedAddress) error { return nil }
func (noUsers) ListAddresses(context.Context, string) ([]models.SavedAddress, error) {
	return nil, nil
}

type mapSessions map[string]string

func (m mapSessions) Create(_ context.Context, userID string) (string, error) {
	m["sess-"+userID] = userID
	return "sess-" + userID, nil
}

func (m mapSessions) Lookup(_ context.Context, id string) (string, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return "", errors.New("session not found")
}

func (m mapSessions) Delete(_ context.Context, id string) error {
	delete(m, id)
	return nil
}

func newApp() *fiber.App {
	auth := services.NewAuthService(noUsers{}, secret).WithSessions(mapSessions{"sess-1": "user-9"})
	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(auth, nil), func(c *fiber.Ctx) error {
		return c.SendString(middleware.UserID(c))
	})
	return app
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthRequired(t *testing.T) {
	valid := signed(t, jwt.MapClaims{"user_id": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	expired := signed(t, jwt.MapClaims{"user_id": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
	anonymous := signed(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "bearer token", header: "Bearer " + valid, status: fiber.StatusOK, body: "user-1"},
		{name: "session cookie", cookie: "sess-1", status: fiber.StatusOK, body: "user-9"},
		{name: "nothing", status: fiber.StatusUnauthorized},
		{name: "bad scheme", header: "Token " + valid, status: fiber.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, status: fiber.StatusUnauthorized},
		{name: "token without user", header: "Bearer " + anonymous, status: fiber.StatusUnauthorized},
		{name: "unknown session", cookie: "sess-2", status: fiber.StatusUnauthorized},
	}

	app := newApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tt.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(body))
			}
		})
	}
}
