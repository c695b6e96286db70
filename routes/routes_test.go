package routes

import (
	"io"
	"log"
	"net/http/httptest"
	"testing"

	"multihorizon/auth"
	"multihorizon/client"
	"multihorizon/config"
	"multihorizon/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg, err := config.Parse(map[string]string{})
	require.NoError(t, err)
	quiet := log.New(io.Discard, "", 0)
	h := handlers.New(client.New("http://127.0.0.1:1", client.WithLogger(quiet)), auth.NewMemoryTokenStore(), cfg, handlers.WithLogger(quiet))
	t.Cleanup(h.Close)

	app := fiber.New()
	SetupRoutes(app, h)
	return app
}

func TestSessionRoutesAreGuarded(t *testing.T) {
	app := newApp(t)
	paths := []struct{ method, path string }{
		{"GET", "/api/v1/forecast/session"},
		{"GET", "/api/v1/forecast/regressors"},
		{"PUT", "/api/v1/forecast/horizon"},
		{"POST", "/api/v1/forecast/toggles/holiday/1"},
		{"PUT", "/api/v1/forecast/item"},
		{"POST", "/api/v1/forecast/refresh"},
		{"POST", "/api/v1/forecast/save"},
		{"GET", "/api/v1/forecast/insights"},
		{"POST", "/api/v1/forecast/uploads"},
		{"GET", "/api/v1/forecast/predictions"},
	}
	for _, p := range paths {
		resp, err := app.Test(httptest.NewRequest(p.method, p.path, nil))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode, "%s %s", p.method, p.path)
	}
}

func TestUnknownRouteNotFound(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/merchant/invoices", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestLogoutWithoutSession(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/auth/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
