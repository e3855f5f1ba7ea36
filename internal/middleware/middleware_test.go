package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopfront/internal/middleware"
	"shopfront/internal/repositories"
	"shopfront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New()
	app.Use(middleware.RequestLogger(zap.New(core)))
	app.Get("/items", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/items", func(c *fiber.Ctx) error {
		middleware.SetAction(c, "Added a product")
		return c.SendStatus(fiber.StatusCreated)
	})
	app.Delete("/items", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		resp, err := app.Test(httptest.NewRequest(method, "/items", nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	entries := logs.All()
	require.Len(t, entries, 2, "GET requests are not logged")

	assert.Equal(t, "Added a product", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.EqualValues(t, fiber.StatusCreated, entries[0].ContextMap()["status"])

	assert.Equal(t, "Request handled", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestAuthRequired(t *testing.T) {
	auth := services.NewAuthService(repositories.NewMemoryUserRepository(), "secret", time.Hour, time.Second)
	other := services.NewAuthService(repositories.NewMemoryUserRepository(), "other-secret", time.Hour, time.Second)

	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(auth, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendString(middleware.CurrentUserID(c))
	})

	user, token, err := auth.RegisterUser(t.Context(), services.RegisterInput{
		FullName: "Jo", Email: "jo@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	_, foreign, err := other.RegisterUser(t.Context(), services.RegisterInput{
		FullName: "Jo", Email: "jo@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, fiber.StatusUnauthorized},
		{"empty token", "Bearer ", fiber.StatusUnauthorized},
		{"other signing key", "Bearer " + foreign, fiber.StatusUnauthorized},
		{"valid", "Bearer " + token, fiber.StatusOK},
		{"lowercase scheme", "bearer " + token, fiber.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
			if tc.want == fiber.StatusOK {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, user.ID, string(body))
			}
		})
	}
}
