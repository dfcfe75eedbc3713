package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddlewareWritesJSONEntry(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "requests.log")
	app := fiber.New()
	app.Use(LoggingMiddleware(LogConfig{
		File:        true,
		LogFilePath: logPath,
		Format:      "json",
		SkipPaths:   []string{"/health"},
	}))
	app.Get("/records", func(c *fiber.Ctx) error { return c.SendString("[]") })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("up") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/records", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Skipped paths leave no trace
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry LogData
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, http.MethodGet, entry.Method)
	assert.Equal(t, "/records", entry.Path)
	assert.Equal(t, fiber.StatusOK, entry.Status)
}

func TestErrorLoggerPassesResponsesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}

func TestVerifyRejectsMissingCookie(t *testing.T) {
	app := fiber.New()
	app.Get("/secure", Verify(1), func(c *fiber.Ctx) error { return c.SendString("in") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	app := fiber.New()
	app.Get("/secure", Verify(1), func(c *fiber.Ctx) error { return c.SendString("in") })

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "not-a-token"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
