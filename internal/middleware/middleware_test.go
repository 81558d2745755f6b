package middleware

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contextPkg "nuyolo/pkg/context"
)

func newTestLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log
}

func TestRequestID(t *testing.T) {
	m := New(newTestLogger(io.Discard), Config{})
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c) + "|" + contextPkg.GetRequestID(c.UserContext()))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	id := resp.Header.Get(RequestIDKey)
	assert.Len(t, id, 26)
	assert.Equal(t, id+"|"+id, string(body))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, "client-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "client-id", resp.Header.Get(RequestIDKey))
}

func TestRateLimiter(t *testing.T) {
	m := New(newTestLogger(io.Discard), Config{RateLimit: 0.001, Burst: 2})
	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimiterDisabled(t *testing.T) {
	m := New(newTestLogger(io.Discard), Config{})
	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	m := New(newTestLogger(&buf), Config{})
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware(), m.NewLoggingMiddleware())
	app.Post("/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusBadRequest).SendString("bad")
	})

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"token":"abc","model_name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	_, err := app.Test(req)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Client error")
	assert.Contains(t, out, `\"token\":\"[SECRET]\"`)
	assert.NotContains(t, out, "abc")
}

func TestSanitizeRequestBody(t *testing.T) {
	assert.Equal(t, "[multipart/form-data body]", sanitizeRequestBody("multipart/form-data; boundary=x", []byte("...")))
	assert.Equal(t, "[non-JSON body]", sanitizeRequestBody("application/json", []byte("{")))
}
