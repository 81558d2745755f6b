package handlerUtil

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nuyolo/pkg/response"
)

func newTestApp(err error) *fiber.App {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := New(log)

	app := fiber.New()
	app.Get("/*", func(c *fiber.Ctx) error {
		return h.Handle(c, "req-1", err, c.Path(), "test")
	})
	return app
}

func TestHandleJSON(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"response error", response.Wrap(response.NewError(404, "no results for tag"), "abc"), 404, "no results for tag: abc"},
		{"deadline", context.DeadlineExceeded, 504, "Gateway Timeout"},
		{"unexpected", errors.New("disk on fire"), 500, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.err)
			resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/inferences/abc", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.msg, body.Error)
			assert.Equal(t, "req-1", body.RequestID)
		})
	}
}

func TestWantsHTML(t *testing.T) {
	app := fiber.New()
	app.Get("/*", func(c *fiber.Ctx) error {
		if WantsHTML(c) {
			return c.SendString("html")
		}
		return c.SendString("json")
	})

	check := func(path, accept, want string) {
		req := httptest.NewRequest("GET", path, nil)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, want, string(body), "%s %s", path, accept)
	}

	check("/inference", "text/html,application/xhtml+xml,*/*;q=0.8", "html")
	check("/inference", "", "json")
	check("/api/v1/inferences", "text/html", "json")
	check("/download", "application/json", "json")
}
