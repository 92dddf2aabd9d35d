package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskboard/models"
	"taskboard/utils"
)

func newApp() *fiber.App {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log.WithField("component", "test"))})
}

func call(t *testing.T, app *fiber.App, method, path string, header map[string]string) (int, ErrorResponse, http.Header) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ErrorResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return resp.StatusCode, body, resp.Header
}

func TestErrorHandlerMapping(t *testing.T) {
	app := newApp()
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return utils.FieldConflicts(map[string]string{"email": "email already registered"})
	})
	app.Get("/unconfirmed", func(c *fiber.Ctx) error {
		return utils.Forbidden("email not confirmed").WithCode(utils.CodeEmailNotConfirmed)
	})
	app.Get("/invalid", func(c *fiber.Ctx) error {
		return utils.Invalid(utils.FieldError{Field: "name", Message: "name is required"})
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusMethodNotAllowed, "nope")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("db exploded")
	})

	status, body, _ := call(t, app, fiber.MethodGet, "/conflict", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already registered", body.Conflicts["email"])

	status, body, _ = call(t, app, fiber.MethodGet, "/unconfirmed", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, utils.CodeEmailNotConfirmed, body.Code)

	status, body, _ = call(t, app, fiber.MethodGet, "/invalid", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "name", body.Details[0].Field)

	status, body, _ = call(t, app, fiber.MethodGet, "/fiber", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "nope", body.Error)

	status, body, _ = call(t, app, fiber.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Error)
}

func TestRequireRoles(t *testing.T) {
	app := newApp()
	asRole := func(role models.Role) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if role != "" {
				c.Locals(LocalPrincipal, models.Principal{ID: 1, Role: role})
			}
			return c.Next()
		}
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	gate := RequireRoles(models.RoleAdmin, models.RoleManager)

	app.Get("/admin", asRole(models.RoleAdmin), gate, ok)
	app.Get("/manager", asRole(models.RoleManager), gate, ok)
	app.Get("/employee", asRole(models.RoleEmployee), gate, ok)
	app.Get("/anonymous", asRole(""), gate, ok)

	for path, want := range map[string]int{
		"/admin":     http.StatusOK,
		"/manager":   http.StatusOK,
		"/employee":  http.StatusForbidden,
		"/anonymous": http.StatusUnauthorized,
	} {
		status, _, _ := call(t, app, fiber.MethodGet, path, nil)
		assert.Equal(t, want, status, path)
	}
}

func TestProtectedRejectsBadHeaders(t *testing.T) {
	app := newApp()
	app.Get("/", Protected(nil), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, header := range []string{"", "Token abc", "Bearer", "Bearer not-a-jwt"} {
		h := map[string]string{}
		if header != "" {
			h[fiber.HeaderAuthorization] = header
		}
		status, body, _ := call(t, app, fiber.MethodGet, "/", h)
		assert.Equal(t, http.StatusUnauthorized, status, header)
		assert.NotEmpty(t, body.Error)
	}
}

func TestCORS(t *testing.T) {
	app := newApp()
	app.Use(CORS([]string{"http://allowed.test"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	status, _, header := call(t, app, fiber.MethodOptions, "/", map[string]string{
		fiber.HeaderOrigin:                     "http://allowed.test",
		fiber.HeaderAccessControlRequestMethod: fiber.MethodPut,
	})
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, "http://allowed.test", header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", header.Get(fiber.HeaderAccessControlAllowCredentials))
	assert.Equal(t, "3600", header.Get(fiber.HeaderAccessControlMaxAge))

	_, _, header = call(t, app, fiber.MethodGet, "/", map[string]string{fiber.HeaderOrigin: "http://evil.test"})
	assert.Empty(t, header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	app := newApp()
	app.Use(CORS([]string{"http://a.test", "*"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	_, _, header := call(t, app, fiber.MethodGet, "/", map[string]string{fiber.HeaderOrigin: "http://anything.test"})
	assert.Equal(t, "*", header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Empty(t, header.Get(fiber.HeaderAccessControlAllowCredentials))
}

func TestAuthRateLimiter(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	app := newApp()
	app.Post("/login", AuthRateLimiter(2, nil, log.WithField("component", "test")), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		status, _, _ := call(t, app, fiber.MethodPost, "/login", nil)
		assert.Equal(t, http.StatusOK, status)
	}
	status, body, _ := call(t, app, fiber.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, body.Error)
}
