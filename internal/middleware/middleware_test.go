package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/store"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubAuth struct {
	token string
	user  *models.User
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, *utils.Claims, error) {
	if token == "" {
		return nil, nil, apperr.Unauthorized("TOKEN_REQUIRED", "Access token required")
	}
	if token != s.token {
		return nil, nil, apperr.Unauthorized("INVALID_TOKEN", "Invalid token")
	}
	return s.user, &utils.Claims{UserID: s.user.ID.String()}, nil
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(discard, false)})
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// unreachableRedis fails every command quickly.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(BearerToken(c)) })

	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"":            "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, want, string(body), header)
	}
}

func TestAuthenticate(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleFreelancer}
	app := newApp()
	app.Get("/me", Authenticate(stubAuth{token: "good", user: user}), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).ID.String() + "|" + CurrentClaims(c).UserID)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_REQUIRED", decode(t, resp)["code"])

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bad")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "INVALID_TOKEN", decode(t, resp)["code"])

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, user.ID.String()+"|"+user.ID.String(), string(body))
}

func TestOptionalAuthenticate_NeverRejects(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	app := newApp()
	app.Get("/", OptionalAuthenticate(stubAuth{token: "good", user: user}), func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return c.SendString("anonymous")
		}
		return c.SendString("user")
	})

	for header, want := range map[string]string{"": "anonymous", "Bearer bad": "anonymous", "Bearer good": "user"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, want, string(body))
	}
}

func TestRequireRoles(t *testing.T) {
	freelancer := &models.User{ID: uuid.New(), Role: models.RoleFreelancer}
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}

	run := func(u *models.User) *http.Response {
		app := newApp()
		app.Get("/", func(c *fiber.Ctx) error {
			if u != nil {
				setIdentity(c, u, &utils.Claims{})
			}
			return c.Next()
		}, RequireRoles(models.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		return resp
	}

	resp := run(nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = run(freelancer)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", decode(t, resp)["code"])

	resp = run(admin)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRateLimiter_PassThrough(t *testing.T) {
	for name, h := range map[string]fiber.Handler{
		"disabled":   NewRateLimiter(AuthLimit, unreachableRedis(), false, discard),
		"nil client": NewRateLimiter(AuthLimit, nil, true, discard),
		"redis down": NewRateLimiter(AuthLimit, unreachableRedis(), true, discard),
	} {
		app := newApp()
		app.Get("/", h, func(c *fiber.Ctx) error { return c.SendString("ok") })
		for i := 0; i < AuthLimit.Max+2; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode, name)
		}
	}
}

func TestRateLimitPresets(t *testing.T) {
	assert.Equal(t, 100, GeneralLimit.Max)
	assert.Equal(t, 15*time.Minute, GeneralLimit.Window)
	assert.Equal(t, 10, AuthLimit.Max)
	assert.Equal(t, 5, LeadLimit.Max)
	assert.Equal(t, time.Hour, LeadLimit.Window)
	assert.Equal(t, 30, SearchLimit.Max)
	assert.Equal(t, "SEARCH_RATE_LIMIT_EXCEEDED", SearchLimit.Code)
	assert.Equal(t, "ratelimit:lead:10.0.0.1", rateKey(LeadLimit, "10.0.0.1"))
	assert.Equal(t, LeadLimit.Max, TestimonialLimit.Max)
	assert.NotEqual(t, rateKey(LeadLimit, "10.0.0.1"), rateKey(TestimonialLimit, "10.0.0.1"))
}

func TestCache_FailsOpen(t *testing.T) {
	calls := 0
	app := newApp()
	app.Get("/featured", NewCache(unreachableRedis(), time.Minute, discard), func(c *fiber.Ctx) error {
		calls++
		return c.JSON(fiber.Map{"ok": true})
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/featured", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 2, calls)
}

func TestCachedPayloadRoundTrip(t *testing.T) {
	raw := encodeCached(http.StatusOK, "application/json", []byte(`{"a":1}`))
	status, ct, body, ok := decodeCached(raw)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", ct)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodeCached([]byte{0, 1})
	assert.False(t, ok)
}

func TestErrorHandler(t *testing.T) {
	app := newApp()
	app.Get("/app", func(c *fiber.Ctx) error {
		return apperr.Validation([]string{"name"})
	})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.ErrMethodNotAllowed })
	app.Get("/missing", func(c *fiber.Ctx) error { return store.ErrNotFound })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded") })
	app.Post("/json", func(c *fiber.Ctx) error {
		var v map[string]any
		return c.BodyParser(&v)
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.NotNil(t, body["details"])

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/fiber", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decode(t, resp)["code"])

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, resp)["code"])

	req := httptest.NewRequest(http.MethodPost, "/json", strings.NewReader(`{"broken":`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_JSON", decode(t, resp)["code"])
}

func TestErrorHandler_HidesInternalsInProduction(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(discard, true)})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("password=hunter2") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, "Internal server error", decode(t, resp)["error"])
}

func TestNotFound(t *testing.T) {
	app := newApp()
	app.Use(NotFound)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "/api/nope", body["path"])
	assert.Equal(t, "DELETE", body["method"])
}

func TestRequestLoggerAndMetrics_PropagateErrors(t *testing.T) {
	app := newApp()
	app.Use(RequestLogger(discard), Metrics())
	app.Get("/x/:id", func(c *fiber.Ctx) error { return apperr.NotFound("LEAD_NOT_FOUND", "Lead not found") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "LEAD_NOT_FOUND", decode(t, resp)["code"])
}
