package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
)

// RateLimit is a fixed window of Max requests per Window and client IP.
type RateLimit struct {
	Name    string
	Max     int
	Window  time.Duration
	Code    string
	Message string
}

var (
	GeneralLimit = RateLimit{Name: "general", Max: 100, Window: 15 * time.Minute, Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests from this IP"}
	AuthLimit    = RateLimit{Name: "auth", Max: 10, Window: 15 * time.Minute, Code: "AUTH_RATE_LIMIT_EXCEEDED", Message: "Too many authentication attempts"}
	LeadLimit    = RateLimit{Name: "lead", Max: 5, Window: time.Hour, Code: "LEAD_RATE_LIMIT_EXCEEDED", Message: "Too many contact requests"}
	SearchLimit  = RateLimit{Name: "search", Max: 30, Window: time.Minute, Code: "SEARCH_RATE_LIMIT_EXCEEDED", Message: "Too many search requests"}

	// TestimonialLimit counts separately from LeadLimit with the same budget.
	TestimonialLimit = RateLimit{Name: "testimonial", Max: 5, Window: time.Hour, Code: "TESTIMONIAL_RATE_LIMIT_EXCEEDED", Message: "Too many testimonials submitted"}
)

// INCR the window counter and arm its expiry on the first hit. Returns {count, pttl}.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

func rateKey(limit RateLimit, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", limit.Name, ip)
}

// NewRateLimiter passes every request through when disabled or when rdb is nil.
// Redis failures are logged and the request is let through.
func NewRateLimiter(limit RateLimit, rdb *redis.Client, enabled bool, log *slog.Logger) fiber.Handler {
	if !enabled || rdb == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		key := rateKey(limit, c.IP())
		vals, err := fixedWindow.Run(c.UserContext(), rdb, []string{key}, limit.Window.Milliseconds()).Int64Slice()
		if err != nil || len(vals) != 2 {
			log.Warn("rate limiter unavailable", "limiter", limit.Name, "err", err)
			return c.Next()
		}
		count, ttlMs := vals[0], vals[1]

		remaining := int64(limit.Max) - count
		if remaining < 0 {
			remaining = 0
		}
		resetSecs := int(math.Ceil(float64(ttlMs) / 1000.0))

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit.Max))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.Itoa(resetSecs))

		if count > int64(limit.Max) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resetSecs))
			return apperr.TooManyRequests(limit.Code, limit.Message).
				WithDetails(fiber.Map{"retryAfter": int(limit.Window / time.Second)})
		}
		return c.Next()
	}
}
