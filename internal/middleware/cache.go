package middleware

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

func cacheKey(c *fiber.Ctx) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + string(c.Request().URI().QueryString())))
	return fmt.Sprintf("cache:%x", sum[:])
}

// encodeCached packs [4 bytes status][4 bytes content type length][content type][body].
func encodeCached(status int, contentType string, body []byte) []byte {
	out := make([]byte, 8+len(contentType)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(contentType)))
	copy(out[8:], contentType)
	copy(out[8+len(contentType):], body)
	return out
}

func decodeCached(bs []byte) (status int, contentType string, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, "", nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	n := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+n > len(bs) {
		return 0, "", nil, false
	}
	return status, string(bs[8 : 8+n]), bs[8+n:], true
}

// NewCache serves GET responses from Redis for ttl. Only 200 responses are stored.
// A nil client or a Redis failure falls through to the handler.
func NewCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) fiber.Handler {
	if rdb == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		key := cacheKey(c)

		if bs, err := rdb.Get(c.UserContext(), key).Bytes(); err == nil {
			if status, ct, body, ok := decodeCached(bs); ok {
				c.Set("X-Cache", "HIT")
				c.Set(fiber.HeaderContentType, ct)
				return c.Status(status).Send(body)
			}
		} else if err != redis.Nil {
			log.Warn("response cache unavailable", "err", err)
			return c.Next()
		}

		c.Set("X-Cache", "MISS")
		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() == fiber.StatusOK {
			payload := encodeCached(fiber.StatusOK, string(c.Response().Header.ContentType()), c.Response().Body())
			if err := rdb.SetEx(context.Background(), key, payload, ttl).Err(); err != nil {
				log.Warn("response cache write failed", "err", err)
			}
		}
		return nil
	}
}
