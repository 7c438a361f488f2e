package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/store"
)

var errInvalidJSON = apperr.BadRequest("INVALID_JSON", "Invalid JSON in request body")

// resolve maps any error reaching the boundary onto an *apperr.Error.
func resolve(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return apperr.New(fe.Code, apperr.CodeForStatus(fe.Code), fe.Message)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return errInvalidJSON
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("NOT_FOUND", "Resource not found")
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict("DUPLICATE_ERROR", "Resource already exists")
	}
	return apperr.Internal(err)
}

func statusOf(err error) int { return resolve(err).Status }

// ErrorHandler renders {error, code, details?}. In production the message of a 5xx is generic.
func ErrorHandler(log *slog.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		e := resolve(err)

		body := fiber.Map{"error": e.Message, "code": e.Code}
		if e.Details != nil {
			body["details"] = e.Details
		}

		if e.Status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
				"err", err,
			)
			if production {
				body["error"] = "Internal server error"
			} else if e.Err != nil {
				body["error"] = e.Err.Error()
			}
		}
		return c.Status(e.Status).JSON(body)
	}
}

// NotFound is mounted last and answers every unmatched route.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":  "Route not found",
		"code":   "NOT_FOUND",
		"path":   c.Path(),
		"method": c.Method(),
	})
}
