package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
)

var (
	errInvalidJSON  = apperr.BadRequest("INVALID_JSON", "Invalid JSON in request body")
	errInvalidQuery = apperr.BadRequest("VALIDATION_ERROR", "Invalid query parameters")
)

// bindJSON decodes the body into out. An empty body leaves out untouched.
func bindJSON(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return errInvalidJSON
	}
	return nil
}

func bindQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return errInvalidQuery
	}
	return nil
}

// paramID parses a uuid path parameter. A malformed id can never match, so it is a 404.
func paramID(c *fiber.Ctx, name string, notFound *apperr.Error) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}
