package apps

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/dto"
)

// UUIDParam parses a path parameter as a UUID.
func UUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("Invalid " + name)
	}
	return id, nil
}

// UUIDQuery parses an optional query parameter as a UUID. An absent or empty
// parameter yields nil.
func UUIDQuery(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.BadRequest("Invalid " + name)
	}
	return &id, nil
}

// ParseBody decodes the request body into req and validates its struct tags.
// An empty body leaves req untouched before validation.
func ParseBody(c *fiber.Ctx, req interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return apperr.BadRequest("Invalid request body")
		}
	}
	return dto.Validate(req)
}

// StorageFailure maps an object store error to Upstream.
func StorageFailure(err error) error {
	return apperr.Upstream("Storage service unavailable", err)
}
