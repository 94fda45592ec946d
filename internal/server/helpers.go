package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseUUID extracts a route parameter by name as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil || id == uuid.Nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+strings.ToUpper(param)))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// viewer returns the authenticated user or nil for anonymous requests.
func viewer(c *fiber.Ctx) *uuid.UUID {
	id, ok := middleware.UserID(c)
	if !ok {
		return nil
	}
	return &id
}

// queryFloat parses an optional float query parameter. A missing parameter
// yields nil.
func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, models.NewValidationError(name + " must be a number")
	}
	return &v, nil
}
