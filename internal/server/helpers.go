package server

import (
	"strconv"

	"postboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts the :id route parameter as a positive integer.
func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid ID")
	}
	return id, nil
}

// parseOffset reads the offset query parameter. Absent or empty means 0.
func parseOffset(c *fiber.Ctx) (int, error) {
	raw := c.Query("offset")
	if raw == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, models.NewValidationError("offset must be a non-negative integer")
	}
	return offset, nil
}
