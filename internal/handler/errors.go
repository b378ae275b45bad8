package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/docintel/internal/port"
	"github.com/arturoeanton/docintel/internal/service"
)

// statusFor maps service and port errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, port.ErrJobNotFound),
		errors.Is(err, port.ErrBatchNotFound),
		errors.Is(err, port.ErrDocumentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrJobNotCancellable):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, service.ErrNoFiles),
		errors.Is(err, port.ErrUnsupportedMIME),
		errors.As(err, &verrs):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrQueueClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

// queryInt reads an integer query param with a default value.
func queryInt(c fiber.Ctx, key string, defaultVal int) int {
	v := c.Query(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampLimit keeps search limits within [1, max].
func clampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
