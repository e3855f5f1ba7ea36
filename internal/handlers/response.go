package handlers

import (
	"errors"

	"shopfront/internal/models"
	"shopfront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusFor maps service sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidSize),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrConflict):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrSizeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// respondError writes the failure envelope for err. Client errors expose the
// error text; server errors only expose message.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error, message string) error {
	status := statusFor(err)
	body := models.Response{Success: false, Message: message}

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Message = verr.Message
		body.Errors = verr.Fields
	case status < fiber.StatusInternalServerError:
		body.Error = err.Error()
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error(message,
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	} else {
		logger.Debug(message, zap.Int("status", status), zap.Error(err))
	}
	return c.Status(status).JSON(body)
}

func respondOK(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(models.Response{Success: true, Message: message, Data: data})
}

// badBody answers requests whose JSON could not be parsed.
func badBody(c *fiber.Ctx, logger *zap.Logger, err error) error {
	logger.Debug("Error parsing request body", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(models.Response{
		Success: false,
		Message: "Invalid request body",
		Error:   err.Error(),
	})
}
