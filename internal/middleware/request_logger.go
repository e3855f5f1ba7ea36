package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const actionKey = "action"

// SetAction names the business action a request performs so RequestLogger
// can report it.
func SetAction(c *fiber.Ctx, action string) {
	c.Locals(actionKey, action)
}

// RequestLogger logs every mutating request with its outcome. Reads are left
// to the access log.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead || c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if userID := CurrentUserID(c); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		msg := "Request handled"
		if action, ok := c.Locals(actionKey).(string); ok && action != "" {
			msg = action
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error(msg, fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warn(msg, fields...)
		default:
			logger.Info(msg, fields...)
		}
		return err
	}
}
