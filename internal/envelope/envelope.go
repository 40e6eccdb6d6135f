// Package envelope defines the JSON response shape shared by both services.
package envelope

import "github.com/gofiber/fiber/v2"

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   string       `json:"error,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Count   *int         `json:"count,omitempty"`
}

// OK writes a success envelope with the given status and payload.
func OK(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// OKList writes a success envelope for list responses, including a count.
func OKList(c *fiber.Ctx, message string, data any, count int) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
		Count:   &count,
	})
}

// Fail writes a failure envelope carrying a machine-readable error code.
func Fail(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(Response{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// FailValidation writes a 400 envelope with per-field details.
func FailValidation(c *fiber.Ctx, errs []FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

// NotFoundHandler is the catch-all for unknown routes.
func NotFoundHandler(service string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route not found",
			"error":   "NOT_FOUND",
			"service": service,
		})
	}
}

// ErrorHandler keeps unexpected fiber errors inside the envelope instead of
// leaking internal messages.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
		message = fe.Message
	}

	return Fail(c, code, message, "INTERNAL_ERROR")
}
