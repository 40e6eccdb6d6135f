package tasks

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/taskhub-backend/internal/envelope"
	"github.com/taskhub/taskhub-backend/internal/userclient"
	"github.com/taskhub/taskhub-backend/internal/validate"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// Create handles POST /tasks.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_BODY")
	}
	req.Title = strings.TrimSpace(req.Title)

	if errs := validate.Struct(req); errs != nil {
		return envelope.FailValidation(c, errs)
	}

	t, err := h.Service.Create(c.UserContext(), req)
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}

	return envelope.OK(c, fiber.StatusCreated, "Task created successfully", t)
}

// List handles GET /tasks with an optional user_id filter.
func (h *Handler) List(c *fiber.Ctx) error {
	var filter *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return envelope.Fail(c, fiber.StatusBadRequest, "Invalid user_id in query. Must be a positive integer.", "INVALID_ID")
		}
		filter = &id
	}

	list, err := h.Service.List(c.UserContext(), filter)
	if err != nil {
		// A filter target that does not exist is a 404 here, not a
		// rejected write.
		return writeError(c, err, fiber.StatusNotFound)
	}

	return envelope.OKList(c, "Tasks retrieved successfully", list, len(list))
}

// Get handles GET /tasks/:id.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid task ID. Must be a positive integer.", "INVALID_ID")
	}

	t, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}

	return envelope.OK(c, fiber.StatusOK, "Task retrieved successfully", t)
}

// Update handles PUT /tasks/:id.
func (h *Handler) Update(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid task ID. Must be a positive integer.", "INVALID_ID")
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_BODY")
	}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if req.empty() {
		return envelope.FailValidation(c, []envelope.FieldError{
			{Field: "", Message: "at least one field must be provided"},
		})
	}
	if errs := validate.Struct(req); errs != nil {
		return envelope.FailValidation(c, errs)
	}

	t, err := h.Service.Update(c.UserContext(), id, req)
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}

	return envelope.OK(c, fiber.StatusOK, "Task updated successfully", t)
}

// UpdateStatus handles PUT /tasks/:id/status.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid task ID. Must be a positive integer.", "INVALID_ID")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_BODY")
	}
	if errs := validate.Struct(req); errs != nil {
		return envelope.FailValidation(c, errs)
	}

	t, err := h.Service.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return writeError(c, err, fiber.StatusBadRequest)
	}

	return envelope.OK(c, fiber.StatusOK, "Task status updated successfully", t)
}

// Stats handles GET /tasks/stats.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.Service.Stats(c.UserContext())
	if err != nil {
		log.Printf("[tasks] stats failed: %v", err)
		return envelope.Fail(c, fiber.StatusInternalServerError, "Internal server error", "DATABASE_ERROR")
	}
	return envelope.OK(c, fiber.StatusOK, "Task statistics retrieved successfully", stats)
}

// Health handles GET /health: 200 healthy, 206 degraded, 503 unhealthy.
func (h *Handler) Health(c *fiber.Ctx) error {
	status := h.Service.Health(c.UserContext())

	code := fiber.StatusOK
	database := "connected"
	dependency := "healthy"

	switch status {
	case Degraded:
		code = fiber.StatusPartialContent
		dependency = "unhealthy"
	case Unhealthy:
		code = fiber.StatusServiceUnavailable
		database = "disconnected"
		dependency = "unknown"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"service":   "task-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  database,
		"dependencies": fiber.Map{
			"user_service": dependency,
		},
	})
}

// writeError maps service errors to the envelope. unknownUserStatus is the
// code for ErrUnknownUser on this path: 400 on writes, 404 on filtered reads.
func writeError(c *fiber.Ctx, err error, unknownUserStatus int) error {
	switch {
	case errors.Is(err, ErrUnknownUser):
		if unknownUserStatus == fiber.StatusNotFound {
			return envelope.Fail(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND")
		}
		return envelope.Fail(c, fiber.StatusBadRequest, "User does not exist", "INVALID_USER_ID")
	case errors.Is(err, userclient.ErrUnavailable):
		return envelope.Fail(c, fiber.StatusServiceUnavailable, "User service is not available", "SERVICE_UNAVAILABLE")
	case errors.Is(err, userclient.ErrRemote):
		return envelope.Fail(c, fiber.StatusBadGateway, "User service returned an unexpected response", "UPSTREAM_ERROR")
	case errors.Is(err, ErrNotFound):
		return envelope.Fail(c, fiber.StatusNotFound, "Task not found", "TASK_NOT_FOUND")
	default:
		log.Printf("[tasks] request failed: %v", err)
		return envelope.Fail(c, fiber.StatusInternalServerError, "Internal server error", "DATABASE_ERROR")
	}
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return int64(id), true
}
