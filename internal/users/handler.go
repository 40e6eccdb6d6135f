package users

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/taskhub-backend/internal/envelope"
	"github.com/taskhub/taskhub-backend/internal/validate"
)

// Store is the repository surface the handlers need.
type Store interface {
	Insert(ctx context.Context, name, email string) (*User, error)
	FindAll(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type Handler struct {
	Store Store
	Ping  func(ctx context.Context) error
}

func NewHandler(store Store, ping func(ctx context.Context) error) *Handler {
	return &Handler{Store: store, Ping: ping}
}

// Create handles POST /users.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_BODY")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if errs := validate.Struct(req); errs != nil {
		return envelope.FailValidation(c, errs)
	}

	u, err := h.Store.Insert(c.UserContext(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return envelope.Fail(c, fiber.StatusConflict, "Email already exists", "DUPLICATE_EMAIL")
		}
		log.Printf("[users] create failed: %v", err)
		return envelope.Fail(c, fiber.StatusInternalServerError, "Internal server error", "DATABASE_ERROR")
	}

	return envelope.OK(c, fiber.StatusCreated, "User created successfully", u)
}

// List handles GET /users.
func (h *Handler) List(c *fiber.Ctx) error {
	list, err := h.Store.FindAll(c.UserContext())
	if err != nil {
		log.Printf("[users] list failed: %v", err)
		return envelope.Fail(c, fiber.StatusInternalServerError, "Internal server error", "DATABASE_ERROR")
	}
	if list == nil {
		list = []User{}
	}
	return envelope.OKList(c, "Users retrieved successfully", list, len(list))
}

// GetByID handles GET /users/:id.
func (h *Handler) GetByID(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid user ID. Must be a positive integer.", "INVALID_ID")
	}

	u, err := h.Store.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return envelope.Fail(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND")
		}
		log.Printf("[users] get %d failed: %v", id, err)
		return envelope.Fail(c, fiber.StatusInternalServerError, "Internal server error", "DATABASE_ERROR")
	}

	return envelope.OK(c, fiber.StatusOK, "User retrieved successfully", u)
}

// CheckExists handles GET /users/:id/exists, the internal surface the task
// service calls before accepting a task write.
func (h *Handler) CheckExists(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return envelope.Fail(c, fiber.StatusBadRequest, "Invalid user ID. Must be a positive integer.", "INVALID_ID")
	}

	exists, err := h.Store.Exists(c.UserContext(), id)
	if err != nil {
		log.Printf("[users] exists %d failed: %v", id, err)
		return envelope.Fail(c, fiber.StatusInternalServerError, "Internal server error", "DATABASE_ERROR")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"exists":  exists,
		"user_id": id,
	})
}

// Health handles GET /health with a store round-trip.
func (h *Handler) Health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"status":    "healthy",
		"service":   "user-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  "connected",
	}

	if err := h.Ping(c.UserContext()); err != nil {
		log.Printf("[users] health check failed: %v", err)
		status = fiber.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "disconnected"
	}

	return c.Status(status).JSON(body)
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return int64(id), true
}
