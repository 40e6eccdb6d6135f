package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/taskhub-backend/internal/envelope"
	"github.com/taskhub/taskhub-backend/internal/router"
	"github.com/taskhub/taskhub-backend/internal/storage"
	"github.com/taskhub/taskhub-backend/internal/tasks"
	"github.com/taskhub/taskhub-backend/internal/userclient"
)

const shutdownTimeout = 30 * time.Second

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	userServiceURL := os.Getenv("USER_SERVICE_URL")
	if userServiceURL == "" {
		userServiceURL = "http://localhost:3001"
	}

	ctx := context.Background()
	pool, err := storage.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("error connecting to database: %v", err)
	}

	repo := tasks.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("error preparing schema: %v", err)
	}

	directory := userclient.New(userServiceURL)
	svc := tasks.NewService(repo, directory, func(ctx context.Context) error {
		return storage.Ping(ctx, pool)
	})

	app := fiber.New(fiber.Config{
		AppName:      "task-service",
		ErrorHandler: envelope.ErrorHandler,
	})
	app.Use(router.CorsMiddleware())
	app.Use(router.RequestID())
	app.Use(router.RequestLogger())

	h := tasks.NewHandler(svc)

	app.Get("/health", h.Health)
	app.Get("/", serviceInfo)

	app.Post("/tasks", router.RateLimitWrite(), h.Create)
	app.Get("/tasks", h.List)
	// Registered before /tasks/:id so "stats" is not taken for an id.
	app.Get("/tasks/stats", h.Stats)
	app.Get("/tasks/:id", h.Get)
	app.Put("/tasks/:id", router.RateLimitWrite(), h.Update)
	app.Put("/tasks/:id/status", router.RateLimitWrite(), h.UpdateStatus)

	app.Use(envelope.NotFoundHandler("task-service"))

	port := os.Getenv("PORT")
	if port == "" {
		port = "3002"
	}

	go func() {
		log.Println("Task service listening on port", port)
		log.Println("User service URL:", userServiceURL)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				log.Println("Shutting down HTTP server...")
				return app.ShutdownWithContext(ctx)
			},
			"database": func(ctx context.Context) error {
				pool.Close()
				return nil
			},
		},
	)

	exitCode := <-wait
	log.Printf("Task service exited with code %d", exitCode)
	os.Exit(exitCode)
}

func serviceInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "task-service",
		"version":     "1.0.0",
		"description": "Task registry service with user registry integration",
		"endpoints": []string{
			"GET /health - Health check (includes user-service)",
			"POST /tasks - Create new task",
			"GET /tasks - Get all tasks (optional ?user_id= filter)",
			"GET /tasks/stats - Task statistics",
			"GET /tasks/:id - Get task by ID",
			"PUT /tasks/:id - Update task",
			"PUT /tasks/:id/status - Update task status",
		},
	})
}
