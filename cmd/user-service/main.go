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
	"github.com/taskhub/taskhub-backend/internal/users"
)

const shutdownTimeout = 30 * time.Second

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := storage.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("error connecting to database: %v", err)
	}

	repo := users.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("error preparing schema: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "user-service",
		ErrorHandler: envelope.ErrorHandler,
	})
	app.Use(router.CorsMiddleware())
	app.Use(router.RequestID())
	app.Use(router.RequestLogger())

	h := users.NewHandler(repo, func(ctx context.Context) error {
		return storage.Ping(ctx, pool)
	})

	app.Get("/health", h.Health)
	app.Get("/", serviceInfo)

	app.Post("/users", router.RateLimitWrite(), h.Create)
	app.Get("/users", h.List)
	app.Get("/users/:id", h.GetByID)
	app.Get("/users/:id/exists", h.CheckExists)

	app.Use(envelope.NotFoundHandler("user-service"))

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	go func() {
		log.Println("User service listening on port", port)
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
	log.Printf("User service exited with code %d", exitCode)
	os.Exit(exitCode)
}

func serviceInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "user-service",
		"version":     "1.0.0",
		"description": "User registry service",
		"endpoints": []string{
			"GET /health - Health check",
			"GET /users - Get all users",
			"POST /users - Create new user",
			"GET /users/:id - Get user by ID",
			"GET /users/:id/exists - Check if user exists",
		},
	})
}
