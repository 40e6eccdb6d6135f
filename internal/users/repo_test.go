package users

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return repo
}

func TestRepositoryInsert(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, "Ana", "a@x.com")
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Errorf("created = %+v, want assigned id and timestamp", created)
	}

	t.Run("duplicate email", func(t *testing.T) {
		if _, err := repo.Insert(ctx, "Other", "a@x.com"); !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("Insert() error = %v, want ErrDuplicateEmail", err)
		}
	})
}

func TestRepositoryExists(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, "Ana", "a@x.com")
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	exists, err := repo.Exists(ctx, created.ID)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false for a stored user")
	}

	exists, err = repo.Exists(ctx, 9999)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for an unknown id")
	}
}

func TestRepositoryFind(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, "Ana", "a@x.com"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := repo.Insert(ctx, "Bob", "b@x.com"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len = %d, want 2", len(all))
	}

	if _, err := repo.FindByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID(9999) error = %v, want ErrNotFound", err)
	}
}
