package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestRepo connects to TEST_DATABASE_URL and starts from an empty table.
// The suite is skipped when no test database is configured.
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
	if _, err := pool.Exec(ctx, `TRUNCATE tasks RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return repo
}

func TestRepositoryInsertAndFind(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	desc := "a description"
	created, err := repo.Insert(ctx, "Write docs", &desc, 1, StatusPending)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("expected an assigned id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected assigned timestamps")
	}

	found, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.Title != "Write docs" || found.UserID != 1 {
		t.Errorf("found = %+v", found)
	}

	if _, err := repo.FindByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID(9999) error = %v, want ErrNotFound", err)
	}
}

func TestRepositoryUpdate(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, "Initial", nil, 1, StatusPending)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		title := "Renamed"
		updated, err := repo.Update(ctx, created.ID, UpdateTaskRequest{Title: &title})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.Title != "Renamed" {
			t.Errorf("title = %q", updated.Title)
		}
		if updated.UserID != 1 || updated.Status != StatusPending {
			t.Errorf("untouched fields changed: %+v", updated)
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Error("created_at changed on update")
		}
		if !updated.UpdatedAt.After(created.UpdatedAt) {
			t.Error("updated_at not re-stamped")
		}
	})

	t.Run("zero rows means not found", func(t *testing.T) {
		title := "whatever"
		if _, err := repo.Update(ctx, 9999, UpdateTaskRequest{Title: &title}); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update(9999) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("status only", func(t *testing.T) {
		updated, err := repo.UpdateStatus(ctx, created.ID, StatusCompleted)
		if err != nil {
			t.Fatalf("UpdateStatus() error = %v", err)
		}
		if updated.Status != StatusCompleted {
			t.Errorf("status = %q, want completed", updated.Status)
		}
	})
}

func TestRepositoryCounts(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for i, status := range []Status{StatusPending, StatusPending, StatusCompleted} {
		if _, err := repo.Insert(ctx, fmt.Sprintf("task %d", i), nil, 1, status); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	pending, err := repo.CountByStatus(ctx, StatusPending)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if pending != 2 {
		t.Errorf("pending = %d, want 2", pending)
	}

	inProgress, err := repo.CountByStatus(ctx, StatusInProgress)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if inProgress != 0 {
		t.Errorf("in_progress = %d, want 0", inProgress)
	}
}
