package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/taskhub/taskhub-backend/internal/userclient"
)

// ErrUnknownUser means the user registry answered and the referenced user
// does not exist. Distinct from userclient.ErrUnavailable, where no answer
// came back at all.
var ErrUnknownUser = errors.New("referenced user does not exist")

// Directory is the user-registry surface the service depends on.
type Directory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	Get(ctx context.Context, userID int64) (*userclient.User, error)
	GetMany(ctx context.Context, userIDs []int64) map[int64]*userclient.User
	Health(ctx context.Context) bool
}

// Store is the repository surface the service depends on.
type Store interface {
	Insert(ctx context.Context, title string, description *string, userID int64, status Status) (*Task, error)
	FindAll(ctx context.Context) ([]Task, error)
	FindByUser(ctx context.Context, userID int64) ([]Task, error)
	FindByID(ctx context.Context, id int64) (*Task, error)
	Update(ctx context.Context, id int64, req UpdateTaskRequest) (*Task, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Task, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
}

// Service enforces the cross-service reference on writes and enriches reads
// with best-effort user data.
type Service struct {
	Store Store
	Users Directory
	Ping  func(ctx context.Context) error
}

func NewService(store Store, users Directory, ping func(ctx context.Context) error) *Service {
	return &Service{Store: store, Users: users, Ping: ping}
}

// Create validates the user reference against the registry, then inserts.
// The store is never touched when the check fails or cannot be made.
func (s *Service) Create(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	exists, err := s.Users.Exists(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("verify user %d: %w", req.UserID, err)
	}
	if !exists {
		return nil, ErrUnknownUser
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	return s.Store.Insert(ctx, req.Title, req.Description, req.UserID, status)
}

// List returns tasks, optionally filtered by user, each enriched with its
// owning user. A filter target that does not exist fails the whole read:
// "filter target must exist" is deliberately distinct from "filter target
// has zero tasks".
func (s *Service) List(ctx context.Context, filterUserID *int64) ([]EnrichedTask, error) {
	if filterUserID != nil {
		exists, err := s.Users.Exists(ctx, *filterUserID)
		if err != nil {
			return nil, fmt.Errorf("verify filter user %d: %w", *filterUserID, err)
		}
		if !exists {
			return nil, ErrUnknownUser
		}
		list, err := s.Store.FindByUser(ctx, *filterUserID)
		if err != nil {
			return nil, err
		}
		return s.enrich(ctx, list), nil
	}

	list, err := s.Store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, list), nil
}

// Get returns one task with its user attached, or nil user when the lookup
// fails. Enrichment never fails the read.
func (s *Service) Get(ctx context.Context, id int64) (*EnrichedTask, error) {
	t, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u, err := s.Users.Get(ctx, t.UserID)
	if err != nil {
		log.Printf("[tasks] could not enrich task %d with user %d: %v", t.ID, t.UserID, err)
		u = nil
	}
	return &EnrichedTask{Task: *t, User: u}, nil
}

// Update applies a partial update. The user reference is revalidated only
// when the request actually changes it; all other updates skip the remote
// round-trip entirely.
func (s *Service) Update(ctx context.Context, id int64, req UpdateTaskRequest) (*Task, error) {
	if req.UserID != nil {
		exists, err := s.Users.Exists(ctx, *req.UserID)
		if err != nil {
			return nil, fmt.Errorf("verify user %d: %w", *req.UserID, err)
		}
		if !exists {
			return nil, ErrUnknownUser
		}
	}

	return s.Store.Update(ctx, id, req)
}

// UpdateStatus changes only the status field, re-stamping updated_at.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Task, error) {
	return s.Store.UpdateStatus(ctx, id, status)
}

// Stats runs the three per-status counts concurrently.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var pending, inProgress, completed int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pending, err = s.Store.CountByStatus(gctx, StatusPending)
		return err
	})
	g.Go(func() (err error) {
		inProgress, err = s.Store.CountByStatus(gctx, StatusInProgress)
		return err
	})
	g.Go(func() (err error) {
		completed, err = s.Store.CountByStatus(gctx, StatusCompleted)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := pending + inProgress + completed
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(completed)/float64(total)*100*100) / 100
	}

	return &Stats{
		Total: total,
		ByStatus: StatusCounts{
			Pending:    pending,
			InProgress: inProgress,
			Completed:  completed,
		},
		CompletionRate: rate,
	}, nil
}

// HealthStatus is the composite health of the task service.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// Health rolls the dependency's health into the service's own signal.
// An unreachable store wins over everything; a reachable store with a sick
// dependency is degraded, not broken.
func (s *Service) Health(ctx context.Context) HealthStatus {
	if err := s.Ping(ctx); err != nil {
		log.Printf("[tasks] store health check failed: %v", err)
		return Unhealthy
	}

	if !s.Users.Health(ctx) {
		return Degraded
	}
	return Healthy
}

func (s *Service) enrich(ctx context.Context, list []Task) []EnrichedTask {
	out := make([]EnrichedTask, 0, len(list))
	if len(list) == 0 {
		return out
	}

	ids := make([]int64, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.UserID)
	}
	// One bulk fetch for the whole page instead of a round-trip per task.
	users := s.Users.GetMany(ctx, ids)

	for _, t := range list {
		out = append(out, EnrichedTask{Task: t, User: users[t.UserID]})
	}
	return out
}
