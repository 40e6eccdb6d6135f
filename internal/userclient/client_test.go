package userclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestExists(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr error
	}{
		{"user exists", http.StatusOK, `{"success":true,"exists":true,"user_id":1}`, true, nil},
		{"user missing", http.StatusOK, `{"success":true,"exists":false,"user_id":1}`, false, nil},
		{"remote 404 means no", http.StatusNotFound, `{"success":false}`, false, nil},
		{"remote 500 is a remote error", http.StatusInternalServerError, `{}`, false, ErrRemote},
		{"remote 401 is a remote error", http.StatusUnauthorized, `{}`, false, ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			got, err := c.Exists(context.Background(), 1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Exists() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExistsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	srv.Close()

	_, err := c.Exists(context.Background(), 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Exists() against closed server: error = %v, want ErrUnavailable", err)
	}
}

func TestGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"id": 7, "name": "Ana", "email": "a@x.com"},
			})
		}))

		u, err := c.Get(context.Background(), 7)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if u == nil || u.ID != 7 || u.Name != "Ana" {
			t.Errorf("Get() = %+v, want id=7 name=Ana", u)
		}
	})

	t.Run("not found is nil, not an error", func(t *testing.T) {
		c := newTestClient(t, http.NotFoundHandler())

		u, err := c.Get(context.Background(), 7)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if u != nil {
			t.Errorf("Get() = %+v, want nil", u)
		}
	})

	t.Run("unexpected status", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := c.Get(context.Background(), 7)
		if !errors.Is(err, ErrRemote) {
			t.Fatalf("Get() error = %v, want ErrRemote", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		c := New(srv.URL)
		srv.Close()

		_, err := c.Get(context.Background(), 7)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Get() error = %v, want ErrUnavailable", err)
		}
	})
}

func TestGetManyDeduplicates(t *testing.T) {
	var calls int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": 1, "name": "x", "email": "x@x.com"},
		})
	}))

	got := c.GetMany(context.Background(), []int64{1, 1, 2, 3})

	if n := atomic.LoadInt64(&calls); n != 3 {
		t.Errorf("GetMany issued %d lookups, want 3", n)
	}
	if len(got) != 3 {
		t.Errorf("GetMany returned %d entries, want 3", len(got))
	}
}

func TestGetManyIsolatesFailures(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/2":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			var id int64
			fmt.Sscanf(r.URL.Path, "/users/%d", &id)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"id": id, "name": fmt.Sprintf("user-%d", id), "email": "u@x.com"},
			})
		}
	}))

	got := c.GetMany(context.Background(), []int64{1, 2, 3})

	if len(got) != 3 {
		t.Fatalf("GetMany returned %d entries, want 3", len(got))
	}
	if got[1] == nil || got[1].ID != 1 {
		t.Errorf("entry 1 = %+v, want populated", got[1])
	}
	if got[2] != nil {
		t.Errorf("entry 2 = %+v, want nil after upstream failure", got[2])
	}
	if got[3] == nil || got[3].ID != 3 {
		t.Errorf("entry 3 = %+v, want populated", got[3])
	}
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
		}))
		if !c.Health(context.Background()) {
			t.Error("Health() = false, want true")
		}
	})

	t.Run("degraded remote reports unhealthy", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
		}))
		if c.Health(context.Background()) {
			t.Error("Health() = true, want false")
		}
	})

	t.Run("error status degrades to false", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		if c.Health(context.Background()) {
			t.Error("Health() = true, want false")
		}
	})

	t.Run("unreachable degrades to false, never errors", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		c := New(srv.URL)
		srv.Close()
		if c.Health(context.Background()) {
			t.Error("Health() = true, want false")
		}
	})
}
