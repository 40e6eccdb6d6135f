// Package userclient talks to the user registry over HTTP. Transport failures
// and unexpected upstream responses surface as distinct sentinel errors so
// callers can map them to different outcomes.
package userclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnavailable means the registry could not be reached at all:
	// connection refused, DNS failure or timeout.
	ErrUnavailable = errors.New("user service is not available")

	// ErrRemote means the registry answered with something unexpected.
	ErrRemote = errors.New("user service request failed")
)

const requestTimeout = 5 * time.Second

// User mirrors the record the user registry returns.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: requestTimeout},
	}
}

// Exists reports whether the given user id is known to the registry.
// A 404 answer means "no" and is not an error.
func (c *Client) Exists(ctx context.Context, userID int64) (bool, error) {
	res, err := c.get(ctx, "/users/"+strconv.FormatInt(userID, 10)+"/exists")
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		var body struct {
			Success bool `json:"success"`
			Exists  bool `json:"exists"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			return false, fmt.Errorf("%w: decode exists response: %v", ErrRemote, err)
		}
		return body.Success && body.Exists, nil
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected status %d", ErrRemote, res.StatusCode)
	}
}

// Get fetches one user record. A 404 answer yields (nil, nil).
func (c *Client) Get(ctx context.Context, userID int64) (*User, error) {
	res, err := c.get(ctx, "/users/"+strconv.FormatInt(userID, 10))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		var body struct {
			Success bool  `json:"success"`
			Data    *User `json:"data"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: decode user response: %v", ErrRemote, err)
		}
		if !body.Success {
			return nil, nil
		}
		return body.Data, nil
	case res.StatusCode == http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrRemote, res.StatusCode)
	}
}

// GetMany fetches all distinct ids concurrently and joins the outcomes.
// A failed or missing lookup degrades that entry to nil; one broken branch
// never fails the others, and GetMany itself never fails.
func (c *Client) GetMany(ctx context.Context, userIDs []int64) map[int64]*User {
	unique := make([]int64, 0, len(userIDs))
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	out := make(map[int64]*User, len(unique))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range unique {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			u, err := c.Get(ctx, id)
			if err != nil {
				u = nil
			}
			mu.Lock()
			out[id] = u
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return out
}

// Health reports whether the registry declares itself healthy.
// Any failure degrades to false.
func (c *Client) Health(ctx context.Context) bool {
	res, err := c.get(ctx, "/health")
	if err != nil {
		return false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false
	}
	return body.Status == "healthy"
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		// Refused connections, DNS failures and timeouts all land here.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res, nil
}
