// Package staffhttp implements the staff directory port over its REST API.
package staffhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/domain/staff"
	"github.com/opsdeck/opsdeck/internal/port/cache"
	"github.com/opsdeck/opsdeck/internal/resilience"
)

// Client resolves staff ids against the external directory service. Results
// are cached so board rendering does not hammer the directory, and calls go
// through a circuit breaker so a directory outage degrades to cache-only
// resolution instead of slowing every request.
type Client struct {
	baseURL string
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	breaker *resilience.Breaker
}

// New creates a directory client. cache may not be nil; pass a breaker
// configured from config.Breaker.
func New(baseURL string, timeout time.Duration, c cache.Cache, ttl time.Duration, breaker *resilience.Breaker) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   c,
		ttl:     ttl,
		breaker: breaker,
	}
}

// Resolve returns the directory record for the given staff id.
func (c *Client) Resolve(ctx context.Context, id string) (*staff.Member, error) {
	if id == "" {
		return nil, fmt.Errorf("staff id is empty: %w", domain.ErrValidation)
	}

	key := "staff:" + id
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var m staff.Member
		if err := json.Unmarshal(data, &m); err == nil {
			return &m, nil
		}
	}

	var m staff.Member
	var notFound error
	err := c.breaker.Execute(func() error {
		err := c.fetch(ctx, id, &m)
		if errors.Is(err, domain.ErrNotFound) {
			// A clean 404 means the directory is healthy; don't trip the breaker.
			notFound = err
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if notFound != nil {
		return nil, notFound
	}

	if data, err := json.Marshal(m); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return &m, nil
}

func (c *Client) fetch(ctx context.Context, id string, out *staff.Member) error {
	u := c.baseURL + "/staff/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("build staff request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("staff directory: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode staff %s: %w", id, err)
		}
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("staff %s: %w", id, domain.ErrNotFound)
	default:
		return fmt.Errorf("staff directory returned %d for %s", resp.StatusCode, id)
	}
}
