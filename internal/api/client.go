// Package api is the typed client for the document archive's JSON API.
// Read calls flow through the resource cache; mutations bypass it and
// invalidate the whole cache on success.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Client wraps the HTTP transport with bearer-token auth, request
// correlation IDs and the read-through cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for the given API base URL. ttl bounds cached reads;
// pass 0 for the default.
func New(baseURL, token string, ttl time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		cache:  cache.New(ttl),
		logger: logger,
	}
}

// SetToken replaces the bearer token (login / token refresh). The cache is
// cleared so nothing fetched under the old credential leaks across.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.cache.InvalidateAll()
}

// ClearAuth drops the credential and empties the cache (logout path)
func (c *Client) ClearAuth() {
	c.SetToken("")
}

// IsAuthenticated reports whether a bearer token is present
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// InvalidateCache drops every cached read result
func (c *Client) InvalidateCache() {
	c.cache.InvalidateAll()
}

// get performs a cached read. The decoded destination is always a fresh
// value, whether served from cache or the wire.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest any) error {
	key := cache.Key(endpoint, params)

	if payload, ok := c.cache.Get(key); ok {
		c.logger.Debug("cache hit", "key", key)
		return decode(payload, dest)
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}

	c.cache.Put(key, body)
	return decode(body, dest)
}

// mutate performs a write call. It never consults the cache and invalidates
// all of it on success - coarse by design, stale targeted invalidation is a
// worse failure mode than a cold cache.
func (c *Client) mutate(ctx context.Context, method, endpoint string, payload, dest any) error {
	body, err := c.send(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}

	c.cache.InvalidateAll()
	return decode(body, dest)
}

// postRead is a read that happens to travel as a POST (bulk counts). It
// bypasses the cache but must not invalidate it.
func (c *Client) postRead(ctx context.Context, endpoint string, payload, dest any) error {
	body, err := c.send(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return err
	}
	return decode(body, dest)
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	return c.do(ctx, method, endpoint, nil, body)
}

// do executes a single request and maps failures onto the domain error
// taxonomy. The response body is returned raw for the caller to decode.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) ([]byte, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	// Fail fast on a locally-known-expired token instead of wasting the
	// round trip
	if token != "" && tokenExpired(token) {
		return nil, &domain.AuthenticationError{Message: "session expired, please log in again"}
	}

	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation is not a transport fault; let callers see it
		// directly so superseded navigations stay silent
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.NetworkError{Message: fmt.Sprintf("%s %s: %v", method, endpoint, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Message: fmt.Sprintf("read response: %v", err)}
	}

	c.logger.Debug("api call",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"request_id", requestID,
	)

	if err := statusError(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	return raw, nil
}

// statusError maps a non-2xx response onto the domain error taxonomy
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := serverMessage(body)

	switch status {
	case http.StatusUnauthorized:
		return &domain.AuthenticationError{Message: "authentication required, please log in"}
	case http.StatusNotFound:
		if msg == "" {
			msg = "resource not found"
		}
		return &domain.NotFoundError{Message: msg}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = fmt.Sprintf("request rejected (status %d)", status)
		}
		return &domain.ValidationError{Message: msg}
	default:
		return &domain.ServerError{Status: status, Message: msg}
	}
}

// serverMessage pulls the human-readable message out of an error payload,
// tolerating non-JSON bodies.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// decode unmarshals a response body, treating an empty body as "nothing to
// decode" (204-style responses).
func decode(body []byte, dest any) error {
	if dest == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// tokenExpired checks the exp claim without verifying the signature -
// verification is the server's job, this only avoids a doomed round trip.
// Unparseable tokens are passed through for the server to judge.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
