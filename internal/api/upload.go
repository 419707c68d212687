package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"docvault/internal/domain"
)

// UploadFile sends one file as multipart form data and returns the created
// document's identifier. Uploads bypass the cache; a successful upload is a
// mutation and invalidates it.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return 0, fmt.Errorf("build upload request: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return 0, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("build upload request: %w", err)
	}

	body, err := c.doMultipart(ctx, "/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return 0, err
	}

	var resp struct {
		Success  bool `json:"success"`
		Document *struct {
			ID int `json:"id"`
		} `json:"document"`
	}
	if err := decode(body, &resp); err != nil {
		return 0, err
	}
	if !resp.Success || resp.Document == nil || resp.Document.ID == 0 {
		return 0, fmt.Errorf("no document ID returned for %s", filename)
	}

	c.cache.InvalidateAll()
	return resp.Document.ID, nil
}

// doMultipart mirrors do() for multipart bodies, which need their own
// content type and skip the JSON header.
func (c *Client) doMultipart(ctx context.Context, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token != "" && tokenExpired(token) {
		return nil, &domain.AuthenticationError{Message: "session expired, please log in again"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.NetworkError{Message: fmt.Sprintf("POST %s: %v", endpoint, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Message: fmt.Sprintf("read response: %v", err)}
	}

	c.logger.Debug("api call", "method", "POST", "endpoint", endpoint, "status", resp.StatusCode)

	if err := statusError(resp.StatusCode, raw); err != nil {
		return nil, err
	}
	return raw, nil
}
