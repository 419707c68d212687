package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"docvault/internal/domain"
	"docvault/internal/domain/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ListDocuments returns documents matching the query scope. Cached.
func (c *Client) ListDocuments(ctx context.Context, q models.DocumentQuery) ([]models.Document, error) {
	params := url.Values{}
	if q.FolderID != nil {
		params.Set("folder_id", strconv.Itoa(*q.FolderID))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Year != nil {
		params.Set("year", strconv.Itoa(*q.Year))
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}

	var docs []models.Document
	if err := c.get(ctx, "/documents", params, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument fetches a single document by ID. Cached.
func (c *Client) GetDocument(ctx context.Context, id int) (*models.Document, error) {
	var doc models.Document
	if err := c.get(ctx, "/documents/"+strconv.Itoa(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentCounts returns the server-wide totals summary. Cached.
func (c *Client) DocumentCounts(ctx context.Context) (*models.DocumentCounts, error) {
	var counts models.DocumentCounts
	if err := c.get(ctx, "/documents/counts", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// FolderDocumentCount returns the number of documents directly in a folder.
// Cached.
func (c *Client) FolderDocumentCount(ctx context.Context, folderID int) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	endpoint := "/documents/folder/" + strconv.Itoa(folderID) + "/count"
	if err := c.get(ctx, endpoint, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// BulkFolderCounts fetches counts for many folders in one round trip. It is
// a read carried over POST: it bypasses the cache and does not invalidate.
func (c *Client) BulkFolderCounts(ctx context.Context, folderIDs []int) (map[int]int, error) {
	if len(folderIDs) == 0 {
		return map[int]int{}, nil
	}

	req := struct {
		FolderIDs []int `json:"folder_ids"`
	}{FolderIDs: folderIDs}

	// JSON object keys are strings even for numeric folder IDs
	var raw map[string]int
	if err := c.postRead(ctx, "/documents/folders/bulk-counts", req, &raw); err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(raw))
	for key, count := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("decode response: bad folder id %q", key)
		}
		counts[id] = count
	}
	return counts, nil
}

// ArchiveDocument moves a document to archived status. Invalidates the
// cache on success.
func (c *Client) ArchiveDocument(ctx context.Context, id int) error {
	return c.mutate(ctx, "PUT", "/documents/"+strconv.Itoa(id)+"/archive", nil, nil)
}

// RestoreDocument returns an archived document to active status.
// Invalidates the cache on success.
func (c *Client) RestoreDocument(ctx context.Context, id int) error {
	return c.mutate(ctx, "PUT", "/documents/"+strconv.Itoa(id)+"/restore", nil, nil)
}

// DeleteDocument permanently removes a document. Invalidates the cache on
// success.
func (c *Client) DeleteDocument(ctx context.Context, id int) error {
	return c.mutate(ctx, "DELETE", "/documents/"+strconv.Itoa(id), nil, nil)
}

// UpdateDocumentStatus sets a document's status directly. Invalidates the
// cache on success.
func (c *Client) UpdateDocumentStatus(ctx context.Context, id int, status string) error {
	if err := validation.Validate(status, validation.Required, validation.In(
		models.StatusActive,
		models.StatusDraft,
		models.StatusArchived,
		models.StatusPending,
	)); err != nil {
		return fmt.Errorf("%w: status: %v", domain.ErrValidation, err)
	}

	payload := struct {
		Status string `json:"status"`
	}{Status: status}
	return c.mutate(ctx, "PUT", "/documents/"+strconv.Itoa(id)+"/status", payload, nil)
}
