package api

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"docvault/internal/config"
	"docvault/internal/domain"
	"docvault/internal/domain/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var folderNamePattern = regexp.MustCompile(`^[^/]+$`)

// CreateFolderRequest is the payload for creating a folder
type CreateFolderRequest struct {
	Name     string `json:"folder_name"`
	Path     string `json:"folder_path"`
	Type     string `json:"folder_type"`
	ParentID *int   `json:"parent_folder_id,omitempty"`
}

// Validate checks the request client-side before it is sent
func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required,
			validation.Length(1, config.MaxFolderNameLength),
			validation.Match(folderNamePattern).Error("folder name cannot contain slashes"),
		),
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.In(
			models.FolderTypeSystem,
			models.FolderTypeRegular,
			models.FolderTypeShared,
			models.FolderTypePrivate,
		)),
	)
}

// UpdateFolderRequest is the payload for renaming or moving a folder.
// Nil fields are left unchanged.
type UpdateFolderRequest struct {
	Name     *string `json:"folder_name,omitempty"`
	Path     *string `json:"folder_path,omitempty"`
	Type     *string `json:"folder_type,omitempty"`
	ParentID *int    `json:"parent_folder_id,omitempty"`
}

// Validate checks the request client-side before it is sent
func (r UpdateFolderRequest) Validate() error {
	if r.Name == nil && r.Path == nil && r.Type == nil && r.ParentID == nil {
		return fmt.Errorf("%w: at least one field must be provided", domain.ErrValidation)
	}

	rules := []*validation.FieldRules{}
	if r.Name != nil {
		rules = append(rules, validation.Field(&r.Name,
			validation.Required,
			validation.Length(1, config.MaxFolderNameLength),
			validation.Match(folderNamePattern).Error("folder name cannot contain slashes"),
		))
	}
	if r.Type != nil {
		rules = append(rules, validation.Field(&r.Type, validation.In(
			models.FolderTypeSystem,
			models.FolderTypeRegular,
			models.FolderTypeShared,
			models.FolderTypePrivate,
		)))
	}
	return validation.ValidateStruct(&r, rules...)
}

// ListAllFolders returns every folder visible to the caller. Cached.
func (c *Client) ListAllFolders(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	if err := c.get(ctx, "/folders", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// ListFolders returns the folders directly under the given parent; nil means
// root level. The listing endpoint returns the full set, scoping happens
// here so repeated expansion reuses one cached payload.
func (c *Client) ListFolders(ctx context.Context, parentID *int) ([]models.Folder, error) {
	folders, err := c.ListAllFolders(ctx)
	if err != nil {
		return nil, err
	}

	children := make([]models.Folder, 0, len(folders))
	for _, f := range folders {
		switch {
		case parentID == nil && f.ParentID == nil:
			children = append(children, f)
		case parentID != nil && f.ParentID != nil && *f.ParentID == *parentID:
			children = append(children, f)
		}
	}
	return children, nil
}

// GetFolder fetches a single folder by ID. Cached.
func (c *Client) GetFolder(ctx context.Context, id int) (*models.Folder, error) {
	var folder models.Folder
	if err := c.get(ctx, "/folders/"+strconv.Itoa(id), nil, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// SearchFolders finds folders whose names match the term. An empty term
// falls back to the full listing.
func (c *Client) SearchFolders(ctx context.Context, term string) ([]models.Folder, error) {
	if term == "" {
		return c.ListAllFolders(ctx)
	}
	var folders []models.Folder
	if err := c.get(ctx, "/folders/search/"+url.PathEscape(term), nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// RecentFolders returns the most recently updated folders
func (c *Client) RecentFolders(ctx context.Context, limit int) ([]models.Folder, error) {
	var folders []models.Folder
	if err := c.get(ctx, "/folders/recent/"+strconv.Itoa(limit), nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// TotalFolderCount reports how many folders exist in total
func (c *Client) TotalFolderCount(ctx context.Context) (int, error) {
	folders, err := c.ListAllFolders(ctx)
	if err != nil {
		return 0, err
	}
	return len(folders), nil
}

// CreateFolder creates a folder. Invalidates the cache on success.
func (c *Client) CreateFolder(ctx context.Context, req CreateFolderRequest) (*models.Folder, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var resp struct {
		Message string        `json:"message"`
		Folder  models.Folder `json:"folder"`
	}
	if err := c.mutate(ctx, "POST", "/folders", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Folder, nil
}

// UpdateFolder renames or moves a folder. Invalidates the cache on success.
func (c *Client) UpdateFolder(ctx context.Context, id int, req UpdateFolderRequest) (*models.Folder, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var folder models.Folder
	if err := c.mutate(ctx, "PUT", "/folders/"+strconv.Itoa(id), req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// DeleteFolder removes a folder. Cascading deletion of its contents is the
// server's responsibility. Invalidates the cache on success.
func (c *Client) DeleteFolder(ctx context.Context, id int) error {
	return c.mutate(ctx, "DELETE", "/folders/"+strconv.Itoa(id), nil, nil)
}
