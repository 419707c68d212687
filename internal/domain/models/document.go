package models

import (
	"time"
)

// Document statuses
const (
	StatusActive   = "active"
	StatusDraft    = "draft"
	StatusArchived = "archived"
	StatusPending  = "pending"
)

type Document struct {
	ID                int       `json:"doc_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	FilePath          string    `json:"file_path"`
	Status            string    `json:"status"`
	FolderID          *int      `json:"folder_id"` // NULL = unfiled
	Remarks           string    `json:"remarks,omitempty"`
	PhysicalLocation  string    `json:"physical_location,omitempty"`
	AISuggestedFolder string    `json:"ai_suggested_folder,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DocumentQuery scopes a document listing. Zero values mean "no constraint".
type DocumentQuery struct {
	FolderID *int
	Search   string
	Year     *int
	Status   string
}

// DocumentCounts is the server-wide counts summary
type DocumentCounts struct {
	Total    int            `json:"total_documents"`
	ByStatus map[string]int `json:"documents_by_status"`
}
