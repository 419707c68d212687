package models

import (
	"time"
)

// Folder types as stored by the server
const (
	FolderTypeSystem  = "system"
	FolderTypeRegular = "regular"
	FolderTypeShared  = "shared"
	FolderTypePrivate = "private"
)

type Folder struct {
	ID        int       `json:"folder_id"`
	Name      string    `json:"folder_name"`
	Path      string    `json:"folder_path"` // Display path, informational only - identity is ID
	ParentID  *int      `json:"parent_folder_id"`
	Type      string    `json:"folder_type"`
	CreatedBy int       `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Creator   *User     `json:"creator,omitempty"` // Denormalized, present when loaded with relationship
}

// User is the denormalized creator summary attached to folders
type User struct {
	ID        int    `json:"user_id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}
