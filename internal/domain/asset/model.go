package asset

import (
	"io"
	"time"
)

// TypeGeneral is the type tag applied when the uploader doesn't name one.
const TypeGeneral = "general"

// Asset is a stored file bound to a project and, optionally, to the action that produced it.
type Asset struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	ActionID    *int64    `json:"action_id,omitempty"`
	UploadedBy  string    `json:"uploaded_by"`
	Type        string    `json:"asset_type"`
	Filename    string    `json:"filename"`
	Path        string    `json:"file_path"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	Metadata    string    `json:"metadata_assets,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Upload is one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Type        string
	Metadata    string
	Body        io.Reader
}
