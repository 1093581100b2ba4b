package publishing

import (
	"io"
	"time"
)

// Request DTOs

// AssetUpload is one binary attachment on a submission. Description only
// applies to gallery entries.
type AssetUpload struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Description string
}

// SubmitEditorialRequest contains parameters for submitting an article or
// mystery. Exactly one publish mode applies: PublishNow, a future
// ScheduledFor, or neither (saved as a draft).
type SubmitEditorialRequest struct {
	Kind         Kind
	Title        string
	Body         string
	AuthorName   string
	AuthorEmail  string
	Thumbnail    *AssetUpload
	Gallery      []AssetUpload
	PublishNow   bool
	ScheduledFor *time.Time
}

// SubmitTheoryRequest contains parameters for submitting a reader theory.
// Theories always start pending and carry at most one attachment.
type SubmitTheoryRequest struct {
	Title       string
	Body        string
	AuthorName  string
	AuthorEmail string
	Attachment  *AssetUpload
}

// ListContentRequest contains parameters for listing content.
type ListContentRequest struct {
	Kind   *Kind
	Status *Status
	Limit  *int
	Offset *int
}
