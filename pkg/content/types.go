package content

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContentType classifies a library item
type ContentType string

const (
	TypeVideo    ContentType = "video"
	TypeDocument ContentType = "document"
	TypeFolder   ContentType = "folder"
)

// Valid reports whether the content type is one of the known values
func (t ContentType) Valid() bool {
	switch t {
	case TypeVideo, TypeDocument, TypeFolder:
		return true
	}
	return false
}

// Content represents one library item backed by a Drive file or folder
type Content struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	ThumbnailURL string      `json:"thumbnail_url"`
	DriveFileID  string      `json:"drive_file_id"`
	Type         ContentType `json:"type"`
	Duration     string      `json:"duration"`
	Series       string      `json:"series,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Fields carries content attributes for create and partial update.
// Nil pointers in an update leave the stored value untouched.
type Fields struct {
	Title        *string      `json:"title,omitempty"`
	Description  *string      `json:"description,omitempty"`
	ThumbnailURL *string      `json:"thumbnail_url,omitempty"`
	DriveFileID  *string      `json:"drive_file_id,omitempty"`
	Type         *ContentType `json:"type,omitempty"`
	Duration     *string      `json:"duration,omitempty"`
	Series       *string      `json:"series,omitempty"`
}

// apply merges the provided fields into the item
func (f Fields) apply(item *Content) {
	if f.Title != nil {
		item.Title = strings.TrimSpace(*f.Title)
	}
	if f.Description != nil {
		item.Description = *f.Description
	}
	if f.ThumbnailURL != nil {
		item.ThumbnailURL = strings.TrimSpace(*f.ThumbnailURL)
	}
	if f.DriveFileID != nil {
		item.DriveFileID = strings.TrimSpace(*f.DriveFileID)
	}
	if f.Type != nil {
		item.Type = *f.Type
	}
	if f.Duration != nil {
		item.Duration = *f.Duration
	}
	if f.Series != nil {
		item.Series = strings.TrimSpace(*f.Series)
	}
}

// ValidationError is returned when a content mutation is rejected before any
// store call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError is returned when an ID has no matching content row
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("content not found: %s", e.ID)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// Validate checks the invariants every stored item must satisfy
func (c *Content) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.ThumbnailURL) == "" {
		return &ValidationError{Field: "thumbnail_url", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.DriveFileID) == "" {
		return &ValidationError{Field: "drive_file_id", Reason: "must not be empty"}
	}
	if !c.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be video, document, or folder"}
	}
	return nil
}
