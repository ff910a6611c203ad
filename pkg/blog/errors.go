package blog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrValidation indicates the caller submitted invalid input
	ErrValidation = errors.New("validation failed")

	// ErrPostNotFound indicates a post was not found or is not visible to the caller
	ErrPostNotFound = errors.New("post not found")

	// ErrAuthorNotFound indicates an author record was not found
	ErrAuthorNotFound = errors.New("author not found")

	// ErrForbidden indicates the caller is authenticated but does not own the post
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated indicates the operation requires an identity
	ErrUnauthenticated = errors.New("authentication required")

	// ErrSlugTaken indicates a write lost the race for a slug (unique constraint violation)
	ErrSlugTaken = errors.New("slug already exists")

	// ErrMediaUnavailable indicates the media backend could not store an upload
	ErrMediaUnavailable = errors.New("media store unavailable")

	// ErrInvalidStatus indicates an unknown post status
	ErrInvalidStatus = errors.New("invalid post status")
)

// PostForm holds the values a caller submitted for a post, so they can be
// presented again after a validation failure.
type PostForm struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Tags    string `json:"tags"`
	Status  string `json:"status"`
	Body    string `json:"body"`
}

// ValidationError is returned when caller input is rejected. Form carries
// the submitted post values when the rejected input was a post form.
type ValidationError struct {
	Message string
	Form    *PostForm
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// PostError represents an error related to post operations
type PostError struct {
	PostID uuid.UUID
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %s: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// MediaError represents a failure of the media backend
type MediaError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

// Unwrap exposes both ErrMediaUnavailable and the backend cause.
func (e *MediaError) Unwrap() []error {
	return []error{ErrMediaUnavailable, e.Err}
}
