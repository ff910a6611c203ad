package blog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// PostStore defines persistence for posts. It enforces data invariants only
// (slug uniqueness, like counter consistency); authorization is the
// caller's job.
type PostStore interface {
	// CreatePost inserts a post. Returns ErrSlugTaken when the slug is in use.
	CreatePost(ctx context.Context, post *Post) error

	// UpdatePostFields applies a partial update. Returns ErrSlugTaken when
	// the new slug is in use and ErrPostNotFound when the post is gone.
	UpdatePostFields(ctx context.Context, id uuid.UUID, fields PostFields) error

	// DeletePost removes the post record only.
	DeletePost(ctx context.Context, id uuid.UUID) error

	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)

	PostExists(ctx context.Context, filter PostFilter) (bool, error)
	CountPosts(ctx context.Context, filter PostFilter) (int, error)
	QueryPosts(ctx context.Context, filter PostFilter, sort PostSort, skip, limit int) ([]*Post, error)

	// TagFrequency aggregates tags over published posts, ordered by count
	// descending with ties in first-insertion order.
	TagFrequency(ctx context.Context, limit int) ([]TagCount, error)

	IncrementViews(ctx context.Context, id uuid.UUID) error

	// ToggleLike flips authorID's membership in the post's LikedBy set and
	// adjusts LikesCount in the same atomic update. Returns the final membership.
	ToggleLike(ctx context.Context, postID, authorID uuid.UUID) (bool, error)
}

// CommentStore defines persistence for comments
type CommentStore interface {
	CreateComment(ctx context.Context, comment *Comment) error
	// ListComments returns the post's comments oldest first.
	ListComments(ctx context.Context, postID uuid.UUID) ([]*Comment, error)
	DeleteCommentsByPost(ctx context.Context, postID uuid.UUID) (int, error)
}

// AuthorStore defines persistence for author records and their bookmarks
type AuthorStore interface {
	UpsertAuthor(ctx context.Context, author *Author) error
	GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error)
	GetAuthors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Author, error)

	// ToggleBookmark flips postID's membership in the author's bookmark set
	// and returns the final membership.
	ToggleBookmark(ctx context.Context, authorID, postID uuid.UUID) (bool, error)

	// RemoveBookmarks removes postID from every author's bookmark set.
	RemoveBookmarks(ctx context.Context, postID uuid.UUID) (int, error)
}

// Repository combines all stores used by the service
type Repository interface {
	PostStore
	CommentStore
	AuthorStore
}

// Transactor is implemented by repositories that can run a unit of work
// atomically. fn receives a repository bound to the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

// MediaObject is an uploaded file handed to a MediaStore
type MediaObject struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaStore stores uploaded cover images and returns a durable URL.
// Failures are reported as errors matching ErrMediaUnavailable.
type MediaStore interface {
	Store(ctx context.Context, obj MediaObject) (string, error)
}

// AuthService resolves a caller identity from opaque credentials.
// A nil identity with a nil error means the caller is anonymous.
type AuthService interface {
	CurrentUser(ctx context.Context, credentials string) (*Identity, error)
}

// FacetCache caches the global tag facet
type FacetCache interface {
	GetTagCounts(ctx context.Context, limit int) ([]TagCount, bool, error)
	SetTagCounts(ctx context.Context, limit int, counts []TagCount) error
	Invalidate(ctx context.Context) error
}

// EventSink defines the interface for post lifecycle notifications
type EventSink interface {
	PostCreated(ctx context.Context, post *Post) error
	PostUpdated(ctx context.Context, post *Post) error
	PostDeleted(ctx context.Context, postID uuid.UUID) error
	CommentAdded(ctx context.Context, comment *Comment) error
}
