package blog

import (
	"context"
)

// Service defines the main interface for the simple-blog library
type Service interface {
	// Post lifecycle
	CreatePost(ctx context.Context, actor *Identity, req CreatePostRequest) (*Post, error)
	GetPostForEdit(ctx context.Context, actor *Identity, identifier string) (*EditView, error)
	UpdatePost(ctx context.Context, actor *Identity, identifier string, req UpdatePostRequest) (*Post, error)
	DeletePost(ctx context.Context, actor *Identity, identifier string) error

	// Reading
	GetPost(ctx context.Context, viewer *Identity, identifier string) (*PostDetail, error)
	Catalog(ctx context.Context, req CatalogRequest) (*CatalogPage, error)

	// Engagement
	ToggleLike(ctx context.Context, actor *Identity, identifier string) (*LikeResult, error)
	ToggleBookmark(ctx context.Context, actor *Identity, identifier string) (*BookmarkResult, error)

	// Comments
	AddComment(ctx context.Context, actor *Identity, identifier string, content string) (*Comment, error)
	ListComments(ctx context.Context, viewer *Identity, identifier string) ([]*CommentView, error)

	// Authors
	EnsureAuthor(ctx context.Context, identity *Identity) error
}
