package blog

import (
	"context"

	"github.com/google/uuid"
)

// FindPostByIdentifier resolves a uuid-shaped identifier as a post ID and
// anything else as a slug.
func FindPostByIdentifier(ctx context.Context, posts PostStore, identifier string) (*Post, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return posts.GetPost(ctx, id)
	}
	return posts.GetPostBySlug(ctx, identifier)
}
