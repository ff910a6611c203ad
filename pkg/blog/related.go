package blog

import (
	"context"
	"fmt"
)

// DefaultRelatedLimit is the number of related posts shown with a post.
const DefaultRelatedLimit = 3

// RelatedSelector picks published posts related to a given post.
type RelatedSelector struct {
	posts PostStore
}

// NewRelatedSelector creates a related-content selector.
func NewRelatedSelector(posts PostStore) *RelatedSelector {
	return &RelatedSelector{posts: posts}
}

// Select returns up to limit of the most recent published posts sharing a
// tag with post. When none share a tag it falls back to the most recent
// published posts. The subject itself is never returned.
func (r *RelatedSelector) Select(ctx context.Context, post *Post, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	base := PostFilter{Status: PostStatusPublished, ExcludeID: post.ID}

	if len(post.Tags) > 0 {
		byTag := base
		byTag.AnyTags = post.Tags
		related, err := r.posts.QueryPosts(ctx, byTag, SortLatest, 0, limit)
		if err != nil {
			return nil, fmt.Errorf("query related by tags: %w", err)
		}
		if len(related) > 0 {
			return related, nil
		}
	}

	recent, err := r.posts.QueryPosts(ctx, base, SortLatest, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", err)
	}
	return recent, nil
}
