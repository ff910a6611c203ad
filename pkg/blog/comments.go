package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CommentView is a comment resolved with its author's display attributes.
type CommentView struct {
	*Comment
	Author *AuthorSummary `json:"author,omitempty"`
}

// CommentThread appends and lists the comments of a post.
type CommentThread struct {
	repo Repository
	now  func() time.Time
}

// NewCommentThread creates a comment thread over repo.
func NewCommentThread(repo Repository, now func() time.Time) *CommentThread {
	if now == nil {
		now = time.Now
	}
	return &CommentThread{repo: repo, now: now}
}

// Post appends a comment. Blank content is a *ValidationError.
func (c *CommentThread) Post(ctx context.Context, postID, authorID uuid.UUID, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Message: "Comment cannot be empty."}
	}

	if _, err := c.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:        uuid.New(),
		Content:   content,
		PostID:    postID,
		AuthorID:  authorID,
		CreatedAt: c.now().UTC(),
	}
	if err := c.repo.CreateComment(ctx, comment); err != nil {
		return nil, &PostError{PostID: postID, Op: "comment", Err: err}
	}
	return comment, nil
}

// ListFor returns the post's comments oldest first, each with its author.
func (c *CommentThread) ListFor(ctx context.Context, postID uuid.UUID) ([]*CommentView, error) {
	comments, err := c.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.AuthorID)
	}
	authors, err := ResolveAuthors(ctx, c.repo, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*CommentView, 0, len(comments))
	for _, cm := range comments {
		views = append(views, &CommentView{Comment: cm, Author: authors[cm.AuthorID]})
	}
	return views, nil
}

// ResolveAuthors loads display attributes for ids. Unknown ids are absent
// from the result.
func ResolveAuthors(ctx context.Context, authors AuthorStore, ids []uuid.UUID) (map[uuid.UUID]*AuthorSummary, error) {
	out := make(map[uuid.UUID]*AuthorSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := authors.GetAuthors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	for id, a := range found {
		out[id] = a.Summary()
	}
	return out, nil
}
