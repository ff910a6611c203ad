package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// cascadeAttempts is how many times a failed cascade delete is retried as a whole.
const cascadeAttempts = 3

// LikeResult is the final like membership after a toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// BookmarkResult is the final bookmark membership after a toggle.
type BookmarkResult struct {
	Bookmarked bool `json:"bookmarked"`
}

// EngagementEngine maintains views, likes and bookmarks, and removes a
// post together with everything that references it.
type EngagementEngine struct {
	repo         Repository
	logger       *slog.Logger
	retryBackoff time.Duration
}

// NewEngagementEngine creates an engagement engine over repo.
func NewEngagementEngine(repo Repository, logger *slog.Logger) *EngagementEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngagementEngine{repo: repo, logger: logger, retryBackoff: 50 * time.Millisecond}
}

// IncrementView counts one view. Repeat views from the same reader all count.
func (e *EngagementEngine) IncrementView(ctx context.Context, postID uuid.UUID) error {
	if err := e.repo.IncrementViews(ctx, postID); err != nil {
		return &PostError{PostID: postID, Op: "increment_view", Err: err}
	}
	return nil
}

// ToggleLike adds authorID to the post's likes or removes it if present.
func (e *EngagementEngine) ToggleLike(ctx context.Context, postID, authorID uuid.UUID) (*LikeResult, error) {
	liked, err := e.repo.ToggleLike(ctx, postID, authorID)
	if err != nil {
		return nil, &PostError{PostID: postID, Op: "toggle_like", Err: err}
	}
	post, err := e.repo.GetPost(ctx, postID)
	if err != nil {
		return nil, &PostError{PostID: postID, Op: "toggle_like", Err: err}
	}
	return &LikeResult{Liked: liked, LikesCount: post.LikesCount}, nil
}

// ToggleBookmark adds postID to the author's bookmarks or removes it if present.
func (e *EngagementEngine) ToggleBookmark(ctx context.Context, authorID, postID uuid.UUID) (*BookmarkResult, error) {
	bookmarked, err := e.repo.ToggleBookmark(ctx, authorID, postID)
	if err != nil {
		return nil, &PostError{PostID: postID, Op: "toggle_bookmark", Err: err}
	}
	return &BookmarkResult{Bookmarked: bookmarked}, nil
}

// CascadeDeletePost deletes the post's comments, removes it from every
// bookmark set, then deletes the post. The sequence runs in one transaction
// when the repository supports it and is retried as a whole on failure.
func (e *EngagementEngine) CascadeDeletePost(ctx context.Context, postID uuid.UUID) error {
	var err error
	for attempt := 1; attempt <= cascadeAttempts; attempt++ {
		err = e.cascadeOnce(ctx, postID)
		if err == nil || errors.Is(err, ErrPostNotFound) {
			break
		}
		e.logger.Warn("cascade delete failed", "post_id", postID, "attempt", attempt, "error", err)
		if attempt < cascadeAttempts {
			select {
			case <-ctx.Done():
				return &PostError{PostID: postID, Op: "delete", Err: ctx.Err()}
			case <-time.After(e.retryBackoff * time.Duration(attempt)):
			}
		}
	}
	if err != nil {
		return &PostError{PostID: postID, Op: "delete", Err: err}
	}
	return nil
}

func (e *EngagementEngine) cascadeOnce(ctx context.Context, postID uuid.UUID) error {
	run := func(repo Repository) error {
		comments, err := repo.DeleteCommentsByPost(ctx, postID)
		if err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		bookmarks, err := repo.RemoveBookmarks(ctx, postID)
		if err != nil {
			return fmt.Errorf("remove bookmarks: %w", err)
		}
		if err := repo.DeletePost(ctx, postID); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		e.logger.Debug("post deleted", "post_id", postID, "comments", comments, "bookmarks", bookmarks)
		return nil
	}
	if tx, ok := e.repo.(Transactor); ok {
		return tx.WithinTx(ctx, run)
	}
	return run(e.repo)
}
