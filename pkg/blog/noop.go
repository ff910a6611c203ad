package blog

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) PostCreated(ctx context.Context, post *Post) error { return nil }

func (n *NoopEventSink) PostUpdated(ctx context.Context, post *Post) error { return nil }

func (n *NoopEventSink) PostDeleted(ctx context.Context, postID uuid.UUID) error { return nil }

func (n *NoopEventSink) CommentAdded(ctx context.Context, comment *Comment) error { return nil }

// LoggingEventSink logs events but takes no other action.
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) PostCreated(ctx context.Context, post *Post) error {
	l.logger.InfoContext(ctx, "post created", "post_id", post.ID, "slug", post.Slug, "status", post.Status)
	return nil
}

func (l *LoggingEventSink) PostUpdated(ctx context.Context, post *Post) error {
	l.logger.InfoContext(ctx, "post updated", "post_id", post.ID, "slug", post.Slug, "status", post.Status)
	return nil
}

func (l *LoggingEventSink) PostDeleted(ctx context.Context, postID uuid.UUID) error {
	l.logger.InfoContext(ctx, "post deleted", "post_id", postID)
	return nil
}

func (l *LoggingEventSink) CommentAdded(ctx context.Context, comment *Comment) error {
	l.logger.InfoContext(ctx, "comment added", "comment_id", comment.ID, "post_id", comment.PostID, "author_id", comment.AuthorID)
	return nil
}
