package blog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/repo/memory"
)

func TestCommentThread(t *testing.T) {
	repo := memory.New()
	clock := newClock()
	thread := blog.NewCommentThread(repo, clock.Now)
	ctx := context.Background()
	post := seedPost(t, repo)

	ada := &blog.Author{ID: uuid.New(), FullName: "Ada", ProfileImageURL: "/a.png"}
	require.NoError(t, repo.UpsertAuthor(ctx, ada))
	ghost := uuid.New()

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace only", " \t\n ", true},
		{"trimmed", "  first  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := thread.Post(ctx, post.ID, ada.ID, tt.content)
			if tt.wantErr {
				var verr *blog.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "Comment cannot be empty.", verr.Message)
				assert.ErrorIs(t, err, blog.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "first", c.Content)
			assert.Equal(t, time.UTC, c.CreatedAt.Location())
		})
	}

	_, err := thread.Post(ctx, post.ID, ghost, "from an unknown author")
	require.NoError(t, err)

	_, err = thread.Post(ctx, uuid.New(), ada.ID, "lost")
	assert.ErrorIs(t, err, blog.ErrPostNotFound)

	views, err := thread.ListFor(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "first", views[0].Content)
	assert.Equal(t, &blog.AuthorSummary{ID: ada.ID, FullName: "Ada", ProfileImageURL: "/a.png"}, views[0].Author)
	assert.Nil(t, views[1].Author, "unknown authors resolve to nothing")
}

func TestCommentThread_EmptyList(t *testing.T) {
	repo := memory.New()
	thread := blog.NewCommentThread(repo, nil)
	post := seedPost(t, repo)

	views, err := thread.ListFor(context.Background(), post.ID)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}
