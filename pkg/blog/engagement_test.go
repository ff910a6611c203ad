package blog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/repo/memory"
)

func seedPost(t *testing.T, repo blog.Repository) *blog.Post {
	t.Helper()
	post := &blog.Post{
		ID:        uuid.New(),
		Title:     "Seed",
		Slug:      "seed-" + uuid.NewString()[:8],
		Status:    blog.PostStatusPublished,
		CreatedBy: uuid.New(),
		LikedBy:   []uuid.UUID{},
	}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return post
}

func TestEngagement_ConcurrentLikes(t *testing.T) {
	repo := memory.New()
	engine := blog.NewEngagementEngine(repo, nil)
	post := seedPost(t, repo)
	ctx := context.Background()

	readers := make([]uuid.UUID, 50)
	for i := range readers {
		readers[i] = uuid.New()
	}

	toggleAll := func() {
		var wg sync.WaitGroup
		for _, reader := range readers {
			wg.Add(1)
			go func(reader uuid.UUID) {
				defer wg.Done()
				_, err := engine.ToggleLike(ctx, post.ID, reader)
				assert.NoError(t, err)
			}(reader)
		}
		wg.Wait()
	}

	toggleAll()
	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, len(readers), got.LikesCount)
	assert.ElementsMatch(t, readers, got.LikedBy)

	toggleAll()
	got, err = repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikesCount)
	assert.Empty(t, got.LikedBy)
}

func TestEngagement_ToggleLikeResult(t *testing.T) {
	repo := memory.New()
	engine := blog.NewEngagementEngine(repo, nil)
	post := seedPost(t, repo)
	reader := uuid.New()

	res, err := engine.ToggleLike(context.Background(), post.ID, reader)
	require.NoError(t, err)
	assert.Equal(t, &blog.LikeResult{Liked: true, LikesCount: 1}, res)

	res, err = engine.ToggleLike(context.Background(), post.ID, reader)
	require.NoError(t, err)
	assert.Equal(t, &blog.LikeResult{Liked: false, LikesCount: 0}, res)

	_, err = engine.ToggleLike(context.Background(), uuid.New(), reader)
	assert.ErrorIs(t, err, blog.ErrPostNotFound)
}

func TestEngagement_IncrementView(t *testing.T) {
	repo := memory.New()
	engine := blog.NewEngagementEngine(repo, nil)
	post := seedPost(t, repo)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.IncrementView(context.Background(), post.ID))
	}
	got, err := repo.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Views, "repeat views all count")
}

func TestEngagement_Bookmark(t *testing.T) {
	repo := memory.New()
	engine := blog.NewEngagementEngine(repo, nil)
	post := seedPost(t, repo)
	ctx := context.Background()

	_, err := engine.ToggleBookmark(ctx, uuid.New(), post.ID)
	assert.ErrorIs(t, err, blog.ErrAuthorNotFound)

	reader := &blog.Author{ID: uuid.New(), FullName: "Reader"}
	require.NoError(t, repo.UpsertAuthor(ctx, reader))

	res, err := engine.ToggleBookmark(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Bookmarked)

	res, err = engine.ToggleBookmark(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, res.Bookmarked)
}

func TestEngagement_CascadeDeletePost(t *testing.T) {
	repo := memory.New()
	engine := blog.NewEngagementEngine(repo, nil)
	ctx := context.Background()
	post := seedPost(t, repo)
	other := seedPost(t, repo)

	reader := &blog.Author{ID: uuid.New()}
	require.NoError(t, repo.UpsertAuthor(ctx, reader))
	_, err := repo.ToggleBookmark(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	_, err = repo.ToggleBookmark(ctx, reader.ID, other.ID)
	require.NoError(t, err)
	require.NoError(t, repo.CreateComment(ctx, &blog.Comment{ID: uuid.New(), PostID: post.ID, AuthorID: reader.ID, Content: "hi"}))
	require.NoError(t, repo.CreateComment(ctx, &blog.Comment{ID: uuid.New(), PostID: other.ID, AuthorID: reader.ID, Content: "keep"}))

	require.NoError(t, engine.CascadeDeletePost(ctx, post.ID))

	_, err = repo.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, blog.ErrPostNotFound)

	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	comments, err = repo.ListComments(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	got, err := repo.GetAuthor(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other.ID}, got.Bookmarks)
}

// flakyRepo fails RemoveBookmarks a fixed number of times and counts
// transactions when it advertises Transactor.
type flakyRepo struct {
	*memory.Repository
	mu       sync.Mutex
	failures int
	txs      int
}

func (r *flakyRepo) RemoveBookmarks(ctx context.Context, postID uuid.UUID) (int, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return 0, errors.New("connection reset")
	}
	r.mu.Unlock()
	return r.Repository.RemoveBookmarks(ctx, postID)
}

type txFlakyRepo struct {
	*flakyRepo
}

func (r *txFlakyRepo) WithinTx(ctx context.Context, fn func(repo blog.Repository) error) error {
	r.mu.Lock()
	r.txs++
	r.mu.Unlock()
	return fn(r)
}

func TestEngagement_CascadeRetries(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		repo := &flakyRepo{Repository: memory.New(), failures: 2}
		engine := blog.NewEngagementEngine(repo, nil)
		post := seedPost(t, repo)

		require.NoError(t, engine.CascadeDeletePost(context.Background(), post.ID))
		_, err := repo.GetPost(context.Background(), post.ID)
		assert.ErrorIs(t, err, blog.ErrPostNotFound)
	})

	t.Run("gives up", func(t *testing.T) {
		repo := &flakyRepo{Repository: memory.New(), failures: 10}
		engine := blog.NewEngagementEngine(repo, nil)
		post := seedPost(t, repo)

		err := engine.CascadeDeletePost(context.Background(), post.ID)
		var perr *blog.PostError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "delete", perr.Op)
		assert.Equal(t, 7, repo.failures, "three attempts")

		_, err = repo.GetPost(context.Background(), post.ID)
		assert.NoError(t, err, "post survives a failed cascade")
	})

	t.Run("uses transactions", func(t *testing.T) {
		repo := &txFlakyRepo{&flakyRepo{Repository: memory.New(), failures: 1}}
		engine := blog.NewEngagementEngine(repo, nil)
		post := seedPost(t, repo)

		require.NoError(t, engine.CascadeDeletePost(context.Background(), post.ID))
		assert.Equal(t, 2, repo.txs)
	})
}
