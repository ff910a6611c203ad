package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/repo/memory"
)

func newPost(slug string, status blog.PostStatus, createdAt time.Time, tags ...string) *blog.Post {
	return &blog.Post{
		ID:        uuid.New(),
		Title:     slug,
		Slug:      slug,
		Tags:      tags,
		Status:    status,
		Body:      "body of " + slug,
		CreatedBy: uuid.New(),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryRepository_PostOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("CreatePost", func(t *testing.T) {
		post := newPost("create", blog.PostStatusPublished, base)
		require.NoError(t, repo.CreatePost(ctx, post))

		got, err := repo.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "create", got.Slug)
		assert.Equal(t, 0, got.LikesCount)
		assert.Empty(t, got.LikedBy)
	})

	t.Run("CreatePost_DuplicateSlug", func(t *testing.T) {
		require.NoError(t, repo.CreatePost(ctx, newPost("dup", blog.PostStatusPublished, base)))
		err := repo.CreatePost(ctx, newPost("dup", blog.PostStatusDraft, base))
		assert.ErrorIs(t, err, blog.ErrSlugTaken)
	})

	t.Run("GetPost_NotFound", func(t *testing.T) {
		post, err := repo.GetPost(ctx, uuid.New())
		assert.Nil(t, post)
		assert.ErrorIs(t, err, blog.ErrPostNotFound)

		post, err = repo.GetPostBySlug(ctx, "missing")
		assert.Nil(t, post)
		assert.ErrorIs(t, err, blog.ErrPostNotFound)
	})

	t.Run("GetPost_ReturnsCopy", func(t *testing.T) {
		post := newPost("copy", blog.PostStatusPublished, base, "go")
		require.NoError(t, repo.CreatePost(ctx, post))

		got, err := repo.GetPost(ctx, post.ID)
		require.NoError(t, err)
		got.Tags[0] = "mutated"
		got.Title = "mutated"

		again, err := repo.GetPostBySlug(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, []string{"go"}, again.Tags)
		assert.Equal(t, "copy", again.Title)
	})

	t.Run("UpdatePostFields", func(t *testing.T) {
		post := newPost("before", blog.PostStatusDraft, base)
		require.NoError(t, repo.CreatePost(ctx, post))

		slug := "after"
		title := "After"
		status := blog.PostStatusPublished
		err := repo.UpdatePostFields(ctx, post.ID, blog.PostFields{
			Title:   &title,
			Slug:    &slug,
			Status:  &status,
			Tags:    []string{"x"},
			SetTags: true,
		})
		require.NoError(t, err)

		got, err := repo.GetPostBySlug(ctx, "after")
		require.NoError(t, err)
		assert.Equal(t, "After", got.Title)
		assert.Equal(t, blog.PostStatusPublished, got.Status)
		assert.Equal(t, []string{"x"}, got.Tags)
		assert.Equal(t, "body of before", got.Body)

		_, err = repo.GetPostBySlug(ctx, "before")
		assert.ErrorIs(t, err, blog.ErrPostNotFound)
	})

	t.Run("UpdatePostFields_SlugTaken", func(t *testing.T) {
		require.NoError(t, repo.CreatePost(ctx, newPost("taken", blog.PostStatusPublished, base)))
		post := newPost("free", blog.PostStatusPublished, base)
		require.NoError(t, repo.CreatePost(ctx, post))

		slug := "taken"
		err := repo.UpdatePostFields(ctx, post.ID, blog.PostFields{Slug: &slug})
		assert.ErrorIs(t, err, blog.ErrSlugTaken)

		got, err := repo.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "free", got.Slug)
	})

	t.Run("DeletePost", func(t *testing.T) {
		post := newPost("gone", blog.PostStatusPublished, base)
		require.NoError(t, repo.CreatePost(ctx, post))
		require.NoError(t, repo.DeletePost(ctx, post.ID))

		_, err := repo.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, blog.ErrPostNotFound)
		assert.ErrorIs(t, repo.DeletePost(ctx, post.ID), blog.ErrPostNotFound)

		// the slug is free again
		require.NoError(t, repo.CreatePost(ctx, newPost("gone", blog.PostStatusPublished, base)))
	})

	t.Run("PostExists_ExcludeSelf", func(t *testing.T) {
		post := newPost("self", blog.PostStatusPublished, base)
		require.NoError(t, repo.CreatePost(ctx, post))

		exists, err := repo.PostExists(ctx, blog.PostFilter{Slug: "self"})
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.PostExists(ctx, blog.PostFilter{Slug: "self", ExcludeID: post.ID})
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestMemoryRepository_QueryPosts(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := newPost("a", blog.PostStatusPublished, base, "go", "web")
	b := newPost("b", blog.PostStatusPublished, base.Add(time.Hour), "go")
	c := newPost("c", blog.PostStatusPublished, base.Add(2*time.Hour), "rust")
	d := newPost("d", blog.PostStatusDraft, base.Add(3*time.Hour), "go")
	a.Title = "Learning Go Channels"
	for _, p := range []*blog.Post{a, b, c, d} {
		require.NoError(t, repo.CreatePost(ctx, p))
	}
	require.NoError(t, repo.IncrementViews(ctx, a.ID))
	require.NoError(t, repo.IncrementViews(ctx, c.ID))
	require.NoError(t, repo.IncrementViews(ctx, c.ID))
	// likes do not affect popularity
	_, err := repo.ToggleLike(ctx, b.ID, uuid.New())
	require.NoError(t, err)
	_, err = repo.ToggleLike(ctx, b.ID, uuid.New())
	require.NoError(t, err)

	published := blog.PostFilter{Status: blog.PostStatusPublished}

	slugs := func(posts []*blog.Post) []string {
		out := make([]string, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.Slug)
		}
		return out
	}

	tests := []struct {
		name   string
		filter blog.PostFilter
		sort   blog.PostSort
		skip   int
		limit  int
		want   []string
	}{
		{"latest", published, blog.SortLatest, 0, 10, []string{"c", "b", "a"}},
		{"oldest", published, blog.SortOldest, 0, 10, []string{"a", "b", "c"}},
		{"popular", published, blog.SortPopular, 0, 10, []string{"c", "a", "b"}},
		{"skip and limit", published, blog.SortLatest, 1, 1, []string{"b"}},
		{"skip past end", published, blog.SortLatest, 5, 10, []string{}},
		{"tag", blog.PostFilter{Status: blog.PostStatusPublished, Tag: "go"}, blog.SortLatest, 0, 10, []string{"b", "a"}},
		{"any tags", blog.PostFilter{Status: blog.PostStatusPublished, AnyTags: []string{"web", "rust"}}, blog.SortLatest, 0, 10, []string{"c", "a"}},
		{"search title case-insensitive", blog.PostFilter{Status: blog.PostStatusPublished, Search: "CHANNELS"}, blog.SortLatest, 0, 10, []string{"a"}},
		{"search tag substring", blog.PostFilter{Status: blog.PostStatusPublished, Search: "rus"}, blog.SortLatest, 0, 10, []string{"c"}},
		{"search regex chars are literal", blog.PostFilter{Status: blog.PostStatusPublished, Search: ".*"}, blog.SortLatest, 0, 10, []string{}},
		{"all statuses", blog.PostFilter{}, blog.SortLatest, 0, 10, []string{"d", "c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryPosts(ctx, tt.filter, tt.sort, tt.skip, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, slugs(got))

			if tt.skip == 0 {
				n, err := repo.CountPosts(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, len(tt.want), n)
			}
		})
	}
}

func TestMemoryRepository_PopularTieBreak(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newPost("older", blog.PostStatusPublished, base)
	newer := newPost("newer", blog.PostStatusPublished, base.Add(time.Minute))
	require.NoError(t, repo.CreatePost(ctx, older))
	require.NoError(t, repo.CreatePost(ctx, newer))
	require.NoError(t, repo.IncrementViews(ctx, older.ID))
	require.NoError(t, repo.IncrementViews(ctx, newer.ID))

	got, err := repo.QueryPosts(ctx, blog.PostFilter{}, blog.SortPopular, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Slug)
	assert.Equal(t, "older", got[1].Slug)
}

func TestMemoryRepository_TagFrequency(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreatePost(ctx, newPost("p1", blog.PostStatusPublished, base, "b", "a")))
	require.NoError(t, repo.CreatePost(ctx, newPost("p2", blog.PostStatusPublished, base, "a", "c")))
	require.NoError(t, repo.CreatePost(ctx, newPost("p3", blog.PostStatusPublished, base, "c", "d")))
	require.NoError(t, repo.CreatePost(ctx, newPost("p4", blog.PostStatusDraft, base, "d", "d2")))

	counts, err := repo.TagFrequency(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, []blog.TagCount{
		{Tag: "a", Count: 2},
		{Tag: "c", Count: 2},
		{Tag: "b", Count: 1},
		{Tag: "d", Count: 1},
	}, counts)

	counts, err = repo.TagFrequency(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []blog.TagCount{{Tag: "a", Count: 2}}, counts)
}

func TestMemoryRepository_ToggleLikeConcurrent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	post := newPost("liked", blog.PostStatusPublished, time.Now())
	require.NoError(t, repo.CreatePost(ctx, post))

	const readers = 20
	ids := make([]uuid.UUID, readers)
	for i := range ids {
		ids[i] = uuid.New()
	}

	// every reader toggles three times, so every reader ends up liking it
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				_, err := repo.ToggleLike(ctx, post.ID, id)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, readers, got.LikesCount)
	assert.Len(t, got.LikedBy, readers)
	assert.ElementsMatch(t, ids, got.LikedBy)
}

func TestMemoryRepository_ToggleLikeRoundTrip(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	post := newPost("toggle", blog.PostStatusPublished, time.Now())
	require.NoError(t, repo.CreatePost(ctx, post))
	reader := uuid.New()

	liked, err := repo.ToggleLike(ctx, post.ID, reader)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = repo.ToggleLike(ctx, post.ID, reader)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikesCount)
	assert.Empty(t, got.LikedBy)

	_, err = repo.ToggleLike(ctx, uuid.New(), reader)
	assert.ErrorIs(t, err, blog.ErrPostNotFound)
}

func TestMemoryRepository_CommentOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	post := newPost("commented", blog.PostStatusPublished, time.Now())
	require.NoError(t, repo.CreatePost(ctx, post))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 2; i >= 0; i-- {
		require.NoError(t, repo.CreateComment(ctx, &blog.Comment{
			ID:        uuid.New(),
			Content:   fmt.Sprintf("comment %d", i),
			PostID:    post.ID,
			AuthorID:  uuid.New(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "comment 0", comments[0].Content)
	assert.Equal(t, "comment 2", comments[2].Content)

	err = repo.CreateComment(ctx, &blog.Comment{ID: uuid.New(), PostID: uuid.New(), Content: "orphan"})
	assert.ErrorIs(t, err, blog.ErrPostNotFound)

	n, err := repo.DeleteCommentsByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	comments, err = repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestMemoryRepository_AuthorOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	author := &blog.Author{ID: uuid.New(), FullName: "Ada", Email: "ada@example.com", Role: blog.RoleUser}
	postA, postB := uuid.New(), uuid.New()

	t.Run("Upsert keeps bookmarks", func(t *testing.T) {
		require.NoError(t, repo.UpsertAuthor(ctx, author))
		bookmarked, err := repo.ToggleBookmark(ctx, author.ID, postA)
		require.NoError(t, err)
		assert.True(t, bookmarked)

		renamed := *author
		renamed.FullName = "Ada L."
		require.NoError(t, repo.UpsertAuthor(ctx, &renamed))

		got, err := repo.GetAuthor(ctx, author.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada L.", got.FullName)
		assert.Equal(t, []uuid.UUID{postA}, got.Bookmarks)
	})

	t.Run("ToggleBookmark", func(t *testing.T) {
		bookmarked, err := repo.ToggleBookmark(ctx, author.ID, postA)
		require.NoError(t, err)
		assert.False(t, bookmarked)

		_, err = repo.ToggleBookmark(ctx, uuid.New(), postA)
		assert.ErrorIs(t, err, blog.ErrAuthorNotFound)
	})

	t.Run("RemoveBookmarks", func(t *testing.T) {
		other := &blog.Author{ID: uuid.New(), FullName: "Grace"}
		require.NoError(t, repo.UpsertAuthor(ctx, other))
		for _, id := range []uuid.UUID{author.ID, other.ID} {
			_, err := repo.ToggleBookmark(ctx, id, postB)
			require.NoError(t, err)
		}
		_, err := repo.ToggleBookmark(ctx, other.ID, postA)
		require.NoError(t, err)

		n, err := repo.RemoveBookmarks(ctx, postB)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := repo.GetAuthors(ctx, []uuid.UUID{author.ID, other.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Empty(t, got[author.ID].Bookmarks)
		assert.Equal(t, []uuid.UUID{postA}, got[other.ID].Bookmarks)
	})
}
