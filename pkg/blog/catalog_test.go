package blog_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"1", 1},
		{"3", 3},
		{" 2 ", 2},
		{"0", 1},
		{"-4", 1},
		{"abc", 1},
		{"2.5", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, blog.ParsePage(tt.raw), "raw=%q", tt.raw)
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		requested int
		want      blog.Pagination
	}{
		{
			name: "empty result is one page", total: 0, requested: 1,
			want: blog.Pagination{TotalPosts: 0, TotalPages: 1, CurrentPage: 1, PageSize: 6},
		},
		{
			name: "seven posts first page", total: 7, requested: 1,
			want: blog.Pagination{TotalPosts: 7, TotalPages: 2, CurrentPage: 1, PageSize: 6, HasNext: true},
		},
		{
			name: "seven posts second page", total: 7, requested: 2,
			want: blog.Pagination{TotalPosts: 7, TotalPages: 2, CurrentPage: 2, PageSize: 6, HasPrev: true},
		},
		{
			name: "past the end clamps", total: 7, requested: 9,
			want: blog.Pagination{TotalPosts: 7, TotalPages: 2, CurrentPage: 2, PageSize: 6, HasPrev: true},
		},
		{
			name: "exact multiple", total: 12, requested: 2,
			want: blog.Pagination{TotalPosts: 12, TotalPages: 2, CurrentPage: 2, PageSize: 6, HasPrev: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blog.Paginate(tt.total, tt.requested, blog.PageSize))
		})
	}
}

func TestCatalog_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.author(t, "Ada")

	var created []*blog.Post
	for i := 1; i <= 7; i++ {
		created = append(created, f.create(t, ada, fmt.Sprintf("Post %d", i), "go", blog.PostStatusPublished))
	}
	f.create(t, ada, "Draft", "go, secret", blog.PostStatusDraft)

	page, err := f.svc.Catalog(ctx, blog.CatalogRequest{Page: "2"})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, created[0].ID, page.Posts[0].ID, "latest first, so page two holds the oldest")
	assert.Equal(t, 7, page.Pagination.TotalPosts)
	assert.True(t, page.Pagination.HasPrev)
	assert.False(t, page.Pagination.HasNext)
	assert.Equal(t, blog.CatalogFilters{Sort: blog.SortLatest, Page: 2}, page.Filters)

	page, err = f.svc.Catalog(ctx, blog.CatalogRequest{Sort: "oldest"})
	require.NoError(t, err)
	require.Len(t, page.Posts, 6)
	assert.Equal(t, created[0].ID, page.Posts[0].ID)

	page, err = f.svc.Catalog(ctx, blog.CatalogRequest{Tag: "Secret"})
	require.NoError(t, err)
	assert.Empty(t, page.Posts, "drafts never appear in the catalog")
	assert.Equal(t, "secret", page.Filters.Tag)

	page, err = f.svc.Catalog(ctx, blog.CatalogRequest{Query: "post 7"})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, created[6].ID, page.Posts[0].ID)
	assert.Equal(t, []blog.TagCount{{Tag: "go", Count: 7}}, page.TopTags, "facet ignores the active filter")
}

func TestCatalog_PopularSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.author(t, "Ada")
	bob := f.author(t, "Bob")

	older := f.create(t, ada, "Older", "", blog.PostStatusPublished)
	newer := f.create(t, ada, "Newer", "", blog.PostStatusPublished)
	viewed := f.create(t, ada, "Viewed", "", blog.PostStatusPublished)
	liked := f.create(t, ada, "Liked", "", blog.PostStatusPublished)

	for i := 0; i < 5; i++ {
		_, err := f.svc.GetPost(ctx, bob, viewed.Slug)
		require.NoError(t, err)
	}
	_, err := f.svc.ToggleLike(ctx, bob, liked.Slug)
	require.NoError(t, err)

	page, err := f.svc.Catalog(ctx, blog.CatalogRequest{Sort: "popular"})
	require.NoError(t, err)
	require.Len(t, page.Posts, 4)
	assert.Equal(t, viewed.ID, page.Posts[0].ID, "most viewed first regardless of likes")
	assert.Equal(t, liked.ID, page.Posts[1].ID, "equal views fall back to newest first")
	assert.Equal(t, newer.ID, page.Posts[2].ID)
	assert.Equal(t, older.ID, page.Posts[3].ID)
}

// mapCache is an in-process FacetCache
type mapCache struct {
	mu          sync.Mutex
	entries     map[int][]blog.TagCount
	invalidated int
}

func (c *mapCache) GetTagCounts(ctx context.Context, limit int) ([]blog.TagCount, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts, ok := c.entries[limit]
	return counts, ok, nil
}

func (c *mapCache) SetTagCounts(ctx context.Context, limit int, counts []blog.TagCount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[int][]blog.TagCount{}
	}
	c.entries[limit] = counts
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.invalidated++
	return nil
}

func TestCatalog_TopTagsCache(t *testing.T) {
	cache := &mapCache{}
	f := newFixture(t, blog.WithFacetCache(cache))
	ctx := context.Background()
	ada := f.author(t, "Ada")

	f.create(t, ada, "One", "go, web", blog.PostStatusPublished)
	f.create(t, ada, "Two", "web", blog.PostStatusPublished)

	page, err := f.svc.Catalog(ctx, blog.CatalogRequest{})
	require.NoError(t, err)
	want := []blog.TagCount{{Tag: "web", Count: 2}, {Tag: "go", Count: 1}}
	assert.Equal(t, want, page.TopTags)

	counts, ok, _ := cache.GetTagCounts(ctx, blog.TopTagsLimit)
	require.True(t, ok)
	assert.Equal(t, want, counts)

	f.create(t, ada, "Three", "rust", blog.PostStatusPublished)
	_, ok, _ = cache.GetTagCounts(ctx, blog.TopTagsLimit)
	assert.False(t, ok, "creating a post drops the cached facet")

	page, err = f.svc.Catalog(ctx, blog.CatalogRequest{})
	require.NoError(t, err)
	assert.Equal(t, []blog.TagCount{{Tag: "web", Count: 2}, {Tag: "go", Count: 1}, {Tag: "rust", Count: 1}}, page.TopTags)
}

func TestCatalog_TopTagsLimit(t *testing.T) {
	f := newFixture(t)
	ada := f.author(t, "Ada")
	for i := 0; i < 10; i++ {
		f.create(t, ada, fmt.Sprintf("P%d", i), fmt.Sprintf("tag%d", i), blog.PostStatusPublished)
	}

	page, err := f.svc.Catalog(context.Background(), blog.CatalogRequest{})
	require.NoError(t, err)
	require.Len(t, page.TopTags, blog.TopTagsLimit)
	assert.Equal(t, "tag0", page.TopTags[0].Tag, "ties keep first-seen order")
}
