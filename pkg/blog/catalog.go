package blog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const (
	// PageSize is the number of posts per catalog page.
	PageSize = 6
	// TopTagsLimit is the number of tags in the catalog facet.
	TopTagsLimit = 8
)

// CatalogRequest holds raw catalog query parameters as received.
type CatalogRequest struct {
	Query string
	Tag   string
	Sort  string
	Page  string
}

// CatalogQuery is a resolved catalog request.
type CatalogQuery struct {
	Filter PostFilter
	Sort   PostSort
	Page   int
}

// CatalogFilters echoes the effective parameters back to the caller.
type CatalogFilters struct {
	Query string   `json:"q"`
	Tag   string   `json:"tag"`
	Sort  PostSort `json:"sort"`
	Page  int      `json:"page"`
}

// Pagination describes where a catalog page sits in the result set.
type Pagination struct {
	TotalPosts  int  `json:"total_posts"`
	TotalPages  int  `json:"total_pages"`
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	HasPrev     bool `json:"has_prev"`
	HasNext     bool `json:"has_next"`
}

// CatalogPage is one page of the catalog listing.
type CatalogPage struct {
	Posts      []*Post        `json:"posts"`
	Filters    CatalogFilters `json:"filters"`
	Pagination Pagination     `json:"pagination"`
	TopTags    []TagCount     `json:"top_tags"`
}

// CatalogPipeline turns catalog parameters into a post query and
// pagination metadata.
type CatalogPipeline struct {
	posts  PostStore
	cache  FacetCache
	logger *slog.Logger
}

// NewCatalogPipeline creates a catalog pipeline. cache may be nil.
func NewCatalogPipeline(posts PostStore, cache FacetCache, logger *slog.Logger) *CatalogPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogPipeline{posts: posts, cache: cache, logger: logger}
}

// ParsePage parses a requested page number; anything non-numeric or below 1 is page 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// BuildQuery resolves raw parameters into a published-only query.
func (c *CatalogPipeline) BuildQuery(req CatalogRequest) CatalogQuery {
	return CatalogQuery{
		Filter: PostFilter{
			Status: PostStatusPublished,
			Search: strings.TrimSpace(req.Query),
			Tag:    strings.ToLower(strings.TrimSpace(req.Tag)),
		},
		Sort: ParseSort(strings.TrimSpace(req.Sort)),
		Page: ParsePage(req.Page),
	}
}

// Paginate computes pagination for total matches and a requested page.
// Pages past the end clamp to the last page.
func Paginate(total, requested, pageSize int) Pagination {
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	current := requested
	if current > totalPages {
		current = totalPages
	}
	if current < 1 {
		current = 1
	}
	return Pagination{
		TotalPosts:  total,
		TotalPages:  totalPages,
		CurrentPage: current,
		PageSize:    pageSize,
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
	}
}

// List runs the catalog query and returns the resolved page with the global tag facet.
func (c *CatalogPipeline) List(ctx context.Context, req CatalogRequest) (*CatalogPage, error) {
	q := c.BuildQuery(req)

	total, err := c.posts.CountPosts(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("count catalog posts: %w", err)
	}
	pagination := Paginate(total, q.Page, PageSize)

	posts, err := c.posts.QueryPosts(ctx, q.Filter, q.Sort, (pagination.CurrentPage-1)*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("query catalog posts: %w", err)
	}

	topTags, err := c.TopTags(ctx, TopTagsLimit)
	if err != nil {
		return nil, err
	}

	return &CatalogPage{
		Posts: posts,
		Filters: CatalogFilters{
			Query: q.Filter.Search,
			Tag:   q.Filter.Tag,
			Sort:  q.Sort,
			Page:  pagination.CurrentPage,
		},
		Pagination: pagination,
		TopTags:    topTags,
	}, nil
}

// TopTags returns the n most used tags across all published posts,
// independent of any active catalog filter.
func (c *CatalogPipeline) TopTags(ctx context.Context, n int) ([]TagCount, error) {
	if c.cache != nil {
		counts, ok, err := c.cache.GetTagCounts(ctx, n)
		if err != nil {
			c.logger.Warn("facet cache read failed", "error", err)
		} else if ok {
			return counts, nil
		}
	}

	counts, err := c.posts.TagFrequency(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("aggregate tag frequency: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.SetTagCounts(ctx, n, counts); err != nil {
			c.logger.Warn("facet cache write failed", "error", err)
		}
	}
	return counts, nil
}

// InvalidateFacets drops the cached facet after a post mutation.
func (c *CatalogPipeline) InvalidateFacets(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Warn("facet cache invalidation failed", "error", err)
	}
}
