package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-blog/pkg/blog"
)

// Repository implements blog.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	posts    map[uuid.UUID]*blog.Post
	seq      map[uuid.UUID]uint64          // post_id -> insertion sequence
	bySlug   map[string]uuid.UUID          // slug -> post_id
	comments map[uuid.UUID][]*blog.Comment // post_id -> comments
	authors  map[uuid.UUID]*blog.Author
	nextSeq  uint64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		posts:    make(map[uuid.UUID]*blog.Post),
		seq:      make(map[uuid.UUID]uint64),
		bySlug:   make(map[string]uuid.UUID),
		comments: make(map[uuid.UUID][]*blog.Comment),
		authors:  make(map[uuid.UUID]*blog.Author),
	}
}

var _ blog.Repository = (*Repository)(nil)

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *blog.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.bySlug[post.Slug]; taken {
		return blog.ErrSlugTaken
	}

	p := post.Clone()
	if p.LikedBy == nil {
		p.LikedBy = []uuid.UUID{}
	}
	p.LikesCount = len(p.LikedBy)
	r.nextSeq++
	r.posts[p.ID] = p
	r.seq[p.ID] = r.nextSeq
	r.bySlug[p.Slug] = p.ID
	return nil
}

func (r *Repository) UpdatePostFields(ctx context.Context, id uuid.UUID, fields blog.PostFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.posts[id]
	if !exists {
		return blog.ErrPostNotFound
	}
	if fields.Slug != nil && *fields.Slug != p.Slug {
		if _, taken := r.bySlug[*fields.Slug]; taken {
			return blog.ErrSlugTaken
		}
		delete(r.bySlug, p.Slug)
		r.bySlug[*fields.Slug] = id
		p.Slug = *fields.Slug
	}
	if fields.Title != nil {
		p.Title = *fields.Title
	}
	if fields.Excerpt != nil {
		p.Excerpt = *fields.Excerpt
	}
	if fields.SetTags {
		p.Tags = append([]string(nil), fields.Tags...)
	}
	if fields.Status != nil {
		p.Status = *fields.Status
	}
	if fields.Body != nil {
		p.Body = *fields.Body
	}
	if fields.CoverImageURL != nil {
		p.CoverImageURL = *fields.CoverImageURL
	}
	if !fields.UpdatedAt.IsZero() {
		p.UpdatedAt = fields.UpdatedAt
	}
	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.posts[id]
	if !exists {
		return blog.ErrPostNotFound
	}
	delete(r.bySlug, p.Slug)
	delete(r.seq, id)
	delete(r.posts, id)
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*blog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.posts[id]
	if !exists {
		return nil, blog.ErrPostNotFound
	}
	return p.Clone(), nil
}

func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.bySlug[slug]
	if !exists {
		return nil, blog.ErrPostNotFound
	}
	return r.posts[id].Clone(), nil
}

func (r *Repository) PostExists(ctx context.Context, filter blog.PostFilter) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Slug != "" {
		id, exists := r.bySlug[filter.Slug]
		if !exists {
			return false, nil
		}
		return matches(r.posts[id], filter), nil
	}
	for _, p := range r.posts {
		if matches(p, filter) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) CountPosts(ctx context.Context, filter blog.PostFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.filtered(filter)), nil
}

func (r *Repository) QueryPosts(ctx context.Context, filter blog.PostFilter, order blog.PostSort, skip, limit int) ([]*blog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filtered(filter)
	sortPosts(matched, order)

	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return []*blog.Post{}, nil
	}
	matched = matched[skip:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]*blog.Post, 0, len(matched))
	for _, p := range matched {
		result = append(result, p.Clone())
	}
	return result, nil
}

func (r *Repository) TagFrequency(ctx context.Context, limit int) ([]blog.TagCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	published := r.filtered(blog.PostFilter{Status: blog.PostStatusPublished})

	counts := make(map[string]int)
	var firstSeen []string
	for _, p := range published {
		for _, tag := range p.Tags {
			if _, seen := counts[tag]; !seen {
				firstSeen = append(firstSeen, tag)
			}
			counts[tag]++
		}
	}

	result := make([]blog.TagCount, 0, len(firstSeen))
	for _, tag := range firstSeen {
		result = append(result, blog.TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.posts[id]
	if !exists {
		return blog.ErrPostNotFound
	}
	p.Views++
	return nil
}

func (r *Repository) ToggleLike(ctx context.Context, postID, authorID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.posts[postID]
	if !exists {
		return false, blog.ErrPostNotFound
	}

	liked, remaining := toggle(p.LikedBy, authorID)
	p.LikedBy = remaining
	p.LikesCount = len(p.LikedBy)
	return liked, nil
}

// Comment operations

func (r *Repository) CreateComment(ctx context.Context, comment *blog.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[comment.PostID]; !exists {
		return blog.ErrPostNotFound
	}
	c := *comment
	r.comments[c.PostID] = append(r.comments[c.PostID], &c)
	return nil
}

func (r *Repository) ListComments(ctx context.Context, postID uuid.UUID) ([]*blog.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.comments[postID]
	result := make([]*blog.Comment, 0, len(stored))
	for _, c := range stored {
		cc := *c
		result = append(result, &cc)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) DeleteCommentsByPost(ctx context.Context, postID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.comments[postID])
	delete(r.comments, postID)
	return n, nil
}

// Author operations

// UpsertAuthor creates the author or refreshes its display attributes.
// Bookmarks and CreatedAt of an existing author are kept.
func (r *Repository) UpsertAuthor(ctx context.Context, author *blog.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.authors[author.ID]; ok {
		existing.FullName = author.FullName
		existing.Email = author.Email
		existing.ProfileImageURL = author.ProfileImageURL
		existing.Role = author.Role
		return nil
	}
	a := *author
	a.Bookmarks = append([]uuid.UUID{}, author.Bookmarks...)
	r.authors[a.ID] = &a
	return nil
}

func (r *Repository) GetAuthor(ctx context.Context, id uuid.UUID) (*blog.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.authors[id]
	if !exists {
		return nil, blog.ErrAuthorNotFound
	}
	return copyAuthor(a), nil
}

func (r *Repository) GetAuthors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*blog.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[uuid.UUID]*blog.Author, len(ids))
	for _, id := range ids {
		if a, exists := r.authors[id]; exists {
			result[id] = copyAuthor(a)
		}
	}
	return result, nil
}

func (r *Repository) ToggleBookmark(ctx context.Context, authorID, postID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.authors[authorID]
	if !exists {
		return false, blog.ErrAuthorNotFound
	}
	bookmarked, remaining := toggle(a.Bookmarks, postID)
	a.Bookmarks = remaining
	return bookmarked, nil
}

func (r *Repository) RemoveBookmarks(ctx context.Context, postID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.authors {
		if _, remaining := remove(a.Bookmarks, postID); len(remaining) != len(a.Bookmarks) {
			a.Bookmarks = remaining
			n++
		}
	}
	return n, nil
}

// filtered returns matching posts in insertion order. Callers hold the lock.
func (r *Repository) filtered(filter blog.PostFilter) []*blog.Post {
	var result []*blog.Post
	for _, p := range r.posts {
		if matches(p, filter) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return r.seq[result[i].ID] < r.seq[result[j].ID]
	})
	return result
}

func matches(p *blog.Post, f blog.PostFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Slug != "" && p.Slug != f.Slug {
		return false
	}
	if f.ExcludeID != uuid.Nil && p.ID == f.ExcludeID {
		return false
	}
	if f.CreatedBy != uuid.Nil && p.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Tag != "" && !hasTag(p.Tags, f.Tag) {
		return false
	}
	if len(f.AnyTags) > 0 {
		shared := false
		for _, t := range f.AnyTags {
			if hasTag(p.Tags, t) {
				shared = true
				break
			}
		}
		if !shared {
			return false
		}
	}
	if f.Search != "" && !searchMatches(p, f.Search) {
		return false
	}
	return true
}

func searchMatches(p *blog.Post, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Title), term) || strings.Contains(strings.ToLower(p.Excerpt), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// sortPosts orders posts already in insertion order; ties keep that order.
func sortPosts(posts []*blog.Post, order blog.PostSort) {
	switch order {
	case blog.SortOldest:
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt.Before(posts[j].CreatedAt)
		})
	case blog.SortPopular:
		sort.SliceStable(posts, func(i, j int) bool {
			if posts[i].Views != posts[j].Views {
				return posts[i].Views > posts[j].Views
			}
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	default:
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	}
}

// toggle removes id from set if present, otherwise appends it. It reports
// whether id is a member afterwards.
func toggle(set []uuid.UUID, id uuid.UUID) (bool, []uuid.UUID) {
	if found, remaining := remove(set, id); found {
		return false, remaining
	}
	return true, append(set, id)
}

func remove(set []uuid.UUID, id uuid.UUID) (bool, []uuid.UUID) {
	for i, v := range set {
		if v == id {
			out := make([]uuid.UUID, 0, len(set)-1)
			out = append(out, set[:i]...)
			return true, append(out, set[i+1:]...)
		}
	}
	return false, set
}

func copyAuthor(a *blog.Author) *blog.Author {
	c := *a
	c.Bookmarks = append([]uuid.UUID(nil), a.Bookmarks...)
	return &c
}
