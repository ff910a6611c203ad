package blog

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus is the domain type for post lifecycle states.
type PostStatus string

// Post status constants (typed).
const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// IsValid reports whether s is a known post status.
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished:
		return true
	default:
		return false
	}
}

// Role is the role carried by an author identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DefaultImageURL is used for posts without a cover and authors without an avatar.
const DefaultImageURL = "/images/default.png"

// Post represents a published or draft article.
//
// LikesCount always equals len(LikedBy); both are only changed together by
// the store's ToggleLike.
type Post struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Slug          string      `json:"slug"`
	Excerpt       string      `json:"excerpt"`
	Tags          []string    `json:"tags"`
	Status        PostStatus  `json:"status"`
	Body          string      `json:"body"`
	CoverImageURL string      `json:"cover_image_url"`
	CreatedBy     uuid.UUID   `json:"created_by"`
	Views         int64       `json:"views"`
	LikesCount    int         `json:"likes_count"`
	LikedBy       []uuid.UUID `json:"liked_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsPublished reports whether the post is visible to everyone.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// IsLikedBy reports whether authorID is in the post's LikedBy set.
func (p *Post) IsLikedBy(authorID uuid.UUID) bool {
	for _, id := range p.LikedBy {
		if id == authorID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.LikedBy = append([]uuid.UUID(nil), p.LikedBy...)
	return &c
}

// PostFields is a partial update of a post. Nil fields are left untouched.
type PostFields struct {
	Title         *string
	Slug          *string
	Excerpt       *string
	Tags          []string
	SetTags       bool
	Status        *PostStatus
	Body          *string
	CoverImageURL *string
	UpdatedAt     time.Time
}

// Comment is an append-only child record of a post.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	PostID    uuid.UUID `json:"post_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Author is the local record of an external identity.
type Author struct {
	ID              uuid.UUID   `json:"id"`
	FullName        string      `json:"full_name"`
	Email           string      `json:"email"`
	ProfileImageURL string      `json:"profile_image_url"`
	Role            Role        `json:"role"`
	Bookmarks       []uuid.UUID `json:"bookmarks,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// HasBookmark reports whether postID is in the author's bookmark set.
func (a *Author) HasBookmark(postID uuid.UUID) bool {
	for _, id := range a.Bookmarks {
		if id == postID {
			return true
		}
	}
	return false
}

// AuthorSummary holds the display attributes shown next to posts and comments.
type AuthorSummary struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	ProfileImageURL string    `json:"profile_image_url"`
}

// Summary returns the display attributes of the author.
func (a *Author) Summary() *AuthorSummary {
	return &AuthorSummary{
		ID:              a.ID,
		FullName:        a.FullName,
		ProfileImageURL: a.ProfileImageURL,
	}
}

// Identity is the caller identity resolved by an AuthService.
type Identity struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profile_image_url"`
	Role            Role      `json:"role"`
}

// Owns reports whether the identity created the post.
func (i *Identity) Owns(p *Post) bool {
	return i != nil && p != nil && i.ID == p.CreatedBy
}

// TagCount is one facet entry: a tag and the number of published posts carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// PostFilter restricts a post query. Zero values mean "no restriction".
type PostFilter struct {
	Status    PostStatus
	Slug      string
	ExcludeID uuid.UUID
	CreatedBy uuid.UUID
	// Search matches title, excerpt or any tag as a case-insensitive substring.
	Search string
	// Tag requires the exact tag to be present.
	Tag string
	// AnyTags requires at least one of the tags to be present.
	AnyTags []string
}

// PostSort is the ordering applied to a post query.
type PostSort string

const (
	SortLatest  PostSort = "latest"
	SortOldest  PostSort = "oldest"
	SortPopular PostSort = "popular"
)

// ParseSort returns the sort named by s, falling back to SortLatest.
func ParseSort(s string) PostSort {
	switch PostSort(s) {
	case SortLatest, SortOldest, SortPopular:
		return PostSort(s)
	default:
		return SortLatest
	}
}
