package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository Repository
	media      MediaStore
	cache      FacetCache
	eventSink  EventSink
	logger     *slog.Logger
	now        func() time.Time

	slugs      *SlugService
	engagement *EngagementEngine
	related    *RelatedSelector
	catalog    *CatalogPipeline
	comments   *CommentThread
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithMediaStore sets the store used for cover image uploads
func WithMediaStore(store MediaStore) Option {
	return func(s *service) {
		s.media = store
	}
}

// WithFacetCache sets the cache for the catalog tag facet
func WithFacetCache(cache FacetCache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.slugs = NewSlugService(s.repository, s.now)
	s.engagement = NewEngagementEngine(s.repository, s.logger)
	s.related = NewRelatedSelector(s.repository)
	s.catalog = NewCatalogPipeline(s.repository, s.cache, s.logger)
	s.comments = NewCommentThread(s.repository, s.now)

	return s, nil
}

// Post lifecycle

func (s *service) CreatePost(ctx context.Context, actor *Identity, req CreatePostRequest) (*Post, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	form, err := req.validate()
	if err != nil {
		return nil, err
	}

	cover := DefaultImageURL
	if req.Cover != nil {
		url, err := s.storeCover(ctx, *req.Cover)
		if err != nil {
			return nil, err
		}
		cover = url
	}

	now := s.now().UTC()
	post := &Post{
		ID:            uuid.New(),
		Title:         form.Title,
		Excerpt:       DeriveExcerpt(form.Excerpt, form.Body),
		Tags:          NormalizeTags(form.Tags),
		Status:        PostStatus(form.Status),
		Body:          form.Body,
		CoverImageURL: cover,
		CreatedBy:     actor.ID,
		LikedBy:       []uuid.UUID{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = s.slugs.Claim(ctx, s.slugs.DeriveBase(form.Title), uuid.Nil, func(slug string) error {
		post.Slug = slug
		return s.repository.CreatePost(ctx, post)
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.catalog.InvalidateFacets(ctx)
	if err := s.eventSink.PostCreated(ctx, post); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "post_created", "post_id", post.ID, "error", err)
	}
	return post, nil
}

func (s *service) GetPostForEdit(ctx context.Context, actor *Identity, identifier string) (*EditView, error) {
	post, err := s.loadOwned(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	return &EditView{
		Post: post,
		Form: PostForm{
			Title:   post.Title,
			Excerpt: post.Excerpt,
			Tags:    JoinTags(post.Tags),
			Status:  string(post.Status),
			Body:    post.Body,
		},
	}, nil
}

func (s *service) UpdatePost(ctx context.Context, actor *Identity, identifier string, req UpdatePostRequest) (*Post, error) {
	post, err := s.loadOwned(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	form, err := req.validate()
	if err != nil {
		return nil, err
	}

	status := PostStatus(form.Status)
	excerpt := DeriveExcerpt(form.Excerpt, form.Body)
	fields := PostFields{
		Title:     &form.Title,
		Excerpt:   &excerpt,
		Tags:      NormalizeTags(form.Tags),
		SetTags:   true,
		Status:    &status,
		Body:      &form.Body,
		UpdatedAt: s.now().UTC(),
	}

	if req.Cover != nil {
		url, err := s.storeCover(ctx, *req.Cover)
		if err != nil {
			return nil, err
		}
		fields.CoverImageURL = &url
	}

	if form.Title != post.Title {
		_, err = s.slugs.Claim(ctx, s.slugs.DeriveBase(form.Title), post.ID, func(slug string) error {
			fields.Slug = &slug
			return s.repository.UpdatePostFields(ctx, post.ID, fields)
		})
	} else {
		err = s.repository.UpdatePostFields(ctx, post.ID, fields)
	}
	if err != nil {
		return nil, &PostError{PostID: post.ID, Op: "update", Err: err}
	}

	updated, err := s.repository.GetPost(ctx, post.ID)
	if err != nil {
		return nil, &PostError{PostID: post.ID, Op: "update", Err: err}
	}

	s.catalog.InvalidateFacets(ctx)
	if err := s.eventSink.PostUpdated(ctx, updated); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "post_updated", "post_id", updated.ID, "error", err)
	}
	return updated, nil
}

func (s *service) DeletePost(ctx context.Context, actor *Identity, identifier string) error {
	post, err := s.loadOwned(ctx, actor, identifier)
	if err != nil {
		return err
	}
	if err := s.engagement.CascadeDeletePost(ctx, post.ID); err != nil {
		return err
	}

	s.catalog.InvalidateFacets(ctx)
	if err := s.eventSink.PostDeleted(ctx, post.ID); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "post_deleted", "post_id", post.ID, "error", err)
	}
	return nil
}

// Reading

func (s *service) GetPost(ctx context.Context, viewer *Identity, identifier string) (*PostDetail, error) {
	post, err := s.loadVisible(ctx, viewer, identifier)
	if err != nil {
		return nil, err
	}

	if err := s.engagement.IncrementView(ctx, post.ID); err != nil {
		return nil, err
	}
	post.Views++

	detail := &PostDetail{
		Post:    post,
		IsOwner: viewer.Owns(post),
	}

	authors, err := ResolveAuthors(ctx, s.repository, []uuid.UUID{post.CreatedBy})
	if err != nil {
		return nil, err
	}
	detail.Author = authors[post.CreatedBy]

	if detail.Comments, err = s.comments.ListFor(ctx, post.ID); err != nil {
		return nil, err
	}
	if detail.Related, err = s.related.Select(ctx, post, DefaultRelatedLimit); err != nil {
		return nil, err
	}

	if viewer != nil {
		detail.IsLiked = post.IsLikedBy(viewer.ID)
		reader, err := s.repository.GetAuthor(ctx, viewer.ID)
		switch {
		case err == nil:
			detail.IsBookmarked = reader.HasBookmark(post.ID)
		case !errors.Is(err, ErrAuthorNotFound):
			return nil, fmt.Errorf("load reader: %w", err)
		}
	}
	return detail, nil
}

func (s *service) Catalog(ctx context.Context, req CatalogRequest) (*CatalogPage, error) {
	return s.catalog.List(ctx, req)
}

// Engagement

func (s *service) ToggleLike(ctx context.Context, actor *Identity, identifier string) (*LikeResult, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	post, err := s.loadVisible(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	return s.engagement.ToggleLike(ctx, post.ID, actor.ID)
}

func (s *service) ToggleBookmark(ctx context.Context, actor *Identity, identifier string) (*BookmarkResult, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	post, err := s.loadVisible(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	return s.engagement.ToggleBookmark(ctx, actor.ID, post.ID)
}

// Comments

func (s *service) AddComment(ctx context.Context, actor *Identity, identifier string, content string) (*Comment, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	post, err := s.loadVisible(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}

	comment, err := s.comments.Post(ctx, post.ID, actor.ID, content)
	if err != nil {
		return nil, err
	}
	if err := s.eventSink.CommentAdded(ctx, comment); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "comment_added", "comment_id", comment.ID, "error", err)
	}
	return comment, nil
}

func (s *service) ListComments(ctx context.Context, viewer *Identity, identifier string) ([]*CommentView, error) {
	post, err := s.loadVisible(ctx, viewer, identifier)
	if err != nil {
		return nil, err
	}
	return s.comments.ListFor(ctx, post.ID)
}

// Authors

func (s *service) EnsureAuthor(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return ErrUnauthenticated
	}
	author := &Author{
		ID:              identity.ID,
		FullName:        identity.FullName,
		Email:           identity.Email,
		ProfileImageURL: identity.ProfileImageURL,
		Role:            identity.Role,
		CreatedAt:       s.now().UTC(),
	}
	if author.ProfileImageURL == "" {
		author.ProfileImageURL = DefaultImageURL
	}
	if author.Role == "" {
		author.Role = RoleUser
	}
	if err := s.repository.UpsertAuthor(ctx, author); err != nil {
		return fmt.Errorf("upsert author %s: %w", identity.ID, err)
	}
	return nil
}

// loadVisible finds a post by identifier. Drafts are only visible to their owner.
func (s *service) loadVisible(ctx context.Context, viewer *Identity, identifier string) (*Post, error) {
	post, err := FindPostByIdentifier(ctx, s.repository, identifier)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() && !viewer.Owns(post) {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// loadOwned finds a post by identifier and checks the actor created it.
func (s *service) loadOwned(ctx context.Context, actor *Identity, identifier string) (*Post, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	post, err := FindPostByIdentifier(ctx, s.repository, identifier)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(post) {
		return nil, ErrForbidden
	}
	return post, nil
}

func (s *service) storeCover(ctx context.Context, obj MediaObject) (string, error) {
	if s.media == nil {
		return "", &MediaError{Backend: "none", Key: obj.FileName, Op: "store", Err: errors.New("no media store configured")}
	}
	url, err := s.media.Store(ctx, obj)
	if err != nil {
		if errors.Is(err, ErrMediaUnavailable) {
			return "", err
		}
		return "", &MediaError{Backend: "unknown", Key: obj.FileName, Op: "store", Err: err}
	}
	return url, nil
}
