package blog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
	memorymedia "github.com/tendant/simple-blog/pkg/blog/media/memory"
	"github.com/tendant/simple-blog/pkg/blog/repo/memory"
)

// tickingClock advances one minute per call so creation order is strict.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *tickingClock {
	return &tickingClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type fixture struct {
	svc   blog.Service
	repo  *memory.Repository
	media *memorymedia.Store
	sink  *recordingSink
}

func newFixture(t *testing.T, opts ...blog.Option) *fixture {
	t.Helper()
	f := &fixture{
		repo:  memory.New(),
		media: memorymedia.New("/uploads"),
		sink:  &recordingSink{},
	}
	options := append([]blog.Option{
		blog.WithRepository(f.repo),
		blog.WithMediaStore(f.media),
		blog.WithEventSink(f.sink),
		blog.WithClock(newClock().Now),
	}, opts...)
	svc, err := blog.New(options...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) author(t *testing.T, name string) *blog.Identity {
	t.Helper()
	identity := &blog.Identity{ID: uuid.New(), FullName: name}
	require.NoError(t, f.svc.EnsureAuthor(context.Background(), identity))
	return identity
}

func (f *fixture) create(t *testing.T, actor *blog.Identity, title, tags string, status blog.PostStatus) *blog.Post {
	t.Helper()
	post, err := f.svc.CreatePost(context.Background(), actor, blog.CreatePostRequest{
		Title:  title,
		Body:   "Body of " + title,
		Tags:   tags,
		Status: string(status),
	})
	require.NoError(t, err)
	return post
}

// recordingSink records emitted events
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) record(event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordingSink) PostCreated(ctx context.Context, post *blog.Post) error {
	return s.record("created:" + post.Slug)
}

func (s *recordingSink) PostUpdated(ctx context.Context, post *blog.Post) error {
	return s.record("updated:" + post.Slug)
}

func (s *recordingSink) PostDeleted(ctx context.Context, postID uuid.UUID) error {
	return s.record("deleted")
}

func (s *recordingSink) CommentAdded(ctx context.Context, comment *blog.Comment) error {
	return s.record("comment")
}

var _ blog.EventSink = (*recordingSink)(nil)
