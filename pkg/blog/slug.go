package blog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxSlugClaims bounds how many times a lost slug race is retried before
// the write is reported as failed.
const maxSlugClaims = 32

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace   = regexp.MustCompile(`\s+`)
	slugHyphens      = regexp.MustCompile(`-+`)
)

// SlugService derives URL-safe identifiers from titles and keeps them unique.
type SlugService struct {
	posts PostStore
	now   func() time.Time
}

// NewSlugService creates a slug service backed by posts.
func NewSlugService(posts PostStore, now func() time.Time) *SlugService {
	if now == nil {
		now = time.Now
	}
	return &SlugService{posts: posts, now: now}
}

// Slugify lowercases value and reduces it to [a-z0-9-] with single hyphens
// and no leading or trailing hyphen. The result may be empty.
func Slugify(value string) string {
	s := strings.TrimSpace(strings.ToLower(value))
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DeriveBase returns the slug base for title, or post-<unix millis> when the
// title has no usable characters.
func (s *SlugService) DeriveBase(title string) string {
	if base := Slugify(title); base != "" {
		return base
	}
	return "post-" + strconv.FormatInt(s.now().UnixMilli(), 10)
}

func slugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// EnsureUnique returns the first of base, base-1, base-2, ... that no post
// other than excludeID uses. uuid.Nil excludes nothing.
func (s *SlugService) EnsureUnique(ctx context.Context, base string, excludeID uuid.UUID) (string, error) {
	slug, _, err := s.probe(ctx, base, excludeID, 0)
	return slug, err
}

func (s *SlugService) probe(ctx context.Context, base string, excludeID uuid.UUID, from int) (string, int, error) {
	for n := from; ; n++ {
		candidate := slugCandidate(base, n)
		exists, err := s.posts.PostExists(ctx, PostFilter{Slug: candidate, ExcludeID: excludeID})
		if err != nil {
			return "", 0, fmt.Errorf("probe slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, n, nil
		}
	}
}

// Claim probes for a free slug and hands it to write. When write reports
// ErrSlugTaken another writer won the race; probing resumes at the next
// suffix. The claimed slug is returned once write succeeds.
func (s *SlugService) Claim(ctx context.Context, base string, excludeID uuid.UUID, write func(slug string) error) (string, error) {
	from := 0
	for attempt := 0; attempt < maxSlugClaims; attempt++ {
		slug, n, err := s.probe(ctx, base, excludeID, from)
		if err != nil {
			return "", err
		}
		err = write(slug)
		if err == nil {
			return slug, nil
		}
		if !errors.Is(err, ErrSlugTaken) {
			return "", err
		}
		from = n + 1
	}
	return "", fmt.Errorf("claim slug %q: gave up after %d attempts: %w", base, maxSlugClaims, ErrSlugTaken)
}
