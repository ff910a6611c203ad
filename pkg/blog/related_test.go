package blog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
)

func ids(posts []*blog.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}

func TestRelatedSelector_Select(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.author(t, "Ada")

	subject := f.create(t, ada, "Subject", "go, web", blog.PostStatusPublished)
	f.create(t, ada, "Go one", "go", blog.PostStatusPublished)
	f.create(t, ada, "Unrelated", "cooking", blog.PostStatusPublished)
	f.create(t, ada, "Web two", "web", blog.PostStatusPublished)
	f.create(t, ada, "Go draft", "go", blog.PostStatusDraft)
	f.create(t, ada, "Go three", "go, rust", blog.PostStatusPublished)
	f.create(t, ada, "Go four", "go", blog.PostStatusPublished)

	selector := blog.NewRelatedSelector(f.repo)

	related, err := selector.Select(ctx, subject, blog.DefaultRelatedLimit)
	require.NoError(t, err)
	assert.Equal(t, []string{"go-four", "go-three", "web-two"}, ids(related))

	related, err = selector.Select(ctx, subject, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"go-four", "go-three", "web-two", "go-one"}, ids(related))
}

func TestRelatedSelector_FallsBackToRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.author(t, "Ada")

	f.create(t, ada, "First", "a", blog.PostStatusPublished)
	f.create(t, ada, "Second", "b", blog.PostStatusPublished)
	subject := f.create(t, ada, "Lonely", "nobody-else", blog.PostStatusPublished)
	untagged := f.create(t, ada, "Untagged", "", blog.PostStatusPublished)

	selector := blog.NewRelatedSelector(f.repo)

	related, err := selector.Select(ctx, subject, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"untagged", "second", "first"}, ids(related))

	related, err = selector.Select(ctx, untagged, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"lonely", "second"}, ids(related), "the subject is never included")
}
