// Package blog provides a reusable library for authoring, publishing and
// engaging with blog posts, with pluggable repository, media and cache
// backends.
//
// It exposes a single Service interface that orchestrates post creation and
// editing, slug assignment, catalog listing with a global tag facet, views,
// likes, bookmarks and comments. Ownership and draft visibility are enforced
// by the Service; the stores only enforce data invariants such as slug
// uniqueness and the like counter matching the set of likers.
//
// Implementations of repositories (memory, Postgres), media stores (memory,
// filesystem, S3), a Redis facet cache and a JWT AuthService are provided
// under subpackages.
//
// # Slugs
//
// A slug is derived from the title and made unique by probing base, base-1,
// base-2 and so on. Two concurrent writers may probe the same free
// candidate; the store rejects the loser with ErrSlugTaken and the writer
// continues probing from the next suffix.
package blog
