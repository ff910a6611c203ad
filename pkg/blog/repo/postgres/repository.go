package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-blog/pkg/blog"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements blog.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

var (
	_ blog.Repository = (*Repository)(nil)
	_ blog.Transactor = (*Repository)(nil)
)

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// WithinTx runs fn against a repository bound to a single transaction.
// When the underlying DBTX cannot begin a transaction fn runs directly.
func (r *Repository) WithinTx(ctx context.Context, fn func(repo blog.Repository) error) error {
	beginner, ok := r.db.(interface {
		Begin(context.Context) (pgx.Tx, error)
	})
	if !ok {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, beginner, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == "posts_slug_key" {
				return fmt.Errorf("%s: %w", operation, blog.ErrSlugTaken)
			}
			return fmt.Errorf("%s: duplicate entry", operation)
		case "23503": // foreign_key_violation
			if pgErr.ConstraintName == "comments_post_id_fkey" {
				return fmt.Errorf("%s: %w", operation, blog.ErrPostNotFound)
			}
			return fmt.Errorf("%s: referenced record not found", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required field %s is missing", operation, pgErr.ColumnName)
		case "23514": // check_violation
			if pgErr.ConstraintName == "posts_status_check" {
				return fmt.Errorf("%s: %w", operation, blog.ErrInvalidStatus)
			}
			return fmt.Errorf("%s: check %s violated", operation, pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Post operations

const postColumns = `id, title, slug, excerpt, tags, status, body, cover_image_url,
	created_by, views, likes_count, liked_by, created_at, updated_at`

func scanPost(row pgx.Row) (*blog.Post, error) {
	var p blog.Post
	var status string
	if err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Tags, &status, &p.Body, &p.CoverImageURL,
		&p.CreatedBy, &p.Views, &p.LikesCount, &p.LikedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = blog.PostStatus(status)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.LikedBy == nil {
		p.LikedBy = []uuid.UUID{}
	}
	return &p, nil
}

func (r *Repository) CreatePost(ctx context.Context, post *blog.Post) error {
	query := `
		INSERT INTO posts (
			id, title, slug, excerpt, tags, status, body, cover_image_url,
			created_by, views, likes_count, liked_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, '{}', $10, $11)`

	_, err := r.db.Exec(ctx, query,
		post.ID, post.Title, post.Slug, post.Excerpt, nonNilTags(post.Tags), string(post.Status),
		post.Body, post.CoverImageURL, post.CreatedBy, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create post", err)
	}
	return nil
}

func (r *Repository) UpdatePostFields(ctx context.Context, id uuid.UUID, fields blog.PostFields) error {
	sets := []string{}
	args := []interface{}{id}
	argIndex := 2

	set := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	if fields.Title != nil {
		set("title", *fields.Title)
	}
	if fields.Slug != nil {
		set("slug", *fields.Slug)
	}
	if fields.Excerpt != nil {
		set("excerpt", *fields.Excerpt)
	}
	if fields.SetTags {
		set("tags", nonNilTags(fields.Tags))
	}
	if fields.Status != nil {
		set("status", string(*fields.Status))
	}
	if fields.Body != nil {
		set("body", *fields.Body)
	}
	if fields.CoverImageURL != nil {
		set("cover_image_url", *fields.CoverImageURL)
	}
	if !fields.UpdatedAt.IsZero() {
		set("updated_at", fields.UpdatedAt)
	}
	if len(sets) == 0 {
		_, err := r.GetPost(ctx, id)
		return err
	}

	query := fmt.Sprintf("UPDATE posts SET %s WHERE id = $1", strings.Join(sets, ", "))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrPostNotFound
	}
	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrPostNotFound
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blog.ErrPostNotFound
		}
		return nil, r.handlePostgresError("get post", err)
	}
	return post, nil
}

func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = $1`
	post, err := scanPost(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blog.ErrPostNotFound
		}
		return nil, r.handlePostgresError("get post by slug", err)
	}
	return post, nil
}

func (r *Repository) PostExists(ctx context.Context, filter blog.PostFilter) (bool, error) {
	where, args := buildPostWhere(filter)
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE `+where+`)`, args...).Scan(&exists); err != nil {
		return false, r.handlePostgresError("post exists", err)
	}
	return exists, nil
}

func (r *Repository) CountPosts(ctx context.Context, filter blog.PostFilter) (int, error) {
	where, args := buildPostWhere(filter)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE `+where, args...).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count posts", err)
	}
	return count, nil
}

func (r *Repository) QueryPosts(ctx context.Context, filter blog.PostFilter, order blog.PostSort, skip, limit int) ([]*blog.Post, error) {
	where, args := buildPostWhere(filter)
	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + where + ` ORDER BY ` + orderBy(order)

	argIndex := len(args) + 1
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}
	if skip > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, skip)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("query posts", err)
	}
	defer rows.Close()

	posts := []*blog.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate post rows", err)
	}
	return posts, nil
}

func (r *Repository) TagFrequency(ctx context.Context, limit int) ([]blog.TagCount, error) {
	query := `
		SELECT t.tag, COUNT(*) AS n
		FROM posts p
		CROSS JOIN LATERAL unnest(p.tags) WITH ORDINALITY AS t(tag, pos)
		WHERE p.status = 'published'
		GROUP BY t.tag
		ORDER BY n DESC, MIN(p.seq) ASC, MIN(t.pos) ASC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("tag frequency", err)
	}
	defer rows.Close()

	counts := []blog.TagCount{}
	for rows.Next() {
		var tc blog.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, r.handlePostgresError("scan tag count", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate tag rows", err)
	}
	return counts, nil
}

func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("increment views", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrPostNotFound
	}
	return nil
}

// ToggleLike flips membership and the counter in one statement; the row
// lock serializes concurrent toggles on the same post.
func (r *Repository) ToggleLike(ctx context.Context, postID, authorID uuid.UUID) (bool, error) {
	query := `
		UPDATE posts SET
			liked_by = CASE WHEN $2::uuid = ANY(liked_by)
				THEN array_remove(liked_by, $2::uuid)
				ELSE array_append(liked_by, $2::uuid) END,
			likes_count = CASE WHEN $2::uuid = ANY(liked_by)
				THEN likes_count - 1
				ELSE likes_count + 1 END
		WHERE id = $1
		RETURNING $2::uuid = ANY(liked_by)`

	var liked bool
	if err := r.db.QueryRow(ctx, query, postID, authorID).Scan(&liked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, blog.ErrPostNotFound
		}
		return false, r.handlePostgresError("toggle like", err)
	}
	return liked, nil
}

// Comment operations

func (r *Repository) CreateComment(ctx context.Context, comment *blog.Comment) error {
	query := `
		INSERT INTO comments (id, content, post_id, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		comment.ID, comment.Content, comment.PostID, comment.AuthorID, comment.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create comment", err)
	}
	return nil
}

func (r *Repository) ListComments(ctx context.Context, postID uuid.UUID) ([]*blog.Comment, error) {
	query := `
		SELECT id, content, post_id, author_id, created_at
		FROM comments WHERE post_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, postID)
	if err != nil {
		return nil, r.handlePostgresError("list comments", err)
	}
	defer rows.Close()

	comments := []*blog.Comment{}
	for rows.Next() {
		var c blog.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.PostID, &c.AuthorID, &c.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan comment", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate comment rows", err)
	}
	return comments, nil
}

func (r *Repository) DeleteCommentsByPost(ctx context.Context, postID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, postID)
	if err != nil {
		return 0, r.handlePostgresError("delete comments", err)
	}
	return int(tag.RowsAffected()), nil
}

// Author operations

func (r *Repository) UpsertAuthor(ctx context.Context, author *blog.Author) error {
	query := `
		INSERT INTO authors (id, full_name, email, profile_image_url, role, bookmarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			profile_image_url = EXCLUDED.profile_image_url,
			role = EXCLUDED.role`

	bookmarks := author.Bookmarks
	if bookmarks == nil {
		bookmarks = []uuid.UUID{}
	}
	_, err := r.db.Exec(ctx, query,
		author.ID, author.FullName, author.Email, author.ProfileImageURL,
		string(author.Role), bookmarks, author.CreatedAt)
	if err != nil {
		return r.handlePostgresError("upsert author", err)
	}
	return nil
}

const authorColumns = `id, full_name, email, profile_image_url, role, bookmarks, created_at`

func scanAuthor(row pgx.Row) (*blog.Author, error) {
	var a blog.Author
	var role string
	if err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.ProfileImageURL, &role, &a.Bookmarks, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = blog.Role(role)
	return &a, nil
}

func (r *Repository) GetAuthor(ctx context.Context, id uuid.UUID) (*blog.Author, error) {
	author, err := scanAuthor(r.db.QueryRow(ctx, `SELECT `+authorColumns+` FROM authors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blog.ErrAuthorNotFound
		}
		return nil, r.handlePostgresError("get author", err)
	}
	return author, nil
}

func (r *Repository) GetAuthors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*blog.Author, error) {
	result := make(map[uuid.UUID]*blog.Author, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+authorColumns+` FROM authors WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, r.handlePostgresError("get authors", err)
	}
	defer rows.Close()

	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan author", err)
		}
		result[author.ID] = author
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate author rows", err)
	}
	return result, nil
}

func (r *Repository) ToggleBookmark(ctx context.Context, authorID, postID uuid.UUID) (bool, error) {
	query := `
		UPDATE authors SET
			bookmarks = CASE WHEN $2::uuid = ANY(bookmarks)
				THEN array_remove(bookmarks, $2::uuid)
				ELSE array_append(bookmarks, $2::uuid) END
		WHERE id = $1
		RETURNING $2::uuid = ANY(bookmarks)`

	var bookmarked bool
	if err := r.db.QueryRow(ctx, query, authorID, postID).Scan(&bookmarked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, blog.ErrAuthorNotFound
		}
		return false, r.handlePostgresError("toggle bookmark", err)
	}
	return bookmarked, nil
}

func (r *Repository) RemoveBookmarks(ctx context.Context, postID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE authors SET bookmarks = array_remove(bookmarks, $1::uuid) WHERE $1::uuid = ANY(bookmarks)`, postID)
	if err != nil {
		return 0, r.handlePostgresError("remove bookmarks", err)
	}
	return int(tag.RowsAffected()), nil
}

// buildPostWhere builds the WHERE clause for a post filter. Placeholders
// start at $1.
func buildPostWhere(filter blog.PostFilter) (string, []interface{}) {
	conds := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	add := func(format string, value interface{}) {
		conds = append(conds, fmt.Sprintf(format, argIndex))
		args = append(args, value)
		argIndex++
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Slug != "" {
		add("slug = $%d", filter.Slug)
	}
	if filter.ExcludeID != uuid.Nil {
		add("id <> $%d", filter.ExcludeID)
	}
	if filter.CreatedBy != uuid.Nil {
		add("created_by = $%d", filter.CreatedBy)
	}
	if filter.Tag != "" {
		add("$%d = ANY(tags)", filter.Tag)
	}
	if len(filter.AnyTags) > 0 {
		add("tags && $%d::text[]", filter.AnyTags)
	}
	if filter.Search != "" {
		n := argIndex
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR excerpt ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) AS t(tag) WHERE t.tag ILIKE $%d))", n, n, n))
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		argIndex++
	}

	return strings.Join(conds, " AND "), args
}

func orderBy(order blog.PostSort) string {
	switch order {
	case blog.SortOldest:
		return "created_at ASC, seq ASC"
	case blog.SortPopular:
		return "views DESC, created_at DESC, seq ASC"
	default:
		return "created_at DESC, seq ASC"
	}
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
