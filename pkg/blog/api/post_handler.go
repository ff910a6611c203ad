package api

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/blog"
)

// maxUploadBytes bounds a multipart post form including its cover image.
const maxUploadBytes = 10 << 20

// PostHandler handles HTTP requests for posts, engagement and comments
type PostHandler struct {
	service blog.Service
	logger  *slog.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(service blog.Service, logger *slog.Logger) *PostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostHandler{
		service: service,
		logger:  logger,
	}
}

// Routes returns the routes for posts. Write routes require a caller.
func (h *PostHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Catalog)
	r.Get("/{identifier}", h.GetPost)
	r.Get("/{identifier}/comments", h.ListComments)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)

		r.Post("/", h.CreatePost)
		r.Get("/{identifier}/edit", h.EditForm)
		r.Post("/{identifier}/edit", h.UpdatePost)
		r.Post("/{identifier}/delete", h.DeletePost)
		r.Post("/{identifier}/like", h.ToggleLike)
		r.Post("/{identifier}/bookmark", h.ToggleBookmark)
		r.Post("/{identifier}/comments", h.AddComment)
	})

	return r
}

// Catalog lists posts with search, tag filter, sort and pagination
func (h *PostHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.Catalog(r.Context(), blog.CatalogRequest{
		Query: q.Get("q"),
		Tag:   q.Get("tag"),
		Sort:  q.Get("sort"),
		Page:  q.Get("page"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, page)
}

// GetPost returns a post by id or slug with its author, comments and related posts
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetPost(r.Context(), IdentityFromContext(r.Context()), identifier(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, detail)
}

// CreatePost creates a post from a form, JSON or multipart body
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := parsePostForm(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cleanup()

	post, err := h.service.CreatePost(r.Context(), IdentityFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Post created", "post_id", post.ID, "slug", post.Slug)
	w.Header().Set("Location", "/api/v1/posts/"+url.PathEscape(post.Slug))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, post)
}

// EditForm returns the current values of an owned post
func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetPostForEdit(r.Context(), IdentityFromContext(r.Context()), identifier(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, view)
}

// UpdatePost applies an edit form to an owned post
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := parsePostForm(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cleanup()

	post, err := h.service.UpdatePost(r.Context(), IdentityFromContext(r.Context()), identifier(r), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Post updated", "post_id", post.ID, "slug", post.Slug)
	render.JSON(w, r, post)
}

// DeletePost removes an owned post with its comments, likes and bookmarks
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePost(r.Context(), IdentityFromContext(r.Context()), identifier(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleLike flips the caller's like on a post
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ToggleLike(r.Context(), IdentityFromContext(r.Context()), identifier(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, result)
}

// ToggleBookmark flips the post in the caller's bookmarks
func (h *PostHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ToggleBookmark(r.Context(), IdentityFromContext(r.Context()), identifier(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, result)
}

type commentPayload struct {
	Content string `json:"content"`
}

// AddComment appends a comment to a post
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var content string
	if isJSON(r) {
		var payload commentPayload
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			writeError(w, r, h.logger, &blog.ValidationError{Message: "Invalid request body."})
			return
		}
		content = payload.Content
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, r, h.logger, &blog.ValidationError{Message: "Invalid form data."})
			return
		}
		content = r.PostForm.Get("content")
	}

	comment, err := h.service.AddComment(r.Context(), IdentityFromContext(r.Context()), identifier(r), content)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, comment)
}

// ListComments returns a post's comments oldest first
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListComments(r.Context(), IdentityFromContext(r.Context()), identifier(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if comments == nil {
		comments = []*blog.CommentView{}
	}
	render.JSON(w, r, comments)
}

func identifier(r *http.Request) string {
	return chi.URLParam(r, "identifier")
}

type postPayload struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Tags    string `json:"tags"`
	Status  string `json:"status"`
	Body    string `json:"body"`
}

// parsePostForm reads a post form from a JSON, urlencoded or multipart
// body. The returned cleanup closes the uploaded cover.
func parsePostForm(w http.ResponseWriter, r *http.Request) (blog.CreatePostRequest, func(), error) {
	noop := func() {}

	if isJSON(r) {
		var payload postPayload
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			return blog.CreatePostRequest{}, noop, &blog.ValidationError{Message: "Invalid request body."}
		}
		return payloadRequest(payload), noop, nil
	}

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return blog.CreatePostRequest{}, noop, &blog.ValidationError{Message: "Invalid form data."}
		}
		req := formRequest(r.MultipartForm.Value)

		file, header, err := r.FormFile("coverImage")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return req, func() { _ = r.MultipartForm.RemoveAll() }, nil
		case err != nil:
			return blog.CreatePostRequest{}, noop, &blog.ValidationError{Message: "Invalid cover image."}
		}
		req.Cover = &blog.CoverUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
		return req, func() {
			_ = file.Close()
			_ = r.MultipartForm.RemoveAll()
		}, nil
	}

	if err := r.ParseForm(); err != nil {
		return blog.CreatePostRequest{}, noop, &blog.ValidationError{Message: "Invalid form data."}
	}
	return formRequest(r.PostForm), noop, nil
}

func payloadRequest(p postPayload) blog.CreatePostRequest {
	return blog.CreatePostRequest{
		Title:   p.Title,
		Excerpt: p.Excerpt,
		Tags:    p.Tags,
		Status:  p.Status,
		Body:    p.Body,
	}
}

func formRequest(values map[string][]string) blog.CreatePostRequest {
	v := url.Values(values)
	return blog.CreatePostRequest{
		Title:   v.Get("title"),
		Excerpt: v.Get("excerpt"),
		Tags:    v.Get("tags"),
		Status:  v.Get("status"),
		Body:    v.Get("body"),
	}
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func isJSON(r *http.Request) bool {
	return mediaType(r) == "application/json"
}

func isMultipart(r *http.Request) bool {
	return mediaType(r) == "multipart/form-data"
}
