package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/blog"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string         `json:"error"`
	Form  *blog.PostForm `json:"form,omitempty"`
}

// writeError maps domain errors to status codes. Details of unexpected
// errors are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	status, resp := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	case status != http.StatusNotFound:
		logger.InfoContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func statusFor(err error) (int, ErrorResponse) {
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: verr.Message, Form: verr.Form}
	case errors.Is(err, blog.ErrValidation), errors.Is(err, blog.ErrInvalidStatus):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, blog.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: "Authentication required."}
	case errors.Is(err, blog.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "You do not have permission to modify this post."}
	case errors.Is(err, blog.ErrPostNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Post not found."}
	case errors.Is(err, blog.ErrAuthorNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Author not found."}
	case errors.Is(err, blog.ErrMediaUnavailable):
		return http.StatusBadGateway, ErrorResponse{Error: "Cover image upload failed."}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error."}
	}
}
