package blog

import "strings"

// Request/Response DTOs

// CoverUpload is an optional cover image submitted with a post form
type CoverUpload = MediaObject

// CreatePostRequest contains the submitted post form
type CreatePostRequest struct {
	Title   string
	Excerpt string
	Tags    string
	Status  string
	Body    string
	Cover   *CoverUpload
}

// UpdatePostRequest contains the submitted edit form. The cover image is
// replaced only when Cover is set.
type UpdatePostRequest = CreatePostRequest

// form returns the trimmed submitted values.
func (r CreatePostRequest) form() PostForm {
	status := strings.TrimSpace(r.Status)
	if status == "" {
		status = string(PostStatusPublished)
	}
	return PostForm{
		Title:   strings.TrimSpace(r.Title),
		Excerpt: strings.TrimSpace(r.Excerpt),
		Tags:    strings.TrimSpace(r.Tags),
		Status:  status,
		Body:    strings.TrimSpace(r.Body),
	}
}

// validate checks required fields and the status value. Nothing is
// written when it fails.
func (r CreatePostRequest) validate() (PostForm, error) {
	f := r.form()
	if f.Title == "" || f.Body == "" {
		return f, &ValidationError{Message: "Title and body are required.", Form: &f}
	}
	if !PostStatus(f.Status).IsValid() {
		reset := f
		reset.Status = string(PostStatusPublished)
		return f, &ValidationError{Message: "Invalid blog status.", Form: &reset}
	}
	return f, nil
}

// PostDetail is a post together with everything shown on its page.
type PostDetail struct {
	Post         *Post          `json:"post"`
	Author       *AuthorSummary `json:"author,omitempty"`
	Comments     []*CommentView `json:"comments"`
	Related      []*Post        `json:"related"`
	IsOwner      bool           `json:"is_owner"`
	IsLiked      bool           `json:"is_liked"`
	IsBookmarked bool           `json:"is_bookmarked"`
}

// EditView is a post prepared for its edit form.
type EditView struct {
	Post *Post    `json:"post"`
	Form PostForm `json:"form"`
}
