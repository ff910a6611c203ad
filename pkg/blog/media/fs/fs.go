package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/media"
)

// DefaultURLPrefix is where the HTTP server exposes stored files.
const DefaultURLPrefix = "/uploads"

// Config options for the filesystem media store
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // URL prefix the files are served under (default /uploads)
	Folder    string // Key prefix inside BaseDir (default blog-uploads)
}

// Store is a filesystem implementation of the blog.MediaStore interface
type Store struct {
	baseDir   string
	urlPrefix string
	folder    string
	now       func() time.Time
}

// New creates a new filesystem media store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.URLPrefix == "" {
		config.URLPrefix = DefaultURLPrefix
	}
	if config.Folder == "" {
		config.Folder = media.DefaultFolder
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir:   config.BaseDir,
		urlPrefix: config.URLPrefix,
		folder:    config.Folder,
		now:       time.Now,
	}, nil
}

var _ blog.MediaStore = (*Store)(nil)

// Store writes the upload under the base directory and returns its public URL
func (s *Store) Store(ctx context.Context, obj blog.MediaObject) (string, error) {
	key := media.ObjectKey(s.folder, obj.FileName, s.now())
	if err := s.write(key, obj.Body); err != nil {
		return "", &blog.MediaError{Backend: "fs", Key: key, Op: "store", Err: err}
	}
	return media.JoinURL(s.urlPrefix, key), nil
}

func (s *Store) write(key string, body io.Reader) error {
	filePath := filepath.Join(s.baseDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(filePath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return file.Close()
}

// URLPrefix returns the prefix stored files are served under
func (s *Store) URLPrefix() string {
	return s.urlPrefix
}

// Handler serves stored files. Mount it at URLPrefix.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(s.urlPrefix, http.FileServer(http.Dir(s.baseDir)))
}
