package memory

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/media"
)

// Object is a stored upload
type Object struct {
	Data        []byte
	ContentType string
}

// Store is an in-memory implementation of the blog.MediaStore interface
type Store struct {
	mu        sync.RWMutex
	objects   map[string]Object
	urlPrefix string
	folder    string
}

// New creates a new in-memory media store. URLs are <urlPrefix>/<key>.
func New(urlPrefix string) *Store {
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &Store{
		objects:   make(map[string]Object),
		urlPrefix: urlPrefix,
		folder:    media.DefaultFolder,
	}
}

var _ blog.MediaStore = (*Store)(nil)

// Store keeps the upload in memory and returns its URL
func (s *Store) Store(ctx context.Context, obj blog.MediaObject) (string, error) {
	key := media.ObjectKey(s.folder, obj.FileName, time.Now())

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", &blog.MediaError{Backend: "memory", Key: key, Op: "store", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: data, ContentType: media.ContentType(obj.ContentType)}

	return media.JoinURL(s.urlPrefix, key), nil
}

// Get returns a stored object by key
func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
