package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/obscura-press/obscura/pkg/publishing"
)

// ErrObjectNotFound indicates the handle does not exist in the store
var ErrObjectNotFound = errors.New("object not found")

// Store is an in-memory implementation of publishing.AssetStore. It is the
// default backend for development and doubles as the test fake: it records
// deleted handles and supports failure injection for compensation tests.
type Store struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
	deleted      []string

	failUploadsAfter int // -1 = never
	uploads          int
	failDeletes      bool
}

// New creates a new in-memory asset store
func New() *Store {
	return &Store{
		objects:          make(map[string][]byte),
		contentTypes:     make(map[string]string),
		failUploadsAfter: -1,
	}
}

// Upload stores the bytes under a fresh handle and returns a memory:// ref
func (s *Store) Upload(ctx context.Context, reader io.Reader, input publishing.UploadInput) (publishing.AssetRef, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return publishing.AssetRef{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUploadsAfter >= 0 && s.uploads >= s.failUploadsAfter {
		return publishing.AssetRef{}, errors.New("injected upload failure")
	}
	s.uploads++

	handle := uuid.NewString() + path.Ext(input.FileName)
	s.objects[handle] = data
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.contentTypes[handle] = contentType

	return publishing.AssetRef{
		URL:    fmt.Sprintf("memory://%s", handle),
		Handle: handle,
	}, nil
}

// Delete removes the object for the handle
func (s *Store) Delete(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDeletes {
		return errors.New("injected delete failure")
	}
	if _, exists := s.objects[handle]; !exists {
		return ErrObjectNotFound
	}

	delete(s.objects, handle)
	delete(s.contentTypes, handle)
	s.deleted = append(s.deleted, handle)
	return nil
}

// Get returns the stored bytes for a handle
func (s *Store) Get(handle string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[handle]
	return data, exists
}

// Len returns how many objects the store currently holds
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// DeletedHandles returns every handle deleted so far, in call order
func (s *Store) DeletedHandles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}

// FailUploadsAfter makes the n+1th and later uploads fail. Pass -1 to
// restore normal behavior.
func (s *Store) FailUploadsAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUploadsAfter = n
	s.uploads = 0
}

// FailDeletes toggles delete failure injection
func (s *Store) FailDeletes(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeletes = fail
}
