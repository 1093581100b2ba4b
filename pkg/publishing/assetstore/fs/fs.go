package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/obscura-press/obscura/pkg/publishing"
)

// Store is a filesystem implementation of publishing.AssetStore, intended
// for local development. Handles are relative paths under the base
// directory; URLs are built from the configured prefix.
type Store struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem store
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // URL prefix the files are served under
}

// New creates a new filesystem asset store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.URLPrefix == "" {
		return nil, errors.New("url prefix is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

// Upload writes the bytes under a fresh date-partitioned handle
func (s *Store) Upload(ctx context.Context, reader io.Reader, input publishing.UploadInput) (publishing.AssetRef, error) {
	handle := filepath.ToSlash(filepath.Join(
		time.Now().UTC().Format("2006/01"),
		uuid.NewString()+filepath.Ext(input.FileName),
	))
	filePath := filepath.Join(s.baseDir, filepath.FromSlash(handle))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return publishing.AssetRef{}, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return publishing.AssetRef{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(filePath)
		return publishing.AssetRef{}, fmt.Errorf("failed to write file: %w", err)
	}

	return publishing.AssetRef{
		URL:    fmt.Sprintf("%s/%s", s.urlPrefix, handle),
		Handle: handle,
	}, nil
}

// Delete removes the file for the handle
func (s *Store) Delete(ctx context.Context, handle string) error {
	filePath := filepath.Join(s.baseDir, filepath.FromSlash(handle))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.New("object not found")
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	s.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (s *Store) cleanupEmptyDirectories(dir string) {
	if dir == s.baseDir {
		return
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			s.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
