package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"zeepdrone/internal/drone"
)

// FileSystemStore is a filesystem-based implementation of the BlobStore
// interface. Objects are laid out under root exactly as their keys, so a
// static file server pointed at root serves them under the same URLs the
// store reports:
//
//	<root>/
//	  <levelsPrefix>/
//	    <id>.zip
//	  <thumbnailsPrefix>/
//	    <id>.jpg
type FileSystemStore struct {
	root    string
	baseURL string
	keys    Keys
}

// NewFileSystemStore creates a new filesystem store rooted at the given path.
func NewFileSystemStore(root, baseURL string, keys Keys) (*FileSystemStore, error) {
	for _, prefix := range []string{keys.LevelsPrefix, keys.ThumbnailsPrefix} {
		if err := os.MkdirAll(filepath.Join(root, prefix), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	return &FileSystemStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		keys:    keys,
	}, nil
}

// UploadLevel stores a level archive and returns its public URL.
func (s *FileSystemStore) UploadLevel(ctx context.Context, id string, data []byte) (string, error) {
	return s.put(s.keys.LevelKey(id), data)
}

// UploadThumbnail stores a thumbnail image and returns its public URL.
func (s *FileSystemStore) UploadThumbnail(ctx context.Context, id string, data []byte) (string, error) {
	return s.put(s.keys.ThumbnailKey(id), data)
}

// ValidateSetup verifies that the store directories are accessible.
func (s *FileSystemStore) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("store root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store root is not a directory: %s", s.root)
	}

	for _, prefix := range []string{s.keys.LevelsPrefix, s.keys.ThumbnailsPrefix} {
		dir := filepath.Join(s.root, prefix)
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("store directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", dir)
		}
	}

	return nil
}

// put writes data to the key's path using atomic write (temp file + rename).
func (s *FileSystemStore) put(key string, data []byte) (string, error) {
	destPath := filepath.Join(s.root, filepath.FromSlash(key))

	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return s.baseURL + "/" + key, nil
}

// Compile-time check that FileSystemStore implements drone.BlobStore
var _ drone.BlobStore = (*FileSystemStore)(nil)
