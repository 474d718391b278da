package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"zeepdrone/internal/config"
)

var testKeys = Keys{LevelsPrefix: "levels", ThumbnailsPrefix: "thumbnails"}

func TestKeys(t *testing.T) {
	if got := testKeys.LevelKey("abc"); got != "levels/abc.zip" {
		t.Errorf("LevelKey = %q, want %q", got, "levels/abc.zip")
	}
	if got := testKeys.ThumbnailKey("abc"); got != "thumbnails/abc.jpg" {
		t.Errorf("ThumbnailKey = %q, want %q", got, "thumbnails/abc.jpg")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("https://cdn.test/", testKeys)

	url, err := s.UploadLevel(ctx, "abc", []byte("zip-bytes"))
	if err != nil {
		t.Fatalf("UploadLevel() error = %v", err)
	}
	if url != "https://cdn.test/levels/abc.zip" {
		t.Errorf("url = %q", url)
	}

	data, ok := s.Object("levels/abc.zip")
	if !ok || string(data) != "zip-bytes" {
		t.Errorf("stored object = %q, %v", data, ok)
	}

	url, err = s.UploadThumbnail(ctx, "abc", []byte("jpg-bytes"))
	if err != nil {
		t.Fatalf("UploadThumbnail() error = %v", err)
	}
	if url != "https://cdn.test/thumbnails/abc.jpg" {
		t.Errorf("url = %q", url)
	}

	if err := s.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestFileSystemStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	s, err := NewFileSystemStore(root, "https://cdn.test", testKeys)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	if err := s.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	url, err := s.UploadLevel(ctx, "abc", []byte("zip-bytes"))
	if err != nil {
		t.Fatalf("UploadLevel() error = %v", err)
	}
	if url != "https://cdn.test/levels/abc.zip" {
		t.Errorf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(root, "levels", "abc.zip"))
	if err != nil {
		t.Fatalf("reading stored object: %v", err)
	}
	if string(data) != "zip-bytes" {
		t.Errorf("stored object = %q", data)
	}

	// Re-upload overwrites
	if _, err := s.UploadLevel(ctx, "abc", []byte("newer")); err != nil {
		t.Fatalf("re-upload error = %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(root, "levels", "abc.zip"))
	if string(data) != "newer" {
		t.Errorf("stored object after re-upload = %q", data)
	}
}

func TestFileSystemStoreValidateMissingRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSystemStore(root, "https://cdn.test", testKeys)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("removing root: %v", err)
	}
	if err := s.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() should fail when the root is gone")
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := NewStoreFromConfig(ctx, config.BlobConfig{
			Type:             "memory",
			PublicBaseURL:    "https://cdn.test",
			LevelsPrefix:     "levels",
			ThumbnailsPrefix: "thumbnails",
		})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*MemoryStore); !ok {
			t.Errorf("store type = %T, want *MemoryStore", s)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		s, err := NewStoreFromConfig(ctx, config.BlobConfig{
			Type:             "filesystem",
			FSRoot:           t.TempDir(),
			PublicBaseURL:    "https://cdn.test",
			LevelsPrefix:     "levels",
			ThumbnailsPrefix: "thumbnails",
		})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*FileSystemStore); !ok {
			t.Errorf("store type = %T, want *FileSystemStore", s)
		}
	})

	t.Run("filesystem without root", func(t *testing.T) {
		if _, err := NewStoreFromConfig(ctx, config.BlobConfig{Type: "filesystem"}); err == nil {
			t.Error("expected an error for a filesystem store without fs_root")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewStoreFromConfig(ctx, config.BlobConfig{Type: "ftp"}); err == nil {
			t.Error("expected an error for an unknown store type")
		}
	})
}
