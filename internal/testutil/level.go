package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// LevelFile builds raw level file content for tests. Zero values produce a
// playable level: one start, one finish, finite medal times and a known
// environment.
type LevelFile struct {
	Author string
	UID    string
	Times  string   // full times line; defaults to "10.5,20,30,40,2,3"
	Blocks []string // block lines; default is a start and a finish
}

// Bytes renders the level file.
func (f LevelFile) Bytes() []byte {
	author := f.Author
	if author == "" {
		author = "tester"
	}
	uid := f.UID
	if uid == "" {
		uid = "uid-default"
	}
	times := f.Times
	if times == "" {
		times = "10.5,20,30,40,2,3"
	}
	blocks := f.Blocks
	if blocks == nil {
		blocks = []string{"1,0,0,0", "2,10,0,0"}
	}

	lines := []string{
		"LevelEditor2," + author + "," + uid,
		"0,0,0,0,0,0,0,0",
		times,
	}
	lines = append(lines, blocks...)
	return []byte(strings.Join(lines, "\n") + "\n")
}

// WriteLevelFile writes the level file under dir and returns its path.
func WriteLevelFile(t *testing.T, dir, name string, f LevelFile) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating level dir: %v", err)
	}
	if err := os.WriteFile(path, f.Bytes(), 0644); err != nil {
		t.Fatalf("writing level file: %v", err)
	}
	return path
}
