// Package bundle manages the on-disk workspace for one downloaded workshop
// item: file discovery inside the bundle, zip packaging of level files, and
// scoped cleanup so long scans never accumulate local state.
package bundle

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LevelExt is the file extension of level definition files inside a bundle.
const LevelExt = ".zeeplevel"

// Workspace is the local directory an item's bundle is materialized into.
type Workspace struct {
	root string
}

// NewWorkspace creates the workspace directory. The directory must not be
// shared between items; callers derive it from a fresh id.
func NewWorkspace(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", root, err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }

// Levels returns all level files in the workspace, searched recursively,
// in deterministic order.
func (w *Workspace) Levels() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), LevelExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing level files in %s: %w", w.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Remove deletes the workspace and everything in it. Safe to call multiple
// times; callers defer it so cleanup happens on failure paths too.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.root)
}

// DisplayName returns the display name of a level file: its base name
// without the extension.
func DisplayName(levelPath string) string {
	base := filepath.Base(levelPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImageFor returns the path of a thumbnail image sitting next to the level
// file, or "" when the bundle ships none. When multiple images exist the
// lexicographically first is used.
func ImageFor(levelPath string) (string, error) {
	dir := filepath.Dir(levelPath)
	matches, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return "", fmt.Errorf("listing images in %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[0], nil
}
