package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// ArchiveLevel packages a single level file into a zip archive containing
// exactly one entry named after the file. This is the artifact published to
// blob storage.
func ArchiveLevel(levelPath string) ([]byte, error) {
	data, err := os.ReadFile(levelPath)
	if err != nil {
		return nil, fmt.Errorf("reading level file: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create(filepath.Base(levelPath))
	if err != nil {
		return nil, fmt.Errorf("creating zip entry: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		return nil, fmt.Errorf("writing zip entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing zip: %w", err)
	}
	return buf.Bytes(), nil
}
