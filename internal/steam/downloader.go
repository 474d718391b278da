package steam

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"zeepdrone/internal/drone"
)

// DepotDownloader fetches a published item's bundle by shelling out to the
// depot downloader binary. The process is started fresh per item; its
// session state lives in the binary's own account config.
type DepotDownloader struct {
	binary string
	appID  string
	log    drone.Logger
}

// NewDepotDownloader creates a downloader around the given binary path.
func NewDepotDownloader(binary, appID string, log drone.Logger) *DepotDownloader {
	return &DepotDownloader{binary: binary, appID: appID, log: log}
}

// Fetch downloads one item's files into destDir. A non-zero exit status is
// an item-level failure; callers clean up destDir and move on.
func (d *DepotDownloader) Fetch(ctx context.Context, workshopID, destDir string) error {
	cmd := exec.CommandContext(ctx, d.binary,
		"-app", d.appID,
		"-pubfile", workshopID,
		"-dir", destDir,
	)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	d.log.Debug("running depot downloader",
		"workshopId", workshopID, "dir", destDir)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("depot downloader for %s: %w (%s)",
			workshopID, err, tail(output.String(), 512))
	}
	return nil
}

// tail returns the last max bytes of s, trimmed.
func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
