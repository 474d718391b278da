package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"zeepdrone/internal/drone"
)

// FakeCatalog serves a fixed set of listing pages and item details.
type FakeCatalog struct {
	Pages []map[drone.Order][]drone.Item // per page, per order
	Items map[string]drone.Item

	FailPage error
}

// NewFakeCatalog creates a catalog serving the given created-order pages.
// Item details are derived from the pages.
func NewFakeCatalog(pages ...[]drone.Item) *FakeCatalog {
	c := &FakeCatalog{Items: make(map[string]drone.Item)}
	for _, page := range pages {
		c.Pages = append(c.Pages, map[drone.Order][]drone.Item{drone.ByCreated: page})
		for _, item := range page {
			c.Items[item.WorkshopID] = item
		}
	}
	return c
}

func (c *FakeCatalog) TotalPages(ctx context.Context, order drone.Order) (int, error) {
	return len(c.Pages), nil
}

func (c *FakeCatalog) Page(ctx context.Context, page int, order drone.Order) ([]drone.Item, error) {
	if c.FailPage != nil {
		return nil, c.FailPage
	}
	if page >= len(c.Pages) {
		return nil, nil
	}
	return c.Pages[page][order], nil
}

func (c *FakeCatalog) Item(ctx context.Context, workshopID string) (*drone.Item, error) {
	item, ok := c.Items[workshopID]
	if !ok {
		return nil, fmt.Errorf("no details returned for item %s", workshopID)
	}
	return &item, nil
}

// FixtureFile is one file a FakeDownloader places in the bundle directory.
type FixtureFile struct {
	RelPath string
	Data    []byte
}

// FakeDownloader materializes pre-registered bundles into the destination
// directory.
type FakeDownloader struct {
	mu      sync.Mutex
	bundles map[string][]FixtureFile

	Fetches  int
	FailWith error
}

// NewFakeDownloader creates an empty downloader.
func NewFakeDownloader() *FakeDownloader {
	return &FakeDownloader{bundles: make(map[string][]FixtureFile)}
}

// AddBundle registers the files served for a workshop id.
func (d *FakeDownloader) AddBundle(workshopID string, files ...FixtureFile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bundles[workshopID] = files
}

func (d *FakeDownloader) Fetch(ctx context.Context, workshopID, destDir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Fetches++
	if d.FailWith != nil {
		return d.FailWith
	}

	files, ok := d.bundles[workshopID]
	if !ok {
		return fmt.Errorf("no bundle registered for item %s", workshopID)
	}

	for _, f := range files {
		path := filepath.Join(destDir, filepath.FromSlash(f.RelPath))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time checks
var (
	_ drone.Catalog    = (*FakeCatalog)(nil)
	_ drone.Downloader = (*FakeDownloader)(nil)
)
