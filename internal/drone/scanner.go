package drone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"zeepdrone/internal/bundle"
	"zeepdrone/internal/zeeplevel"
)

// ScanOptions parameterizes one scan run. MaxEmptyPages <= 0 means
// unbounded: the scan only stops when the catalog runs out of items.
type ScanOptions struct {
	Order         Order
	MaxEmptyPages int
}

// Scanner walks the external catalog page by page and feeds each item
// through the reconciliation engine. One scanner run owns its catalog id
// space; overlapping runs of the same scan type are the scheduler's job to
// prevent.
type Scanner struct {
	catalog    Catalog
	downloader Downloader
	engine     *Engine
	workDir    string
	idgen      IDGenerator
	log        Logger
}

// NewScanner creates a scanner. workDir is where per-item bundle
// directories are materialized and always removed again.
func NewScanner(catalog Catalog, downloader Downloader, engine *Engine, workDir string, idgen IDGenerator, log Logger) *Scanner {
	return &Scanner{
		catalog:    catalog,
		downloader: downloader,
		engine:     engine,
		workDir:    workDir,
		idgen:      idgen,
		log:        log,
	}
}

// Scan pages through the catalog until an empty page, the configured run of
// consecutive fully-false-positive pages, or cancellation. The empty-page
// counter resets whenever a page produces at least one real mutation.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) error {
	totalPages, err := s.catalog.TotalPages(ctx, opts.Order)
	if err != nil {
		return fmt.Errorf("querying total pages: %w", err)
	}

	emptyPages := 0
	page := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.MaxEmptyPages > 0 && emptyPages >= opts.MaxEmptyPages {
			s.log.Info("empty page limit reached, stopping scan",
				"order", opts.Order.String(), "emptyPages", emptyPages)
			return nil
		}

		s.log.Info("fetching page", "page", page, "totalPages", totalPages, "order", opts.Order.String())
		items, err := s.catalog.Page(ctx, page, opts.Order)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(items) == 0 {
			s.log.Info("no more items, stopping scan", "page", page)
			return nil
		}

		pageEmpty, err := s.processPage(ctx, items)
		if err != nil {
			return err
		}
		if pageEmpty {
			emptyPages++
		} else {
			emptyPages = 0
		}
		page++
	}
}

// ScanItem re-checks exactly one workshop item.
func (s *Scanner) ScanItem(ctx context.Context, workshopID string) error {
	item, err := s.catalog.Item(ctx, workshopID)
	if err != nil {
		return fmt.Errorf("fetching item %s: %w", workshopID, err)
	}
	_, err = s.processItem(ctx, *item)
	return err
}

// processPage runs every item on a page and reports whether the whole page
// was a false positive.
func (s *Scanner) processPage(ctx context.Context, items []Item) (bool, error) {
	s.log.Info("processing items", "count", len(items))

	falsePositives := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		outcome, err := s.processItem(ctx, item)
		if err != nil {
			return false, err
		}
		if outcome.FullyFalsePositive() {
			falsePositives++
		}
	}
	return falsePositives == len(items), nil
}

// processItem downloads one item's bundle, parses its level files and hands
// them to the engine. The bundle directory is removed on every path.
// Download and parse failures abandon the item without failing the scan.
func (s *Scanner) processItem(ctx context.Context, item Item) (Outcome, error) {
	dest := filepath.Join(s.workDir, DirName(s.idgen.New()))
	ws, err := bundle.NewWorkspace(dest)
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			s.log.Warn("unable to remove bundle directory", "dir", dest, "error", err)
		}
	}()

	s.log.Info("downloading item", "workshopId", item.WorkshopID, "title", item.Title)
	if err := s.downloader.Fetch(ctx, item.WorkshopID, dest); err != nil {
		s.log.Error("bundle download failed",
			"workshopId", item.WorkshopID, "error", err)
		return Outcome{Failed: 1}, nil
	}

	paths, err := ws.Levels()
	if err != nil {
		s.log.Error("unable to list bundle files",
			"workshopId", item.WorkshopID, "error", err)
		return Outcome{Failed: 1}, nil
	}

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		f, err := s.parseFile(item, path)
		if err != nil {
			// A bundle with an unreadable level file cannot be reconciled
			// safely: stale matching needs every file's uid and hash.
			s.log.Error("abandoning item, level file is unusable",
				"workshopId", item.WorkshopID, "path", path, "error", err)
			return Outcome{Failed: 1}, nil
		}
		files = append(files, f)
	}

	return s.engine.Reconcile(ctx, item, files)
}

func (s *Scanner) parseFile(item Item, path string) (File, error) {
	name := bundle.DisplayName(path)
	if strings.TrimSpace(name) == "" {
		s.log.Warn("level file name is empty", "workshopId", item.WorkshopID, "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading level file: %w", err)
	}

	lvl, err := zeeplevel.Parse(name, data)
	if err != nil {
		if errors.Is(err, zeeplevel.ErrEmptyFile) || errors.Is(err, zeeplevel.ErrMalformed) {
			return File{}, err
		}
		return File{}, fmt.Errorf("parsing level file: %w", err)
	}
	for _, w := range lvl.Warnings {
		s.log.Warn("level parse warning",
			"workshopId", item.WorkshopID, "name", lvl.Name, "detail", w)
	}
	return File{Path: path, Level: lvl}, nil
}
