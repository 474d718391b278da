// Package app is the application layer between the CLI and the drone core.
// It constructs all dependencies from config, exposes the high-level scan
// operations, and journals every run in the local database.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"zeepdrone/internal/backend"
	"zeepdrone/internal/blob"
	"zeepdrone/internal/config"
	"zeepdrone/internal/database"
	"zeepdrone/internal/drone"
	"zeepdrone/internal/steam"
)

// DroneApp wires the catalog client, downloader, blob store, backend client
// and local database into a runnable scanner. The caller must call Close
// when done.
type DroneApp struct {
	cfg     *config.Config
	store   *database.Store
	blobs   drone.BlobStore
	scanner *drone.Scanner
	run     *ScanRun
	log     drone.Logger
	logFile *os.File
}

// NewDroneApp creates a fully wired DroneApp from the given config.
// operation identifies the CLI command being run (e.g. "ScanCreated",
// "ProcessRequests").
func NewDroneApp(ctx context.Context, cfg *config.Config, operation string) (*DroneApp, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	blobs, err := blob.NewStoreFromConfig(ctx, cfg.Blob)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}
	if err := blobs.ValidateSetup(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("validating blob store: %w", err)
	}

	if err := os.MkdirAll(cfg.Downloader.MountDir, 0755); err != nil {
		store.Close()
		return nil, fmt.Errorf("creating mount directory: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	api := backend.NewClient(cfg.Backend.URL, cfg.Backend.Key, nil)
	catalog := steam.NewClient(cfg.Steam.Key, cfg.Steam.AppID, cfg.Steam.PageSize, nil)
	downloader := steam.NewDepotDownloader(cfg.Downloader.Binary, cfg.Steam.AppID, log)

	engine := drone.NewEngine(api, blobs, drone.UUIDGenerator{}, cfg.Blob.PlaceholderThumbnailURL, log)
	scanner := drone.NewScanner(catalog, downloader, engine, cfg.Downloader.MountDir, drone.UUIDGenerator{}, log)

	return &DroneApp{
		cfg:     cfg,
		store:   store,
		blobs:   blobs,
		scanner: scanner,
		run:     NewScanRun(operation, ""),
		log:     log,
		logFile: logFile,
	}, nil
}

// journalRun saves the scan run to the database, giving it an
// auto-increment ID. Only commands that actually scan journal themselves.
func (a *DroneApp) journalRun(ctx context.Context) error {
	if a.run.Persisted() {
		return nil // already journaled
	}
	op, err := a.store.CreateScanOperation(ctx, a.run.Operation, a.run.Parameters)
	if err != nil {
		return fmt.Errorf("journaling scan run: %w", err)
	}
	a.run.ID = op.ID
	return nil
}

// runScan journals the run, executes fn and records the outcome.
func (a *DroneApp) runScan(ctx context.Context, parameters string, fn func(context.Context) error) error {
	a.run.Parameters = parameters
	if err := a.journalRun(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		a.run.Status = "error"
		return err
	}
	return nil
}

// ScanCreated runs a bounded scan over the catalog in creation order.
func (a *DroneApp) ScanCreated(ctx context.Context) error {
	return a.runScan(ctx, "order=created", func(ctx context.Context) error {
		return a.scanner.Scan(ctx, drone.ScanOptions{
			Order:         drone.ByCreated,
			MaxEmptyPages: a.cfg.Scan.MaxEmptyPages,
		})
	})
}

// ScanModified runs a bounded scan over the catalog in modification order.
func (a *DroneApp) ScanModified(ctx context.Context) error {
	return a.runScan(ctx, "order=modified", func(ctx context.Context) error {
		return a.scanner.Scan(ctx, drone.ScanOptions{
			Order:         drone.ByModified,
			MaxEmptyPages: a.cfg.Scan.MaxEmptyPages,
		})
	})
}

// ScanFull walks the entire catalog in creation order, ignoring the empty
// page bound.
func (a *DroneApp) ScanFull(ctx context.Context) error {
	return a.runScan(ctx, "order=created full=true", func(ctx context.Context) error {
		return a.scanner.Scan(ctx, drone.ScanOptions{Order: drone.ByCreated})
	})
}

// ScanItem re-checks a single workshop item.
func (a *DroneApp) ScanItem(ctx context.Context, workshopID string) error {
	return a.runScan(ctx, "workshopId="+workshopID, func(ctx context.Context) error {
		return a.scanner.ScanItem(ctx, workshopID)
	})
}

// ProcessRequests drains the re-check request backlog.
func (a *DroneApp) ProcessRequests(ctx context.Context) error {
	return a.runScan(ctx, "", func(ctx context.Context) error {
		return a.scanner.ProcessRequests(ctx, a.store)
	})
}

// AddRequest queues a re-check request.
func (a *DroneApp) AddRequest(ctx context.Context, workshopID, hash, uid string) (*drone.Request, error) {
	return a.store.AddRequest(ctx, workshopID, hash, uid)
}

// ListRequests returns the queued re-check requests.
func (a *DroneApp) ListRequests(ctx context.Context) ([]drone.Request, error) {
	return a.store.ListRequests(ctx)
}

// RemoveRequest removes a queued re-check request.
func (a *DroneApp) RemoveRequest(ctx context.Context, id int64) error {
	return a.store.DeleteRequest(ctx, id)
}

// History returns the most recent journaled scan runs.
func (a *DroneApp) History(ctx context.Context, limit int) ([]*database.ScanOperation, error) {
	return a.store.ListScanOperations(ctx, limit)
}

// RunDaemon loops forever: a bounded created-order scan, a bounded
// modified-order scan, then the request backlog. A clean cycle sleeps the
// scan interval and resets the backoff; a failed cycle sleeps the current
// backoff and doubles it. The whole daemon session is journaled as a
// single run, finalized on Close.
func (a *DroneApp) RunDaemon(ctx context.Context) error {
	if err := a.journalRun(ctx); err != nil {
		return err
	}

	idle := a.cfg.Scan.ScanInterval.Duration
	retry := a.cfg.Scan.RetryDelay.Duration
	backoff := retry

	for {
		err := a.runCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := idle
		if err != nil {
			a.log.Error("scan cycle failed", "error", err, "retryIn", backoff.String())
			wait = backoff
			backoff *= 2
		} else {
			backoff = retry
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (a *DroneApp) runCycle(ctx context.Context) error {
	opts := drone.ScanOptions{MaxEmptyPages: a.cfg.Scan.MaxEmptyPages}

	opts.Order = drone.ByCreated
	if err := a.scanner.Scan(ctx, opts); err != nil {
		return fmt.Errorf("created scan: %w", err)
	}

	opts.Order = drone.ByModified
	if err := a.scanner.Scan(ctx, opts); err != nil {
		return fmt.Errorf("modified scan: %w", err)
	}

	if err := a.scanner.ProcessRequests(ctx, a.store); err != nil {
		return fmt.Errorf("request backlog: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close finalizes the journaled run and closes all resources.
func (a *DroneApp) Close() error {
	var firstErr error

	if a.run.Persisted() {
		if err := a.store.FinishScanOperation(context.Background(), a.run.ID, a.run.Status); err != nil {
			firstErr = fmt.Errorf("finishing scan run: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
