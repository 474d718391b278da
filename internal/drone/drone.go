// Package drone contains the scan-and-reconcile core: the catalog scanner,
// the per-item reconciliation engine, and the requests backlog processor.
// All I/O goes through the collaborator interfaces defined here so the
// decision logic is testable without the network.
package drone

import (
	"context"
	"time"

	"zeepdrone/internal/backend"
)

// Order selects the catalog listing order for a scan.
type Order int

const (
	// ByCreated lists items in creation order, newest first.
	ByCreated Order = iota
	// ByModified lists items in modification order, newest first.
	ByModified
)

func (o Order) String() string {
	if o == ByModified {
		return "modified"
	}
	return "created"
}

// Item is one published workshop item, an immutable snapshot taken at scan
// time. Timestamps are UTC instants.
type Item struct {
	WorkshopID   string
	Creator      string
	Title        string
	PreviewURL   string
	TimeCreated  time.Time
	TimeUpdated  time.Time
	CanSubscribe bool
}

// Catalog lists published items from the external catalog.
type Catalog interface {
	// TotalPages returns the number of pages available for the given order.
	TotalPages(ctx context.Context, order Order) (int, error)

	// Page returns one page of items. An empty slice means the listing is
	// exhausted.
	Page(ctx context.Context, page int, order Order) ([]Item, error)

	// Item returns the details of a single item by workshop id.
	Item(ctx context.Context, workshopID string) (*Item, error)
}

// Downloader materializes an item's files into destDir.
type Downloader interface {
	Fetch(ctx context.Context, workshopID, destDir string) error
}

// Backend is the records API consumed by the reconciliation engine.
// Lookups return backend.ErrNotFound when no record exists; that variant
// drives the create-vs-update branching and must stay distinguishable.
type Backend interface {
	GetLevelsByWorkshopID(ctx context.Context, workshopID string) ([]backend.Level, error)
	CreateLevel(ctx context.Context, req backend.CreateLevelRequest) (*backend.Level, error)
	ReplaceLevel(ctx context.Context, existingID, replacementID int64) (*backend.Level, error)
	UpdateLevelTime(ctx context.Context, id int64, updatedAt time.Time) (*backend.Level, error)
	DeleteLevel(ctx context.Context, id int64) (*backend.Level, error)
	GetMetadataByHash(ctx context.Context, hash string) (*backend.Metadata, error)
	CreateMetadata(ctx context.Context, req backend.CreateMetadataRequest) (*backend.Metadata, error)
}

// BlobStore publishes processed artifacts and returns their public URLs.
type BlobStore interface {
	UploadLevel(ctx context.Context, id string, data []byte) (string, error)
	UploadThumbnail(ctx context.Context, id string, data []byte) (string, error)

	// ValidateSetup verifies the store is reachable and properly configured.
	ValidateSetup(ctx context.Context) error
}

// Request is one queued re-check request from the backlog.
type Request struct {
	ID         int64
	WorkshopID string
	Hash       string
	UID        string
	CreatedAt  time.Time
}

// RequestStore holds the backlog of externally requested re-checks.
type RequestStore interface {
	ListRequests(ctx context.Context) ([]Request, error)
	DeleteRequest(ctx context.Context, id int64) error
}
