package testutil

import (
	"context"
	"sync"
	"time"

	"zeepdrone/internal/backend"
	"zeepdrone/internal/drone"
)

// FakeBackend is an in-memory stand-in for the records API. It mirrors the
// server's matching behavior: deleted records never surface, superseded
// records do. Call counters let tests assert which mutations ran.
type FakeBackend struct {
	mu         sync.Mutex
	nextLevel  int64
	nextMeta   int64
	levels     map[int64]*backend.Level
	metadata   map[string]*backend.Metadata // by hash

	Creates     int
	Replaces    int
	TimeUpdates int
	Deletes     int
	MetaCreates int

	// Error injection; when set, the matching call fails with the error.
	FailGetLevels   error
	FailCreateLevel error
	FailGetMetadata error
}

// NewFakeBackend creates an empty fake records API.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		levels:   make(map[int64]*backend.Level),
		metadata: make(map[string]*backend.Metadata),
	}
}

// Seed inserts a level record directly, returning it with an assigned ID.
func (f *FakeBackend) Seed(lvl backend.Level) *backend.Level {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextLevel++
	lvl.ID = f.nextLevel
	f.levels[lvl.ID] = &lvl
	return &lvl
}

// SeedMetadata inserts a metadata record directly.
func (f *FakeBackend) SeedMetadata(md backend.Metadata) *backend.Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextMeta++
	md.ID = f.nextMeta
	f.metadata[md.Hash] = &md
	return &md
}

// Level returns a copy of a stored record by id.
func (f *FakeBackend) Level(id int64) (backend.Level, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lvl, ok := f.levels[id]
	if !ok {
		return backend.Level{}, false
	}
	return *lvl, true
}

func (f *FakeBackend) GetLevelsByWorkshopID(ctx context.Context, workshopID string) ([]backend.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailGetLevels != nil {
		return nil, f.FailGetLevels
	}

	var out []backend.Level
	for _, lvl := range f.levels {
		if lvl.WorkshopID == workshopID && !lvl.Deleted {
			out = append(out, *lvl)
		}
	}
	if len(out) == 0 {
		return nil, backend.ErrNotFound
	}
	return out, nil
}

func (f *FakeBackend) CreateLevel(ctx context.Context, req backend.CreateLevelRequest) (*backend.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreateLevel != nil {
		return nil, f.FailCreateLevel
	}

	f.nextLevel++
	lvl := &backend.Level{
		ID:         f.nextLevel,
		WorkshopID: req.WorkshopID,
		AuthorID:   req.AuthorID,
		Name:       req.Name,
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
		ImageURL:   req.ImageURL,
		FileURL:    req.FileURL,
		FileUID:    req.FileUID,
		FileHash:   req.FileHash,
		FileAuthor: req.FileAuthor,
	}
	f.levels[lvl.ID] = lvl
	f.Creates++
	return lvl, nil
}

func (f *FakeBackend) ReplaceLevel(ctx context.Context, existingID, replacementID int64) (*backend.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lvl, ok := f.levels[existingID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	id := replacementID
	lvl.ReplacedBy = &id
	f.Replaces++
	return lvl, nil
}

func (f *FakeBackend) UpdateLevelTime(ctx context.Context, id int64, updatedAt time.Time) (*backend.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lvl, ok := f.levels[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	lvl.UpdatedAt = updatedAt
	f.TimeUpdates++
	return lvl, nil
}

func (f *FakeBackend) DeleteLevel(ctx context.Context, id int64) (*backend.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lvl, ok := f.levels[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	lvl.Deleted = true
	f.Deletes++
	return lvl, nil
}

func (f *FakeBackend) GetMetadataByHash(ctx context.Context, hash string) (*backend.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailGetMetadata != nil {
		return nil, f.FailGetMetadata
	}

	md, ok := f.metadata[hash]
	if !ok {
		return nil, backend.ErrNotFound
	}
	out := *md
	return &out, nil
}

func (f *FakeBackend) CreateMetadata(ctx context.Context, req backend.CreateMetadataRequest) (*backend.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextMeta++
	md := &backend.Metadata{
		ID:          f.nextMeta,
		Hash:        req.Hash,
		Checkpoints: req.Checkpoints,
		Blocks:      req.Blocks,
		Valid:       req.Valid,
		Validation:  req.Validation,
		Gold:        req.Gold,
		Silver:      req.Silver,
		Bronze:      req.Bronze,
		Ground:      req.Ground,
		Skybox:      req.Skybox,
	}
	f.metadata[md.Hash] = md
	f.MetaCreates++
	return md, nil
}

// Compile-time check that FakeBackend implements drone.Backend
var _ drone.Backend = (*FakeBackend)(nil)
