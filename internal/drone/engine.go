package drone

import (
	"context"
	"errors"
	"fmt"
	"os"

	"zeepdrone/internal/backend"
	"zeepdrone/internal/bundle"
	"zeepdrone/internal/zeeplevel"
)

// File is one parsed level file from an item's bundle, together with its
// on-disk location (needed for archiving and thumbnail lookup).
type File struct {
	Path  string
	Level *zeeplevel.Level
}

// Decision is the outcome of reconciling a single level file.
type Decision int

const (
	// DecisionSkipped means the file was a false positive: nothing changed.
	DecisionSkipped Decision = iota
	// DecisionCreated means a new level record was created.
	DecisionCreated
	// DecisionReplaced means a new record was created and the old one was
	// marked as superseded.
	DecisionReplaced
	// DecisionUpdated means only the record's updated-at timestamp changed.
	DecisionUpdated
)

func (d Decision) String() string {
	switch d {
	case DecisionCreated:
		return "created"
	case DecisionReplaced:
		return "replaced"
	case DecisionUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// Outcome summarizes reconciling one catalog item.
type Outcome struct {
	Files    int
	Created  int
	Replaced int
	Updated  int
	Skipped  int
	Failed   int
	Deleted  int
}

// FullyFalsePositive reports whether every file resolved to a skip and none
// produced a mutation or failure. Such items feed the scanner's empty-page
// counter.
func (o Outcome) FullyFalsePositive() bool {
	return o.Skipped == o.Files && o.Created == 0 && o.Replaced == 0 && o.Updated == 0 && o.Failed == 0
}

// Engine reconciles one catalog item's level files against the backend's
// records, deciding per file between create, replace, timestamp-only update,
// skip and stale-record deletion.
type Engine struct {
	backend          Backend
	blobs            BlobStore
	idgen            IDGenerator
	placeholderImage string
	log              Logger
}

// NewEngine creates a reconciliation engine. placeholderImage is the public
// URL recorded for levels whose bundle ships no thumbnail.
func NewEngine(b Backend, blobs BlobStore, idgen IDGenerator, placeholderImage string, log Logger) *Engine {
	return &Engine{
		backend:          b,
		blobs:            blobs,
		idgen:            idgen,
		placeholderImage: placeholderImage,
		log:              log,
	}
}

// Reconcile processes one item and its parsed level files. File-level
// failures are logged and counted but never abort the item; the returned
// error is reserved for unrecoverable conditions (the backend cannot be
// asked for the item's records at all).
func (e *Engine) Reconcile(ctx context.Context, item Item, files []File) (Outcome, error) {
	out := Outcome{Files: len(files)}

	records, err := e.backend.GetLevelsByWorkshopID(ctx, item.WorkshopID)
	switch {
	case err == nil:
		e.deleteStale(ctx, item, records, files, &out)
	case errors.Is(err, backend.ErrNotFound):
		// No records yet, nothing can be stale.
	default:
		e.log.Error("unable to list levels for stale check",
			"workshopId", item.WorkshopID, "error", err)
	}

	for _, f := range files {
		decision, err := e.reconcileFile(ctx, item, f)
		if err != nil {
			return out, fmt.Errorf("reconciling %q: %w", f.Level.Name, err)
		}
		switch decision {
		case DecisionCreated:
			out.Created++
		case DecisionReplaced:
			out.Replaced++
		case DecisionUpdated:
			out.Updated++
		case DecisionSkipped:
			out.Skipped++
		case decisionFailed:
			out.Failed++
		}
	}

	if out.FullyFalsePositive() {
		e.sweepTimestamps(ctx, item, len(files))
	}

	return out, nil
}

// decisionFailed is internal: failed files are accounted separately and
// never reported as a Decision to callers of reconcileFile's results.
const decisionFailed Decision = -1

// deleteStale deletes every active record whose (uid, hash) pair matches no
// file currently in the bundle. Records whose name still matches a file are
// left alone: a rebuilt level under the same name is the per-file decision's
// concern (replace), not a removal.
func (e *Engine) deleteStale(ctx context.Context, item Item, records []backend.Level, files []File, out *Outcome) {
	for _, rec := range records {
		if rec.ReplacedBy != nil {
			continue
		}

		found := false
		for _, f := range files {
			if rec.FileUID == f.Level.UID && rec.FileHash == f.Level.ContentHash {
				found = true
				break
			}
			if rec.AuthorID == item.Creator && rec.Name == f.Level.Name {
				found = true
				break
			}
		}
		if found {
			continue
		}

		if _, err := e.backend.DeleteLevel(ctx, rec.ID); err != nil {
			e.log.Error("unable to delete stale level",
				"workshopId", item.WorkshopID, "levelId", rec.ID, "name", rec.Name, "error", err)
			continue
		}
		out.Deleted++
		e.log.Info("deleted stale level",
			"workshopId", item.WorkshopID, "levelId", rec.ID, "name", rec.Name, "author", rec.FileAuthor)
	}
}

// reconcileFile decides and executes the mutation for one level file.
// The returned error aborts the whole item; everything else is handled here.
func (e *Engine) reconcileFile(ctx context.Context, item Item, f File) (Decision, error) {
	lvl := f.Level

	records, err := e.backend.GetLevelsByWorkshopID(ctx, item.WorkshopID)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return decisionFailed, fmt.Errorf("listing levels: %w", err)
	}

	var match *backend.Level
	for i := range records {
		rec := &records[i]
		if rec.Name == lvl.Name && rec.AuthorID == item.Creator && rec.ReplacedBy == nil {
			match = rec
			break
		}
	}

	if match == nil {
		if _, err := e.createLevel(ctx, item, f); err != nil {
			e.log.Error("unable to create level",
				"workshopId", item.WorkshopID, "name", lvl.Name, "author", lvl.Author, "error", err)
			return decisionFailed, nil
		}
		return DecisionCreated, nil
	}

	if !item.TimeCreated.After(match.CreatedAt) && !item.TimeUpdated.After(match.UpdatedAt) {
		e.log.Info("item is not newer than existing level, skipping",
			"workshopId", item.WorkshopID, "name", lvl.Name, "author", lvl.Author)
		return DecisionSkipped, nil
	}

	if match.FileUID == lvl.UID {
		return e.reconcileSameUID(ctx, item, lvl, match)
	}

	// Different uid under the same name and author: the level was rebuilt.
	// Create a fresh record and chain the old one to it.
	newID, err := e.createLevel(ctx, item, f)
	if err != nil {
		e.log.Error("unable to create replacement level",
			"workshopId", item.WorkshopID, "name", lvl.Name, "author", lvl.Author, "error", err)
		return decisionFailed, nil
	}
	if _, err := e.backend.ReplaceLevel(ctx, match.ID, newID); err != nil {
		e.log.Error("unable to replace level",
			"workshopId", item.WorkshopID, "existingId", match.ID, "newId", newID, "error", err)
		return decisionFailed, nil
	}
	e.log.Info("replaced level",
		"workshopId", item.WorkshopID, "existingId", match.ID, "newId", newID,
		"name", lvl.Name, "author", lvl.Author)
	return DecisionReplaced, nil
}

// reconcileSameUID handles a newer item whose file uid matches the existing
// record. The only legal mutation here is a timestamp correction; a content
// change under an unchanged uid is an anomaly that is never acted on.
func (e *Engine) reconcileSameUID(ctx context.Context, item Item, lvl *zeeplevel.Level, match *backend.Level) (Decision, error) {
	switch {
	case match.UpdatedAt.Equal(item.TimeUpdated):
		e.log.Info("false positive, level unchanged",
			"workshopId", item.WorkshopID, "name", lvl.Name, "author", lvl.Author)
		return DecisionSkipped, nil

	case match.UpdatedAt.Before(item.TimeUpdated):
		if lvl.ContentHash != match.FileHash {
			e.log.Error("content hash changed under unchanged uid, refusing to touch record",
				"workshopId", item.WorkshopID, "name", lvl.Name, "author", lvl.Author,
				"recordHash", match.FileHash, "fileHash", lvl.ContentHash)
			return DecisionSkipped, nil
		}
		if _, err := e.backend.UpdateLevelTime(ctx, match.ID, item.TimeUpdated); err != nil {
			e.log.Error("unable to update level time",
				"workshopId", item.WorkshopID, "levelId", match.ID, "error", err)
			return decisionFailed, nil
		}
		e.log.Info("updated level time",
			"workshopId", item.WorkshopID, "levelId", match.ID,
			"name", lvl.Name, "author", lvl.Author, "updatedAt", item.TimeUpdated)
		return DecisionUpdated, nil

	default:
		e.log.Info("false positive, local record is newer than the feed",
			"workshopId", item.WorkshopID, "name", lvl.Name, "author", lvl.Author)
		return DecisionSkipped, nil
	}
}

// createLevel runs the full create path: metadata resolution, artifact
// packaging and upload, then the record write. Artifacts are published
// before the record so the backend never references missing files.
func (e *Engine) createLevel(ctx context.Context, item Item, f File) (int64, error) {
	lvl := f.Level

	metadataID, err := e.resolveMetadata(ctx, lvl)
	if err != nil {
		return 0, fmt.Errorf("resolving metadata: %w", err)
	}

	archive, err := bundle.ArchiveLevel(f.Path)
	if err != nil {
		return 0, fmt.Errorf("archiving level: %w", err)
	}

	id := e.idgen.New()

	fileURL, err := e.blobs.UploadLevel(ctx, id, archive)
	if err != nil {
		return 0, fmt.Errorf("uploading level archive: %w", err)
	}

	imageURL := e.placeholderImage
	imagePath, err := bundle.ImageFor(f.Path)
	if err != nil {
		return 0, err
	}
	if imagePath == "" {
		e.log.Warn("no image found for level",
			"workshopId", item.WorkshopID, "name", lvl.Name)
	} else {
		imageData, err := os.ReadFile(imagePath)
		if err != nil {
			return 0, fmt.Errorf("reading thumbnail: %w", err)
		}
		imageURL, err = e.blobs.UploadThumbnail(ctx, id, imageData)
		if err != nil {
			return 0, fmt.Errorf("uploading thumbnail: %w", err)
		}
	}

	rec, err := e.backend.CreateLevel(ctx, backend.CreateLevelRequest{
		WorkshopID: item.WorkshopID,
		AuthorID:   item.Creator,
		Name:       lvl.Name,
		CreatedAt:  item.TimeCreated,
		UpdatedAt:  item.TimeUpdated,
		ImageURL:   imageURL,
		FileURL:    fileURL,
		FileUID:    lvl.UID,
		FileHash:   lvl.ContentHash,
		FileAuthor: lvl.Author,
		MetadataID: metadataID,
	})
	if err != nil {
		return 0, fmt.Errorf("creating level record: %w", err)
	}

	e.log.Info("created level",
		"levelId", rec.ID, "workshopId", item.WorkshopID,
		"name", lvl.Name, "author", lvl.Author, "authorId", item.Creator)
	return rec.ID, nil
}

// resolveMetadata returns the metadata id for a level's content hash,
// creating the record only when the hash is genuinely unknown. Any lookup
// failure other than not-found propagates; guessing here could fork the
// at-most-one-record-per-hash invariant.
func (e *Engine) resolveMetadata(ctx context.Context, lvl *zeeplevel.Level) (int64, error) {
	md, err := e.backend.GetMetadataByHash(ctx, lvl.ContentHash)
	if err == nil {
		return md.ID, nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return 0, fmt.Errorf("looking up metadata: %w", err)
	}

	blocks, err := lvl.SerializeBlocks()
	if err != nil {
		return 0, err
	}

	md, err = e.backend.CreateMetadata(ctx, backend.CreateMetadataRequest{
		Hash:        lvl.ContentHash,
		Checkpoints: lvl.Checkpoints,
		Blocks:      blocks,
		Valid:       lvl.Valid(),
		Validation:  lvl.Times.Validation,
		Gold:        lvl.Times.Gold,
		Silver:      lvl.Times.Silver,
		Bronze:      lvl.Times.Bronze,
		Ground:      lvl.Environment.Ground,
		Skybox:      lvl.Environment.Skybox,
	})
	if err != nil {
		return 0, fmt.Errorf("creating metadata: %w", err)
	}
	return md.ID, nil
}

// sweepTimestamps repairs timestamp drift after a fully-false-positive item.
// It only runs when the active record count equals the file count, i.e. the
// structure matches and only ordering or matching failed to line up.
func (e *Engine) sweepTimestamps(ctx context.Context, item Item, fileCount int) {
	records, err := e.backend.GetLevelsByWorkshopID(ctx, item.WorkshopID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) && fileCount == 0 {
			return
		}
		e.log.Error("unable to list levels for timestamp sweep",
			"workshopId", item.WorkshopID, "error", err)
		return
	}

	active := records[:0:0]
	for _, rec := range records {
		if rec.ReplacedBy == nil {
			active = append(active, rec)
		}
	}
	if len(active) != fileCount {
		return
	}

	for _, rec := range active {
		if rec.UpdatedAt.Equal(item.TimeUpdated) {
			continue
		}
		if _, err := e.backend.UpdateLevelTime(ctx, rec.ID, item.TimeUpdated); err != nil {
			e.log.Error("unable to sweep level time",
				"workshopId", item.WorkshopID, "levelId", rec.ID, "error", err)
			continue
		}
		e.log.Info("swept level time",
			"workshopId", item.WorkshopID, "levelId", rec.ID,
			"name", rec.Name, "updatedAt", item.TimeUpdated)
	}
}
