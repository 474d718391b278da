package drone

import (
	"context"
	"errors"
	"fmt"

	"zeepdrone/internal/backend"
)

// matchType classifies how well the backend's records satisfy a re-check
// request.
type matchType int

const (
	noMatch matchType = iota
	partialMatch
	fullMatch
)

// ProcessRequests drains the re-check backlog. Each request triggers a
// single-item scan unless the backend already holds a fully matching
// record. Satisfied and hopeless requests are removed; requests whose scan
// failed stay queued for the next run.
func (s *Scanner) ProcessRequests(ctx context.Context, store RequestStore) error {
	requests, err := store.ListRequests(ctx)
	if err != nil {
		return fmt.Errorf("listing requests: %w", err)
	}

	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.log.Info("processing scan request",
			"workshopId", req.WorkshopID, "hash", req.Hash, "uid", req.UID)

		before, err := s.matchRequest(ctx, req)
		if err != nil {
			s.log.Error("unable to check request match",
				"workshopId", req.WorkshopID, "error", err)
			continue
		}

		switch {
		case before == fullMatch:
			s.log.Info("request already satisfied",
				"workshopId", req.WorkshopID, "hash", req.Hash, "uid", req.UID)

		case req.WorkshopID == "" || req.WorkshopID == "0":
			s.log.Warn("request has no workshop id",
				"hash", req.Hash, "uid", req.UID)

		default:
			if err := s.ScanItem(ctx, req.WorkshopID); err != nil {
				s.log.Error("error while processing request",
					"workshopId", req.WorkshopID, "error", err)
				continue // keep the request for the next run
			}

			after, err := s.matchRequest(ctx, req)
			if err != nil {
				s.log.Error("unable to re-check request match",
					"workshopId", req.WorkshopID, "error", err)
				continue
			}
			switch {
			case after == noMatch:
				s.log.Error("no level was created for request",
					"workshopId", req.WorkshopID, "hash", req.Hash, "uid", req.UID)
			case before == noMatch:
				s.log.Info("new level was created for request",
					"workshopId", req.WorkshopID, "hash", req.Hash, "uid", req.UID)
			default:
				s.log.Info("level was updated for request",
					"workshopId", req.WorkshopID, "hash", req.Hash, "uid", req.UID)
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.DeleteRequest(ctx, req.ID); err != nil {
			s.log.Error("unable to remove request", "requestId", req.ID, "error", err)
		}
	}

	return nil
}

// matchRequest checks the backend's records against a request. A full match
// needs both hash and uid to line up on one record; when the request only
// carries some of the identifying fields, the best achievable grade is a
// partial match.
func (s *Scanner) matchRequest(ctx context.Context, req Request) (matchType, error) {
	records, err := s.engine.backend.GetLevelsByWorkshopID(ctx, req.WorkshopID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return noMatch, nil
		}
		return noMatch, err
	}

	if req.Hash != "" && req.UID != "" {
		for _, rec := range records {
			if rec.FileHash == req.Hash && rec.FileUID == req.UID {
				return fullMatch, nil
			}
		}
		return noMatch, nil
	}

	if req.Hash != "" {
		for _, rec := range records {
			if rec.FileHash == req.Hash {
				return partialMatch, nil
			}
		}
		return noMatch, nil
	}

	if req.UID != "" {
		for _, rec := range records {
			if rec.FileUID == req.UID {
				return partialMatch, nil
			}
		}
		return noMatch, nil
	}

	if len(records) > 0 {
		return partialMatch, nil
	}
	return noMatch, nil
}
