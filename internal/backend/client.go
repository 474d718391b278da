// Package backend is the client for the records API that owns level and
// metadata records. The drone only issues the handful of operations the
// reconciliation engine needs; everything else about the API stays on the
// server side.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound reports that the backend has no record for the requested key.
// Callers branch on this to choose create-vs-update; it must never be
// conflated with transport failures.
var ErrNotFound = errors.New("backend: not found")

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the records API.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPDoer
}

// NewClient constructs a backend client. baseURL is the API root; apiKey is
// sent as the x-api-key header on every request.
func NewClient(baseURL, apiKey string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    doer,
	}
}

// GetLevelsByWorkshopID returns every level record for a workshop item,
// superseded ones included. Returns ErrNotFound when the backend has no
// records at all for the id.
func (c *Client) GetLevelsByWorkshopID(ctx context.Context, workshopID string) ([]Level, error) {
	var levels []Level
	if err := c.do(ctx, http.MethodGet, "levels/workshop/"+workshopID, nil, &levels); err != nil {
		return nil, err
	}
	return levels, nil
}

// CreateLevel creates a new level record.
func (c *Client) CreateLevel(ctx context.Context, req CreateLevelRequest) (*Level, error) {
	var level Level
	if err := c.do(ctx, http.MethodPost, "levels", req, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

// ReplaceLevel marks an existing record as superseded by replacementID.
func (c *Client) ReplaceLevel(ctx context.Context, existingID, replacementID int64) (*Level, error) {
	var level Level
	path := fmt.Sprintf("levels/%d/replace", existingID)
	if err := c.do(ctx, http.MethodPut, path, replaceLevelRequest{Replacement: replacementID}, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

// UpdateLevelTime patches only the updated-at timestamp of a record.
// The backend expects unix seconds.
func (c *Client) UpdateLevelTime(ctx context.Context, id int64, updatedAt time.Time) (*Level, error) {
	var level Level
	path := fmt.Sprintf("levels/%d/updated", id)
	if err := c.do(ctx, http.MethodPut, path, updateLevelTimeRequest{Ticks: updatedAt.Unix()}, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

// DeleteLevel deletes a level record.
func (c *Client) DeleteLevel(ctx context.Context, id int64) (*Level, error) {
	var level Level
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("levels/%d", id), nil, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

// GetMetadataByHash looks up the metadata record for a content hash.
// Returns ErrNotFound when no metadata exists for the hash.
func (c *Client) GetMetadataByHash(ctx context.Context, hash string) (*Metadata, error) {
	var md Metadata
	if err := c.do(ctx, http.MethodGet, "metadata/"+hash, nil, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// CreateMetadata creates a new metadata record.
func (c *Client) CreateMetadata(ctx context.Context, req CreateMetadataRequest) (*Metadata, error) {
	var md Metadata
	if err := c.do(ctx, http.MethodPost, "metadata", req, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// do performs one request against the API. A 404 maps to ErrNotFound; for
// 422 the response body is included in the error since the backend reports
// validation problems there.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reqBody)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: backend rejected request: %s", method, path, strings.TrimSpace(string(msg)))
	case resp.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("%s %s: backend returned %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
