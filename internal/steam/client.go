// Package steam implements the catalog source: the published-file query API
// for paged listings and single-item details, and the DepotDownloader
// subprocess that materializes an item's bundle on disk.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"zeepdrone/internal/drone"
)

const apiBaseURL = "https://api.steampowered.com"

// Query types of IPublishedFileService/QueryFiles: 1 lists by creation
// date, 21 by last modification date.
const (
	queryTypeByCreated  = "1"
	queryTypeByModified = "21"
)

// HTTPDoer describes the HTTP client used by the catalog client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries the workshop catalog for one app.
type Client struct {
	baseURL  string
	key      string
	appID    string
	pageSize int
	http     HTTPDoer
}

// NewClient creates a catalog client. key is the web API key, appID the
// workshop's app, pageSize the fixed listing page size.
func NewClient(key, appID string, pageSize int, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  apiBaseURL,
		key:      key,
		appID:    appID,
		pageSize: pageSize,
		http:     doer,
	}
}

// NewClientWithBaseURL is like NewClient with an overridable API root.
// Used by tests.
func NewClientWithBaseURL(baseURL, key, appID string, pageSize int, doer HTTPDoer) *Client {
	c := NewClient(key, appID, pageSize, doer)
	c.baseURL = baseURL
	return c
}

type queryResponse struct {
	Response struct {
		Total                int        `json:"total"`
		PublishedFileDetails []wireItem `json:"publishedfiledetails"`
		NextCursor           string     `json:"next_cursor"`
	} `json:"response"`
}

type wireItem struct {
	PublishedFileID string `json:"publishedfileid"`
	Creator         string `json:"creator"`
	PreviewURL      string `json:"preview_url"`
	Title           string `json:"title"`
	TimeCreated     int64  `json:"time_created"`
	TimeUpdated     int64  `json:"time_updated"`
	CanSubscribe    bool   `json:"can_subscribe"`
}

func (w wireItem) toItem() drone.Item {
	return drone.Item{
		WorkshopID:   w.PublishedFileID,
		Creator:      w.Creator,
		Title:        w.Title,
		PreviewURL:   w.PreviewURL,
		TimeCreated:  time.Unix(w.TimeCreated, 0).UTC(),
		TimeUpdated:  time.Unix(w.TimeUpdated, 0).UTC(),
		CanSubscribe: w.CanSubscribe,
	}
}

// TotalPages asks the catalog for the total item count and derives the page
// count from the fixed page size.
func (c *Client) TotalPages(ctx context.Context, order drone.Order) (int, error) {
	q := url.Values{
		"key":        {c.key},
		"query_type": {queryType(order)},
		"appid":      {c.appID},
		"totalonly":  {"true"},
		"format":     {"json"},
	}

	var resp queryResponse
	if err := c.get(ctx, "/IPublishedFileService/QueryFiles/v1/", q, &resp); err != nil {
		return 0, err
	}
	return int(math.Ceil(float64(resp.Response.Total) / float64(c.pageSize))), nil
}

// Page returns one page of the listing, starting at page 0.
func (c *Client) Page(ctx context.Context, page int, order drone.Order) ([]drone.Item, error) {
	q := url.Values{
		"key":             {c.key},
		"query_type":      {queryType(order)},
		"appid":           {c.appID},
		"page":            {strconv.Itoa(page)},
		"numperpage":      {strconv.Itoa(c.pageSize)},
		"return_metadata": {"true"},
		"format":          {"json"},
	}

	var resp queryResponse
	if err := c.get(ctx, "/IPublishedFileService/QueryFiles/v1/", q, &resp); err != nil {
		return nil, err
	}

	items := make([]drone.Item, 0, len(resp.Response.PublishedFileDetails))
	for _, w := range resp.Response.PublishedFileDetails {
		items = append(items, w.toItem())
	}
	return items, nil
}

// Item fetches the details of a single published file.
func (c *Client) Item(ctx context.Context, workshopID string) (*drone.Item, error) {
	q := url.Values{
		"key":                 {c.key},
		"publishedfileids[0]": {workshopID},
		"format":              {"json"},
	}

	var resp queryResponse
	if err := c.get(ctx, "/IPublishedFileService/GetDetails/v1/", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Response.PublishedFileDetails) == 0 {
		return nil, fmt.Errorf("no details returned for item %s", workshopID)
	}
	item := resp.Response.PublishedFileDetails[0].toItem()
	return &item, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building catalog request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("querying catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding catalog response: %w", err)
	}
	return nil
}

func queryType(order drone.Order) string {
	if order == drone.ByModified {
		return queryTypeByModified
	}
	return queryTypeByCreated
}
