package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"home_scout/config"
	"home_scout/models"
)

// StatusError is a non-2xx reply from the index service, kept distinct from
// transport failures so callers can decide whether a retry makes sense.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("index error %d: %s", e.Code, e.Body)
}

// Client talks to the external search-index service over its REST API. Batch
// saves are asynchronous on the service side; SaveRecords returns the task id
// the service assigned so a run record can reference it.
type Client struct {
	baseURL   string
	apiKey    string
	indexName string
	client    *http.Client
}

func NewClient(cfg *config.IndexConfig, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:   cfg.URL,
		apiKey:    cfg.APIKey,
		indexName: cfg.IndexName,
		client:    client,
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type batchRequest struct {
	Action string                `json:"action"`
	Body   models.PropertyRecord `json:"body"`
}

type batchResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
}

// SaveRecords pushes one batch of records as updateObject operations. The
// whole batch succeeds or fails together; partial acceptance is the caller's
// concern, not the sink's.
func (c *Client) SaveRecords(ctx context.Context, records []models.PropertyRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	requests := make([]batchRequest, 0, len(records))
	for _, r := range records {
		requests = append(requests, batchRequest{Action: "updateObject", Body: r})
	}

	var resp batchResponse
	path := fmt.Sprintf("/1/indexes/%s/batch", c.indexName)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"requests": requests}, &resp); err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", resp.TaskID), nil
}

type SearchParams struct {
	Query       string
	PriceRange  string
	City        string
	Page        int
	HitsPerPage int
}

type SearchResult struct {
	Hits    []models.PropertyRecord `json:"hits"`
	NbHits  int                     `json:"nbHits"`
	Page    int                     `json:"page"`
	NbPages int                     `json:"nbPages"`
}

// Search runs a text query with optional facet filters against the index.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.HitsPerPage <= 0 {
		params.HitsPerPage = 20
	}

	var facets []string
	if params.PriceRange != "" {
		facets = append(facets, fmt.Sprintf("priceRange:%s", params.PriceRange))
	}
	if params.City != "" {
		facets = append(facets, fmt.Sprintf("city:%s", params.City))
	}

	body := map[string]any{
		"query":       params.Query,
		"page":        params.Page,
		"hitsPerPage": params.HitsPerPage,
	}
	if len(facets) > 0 {
		body["facetFilters"] = facets
	}

	var result SearchResult
	path := fmt.Sprintf("/1/indexes/%s/query", c.indexName)
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearCity deletes every record for one market before a fresh collection
// replaces it.
func (c *Client) ClearCity(ctx context.Context, city, state string) error {
	body := map[string]any{
		"facetFilters": []string{
			fmt.Sprintf("city:%s", city),
			fmt.Sprintf("state:%s", state),
		},
	}
	path := fmt.Sprintf("/1/indexes/%s/deleteByQuery", c.indexName)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(payload)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
