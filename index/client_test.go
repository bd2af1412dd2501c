package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"home_scout/config"
	"home_scout/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.IndexConfig{URL: srv.URL, APIKey: "test-key", IndexName: "properties"}
	return NewClient(cfg, srv.Client()), srv
}

func TestSaveRecords(t *testing.T) {
	var gotPath, gotKey string
	var gotBody struct {
		Requests []struct {
			Action string                `json:"action"`
			Body   models.PropertyRecord `json:"body"`
		} `json:"requests"`
	}

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"taskID": 42, "objectIDs": []string{"prop_1"}})
	})

	records := []models.PropertyRecord{
		{ObjectID: "prop_1", Address: "12 Elm St, Riverton, UT", Price: "$325,000", PriceValue: 325000},
	}
	taskID, err := client.SaveRecords(context.Background(), records)
	if err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	if taskID != "42" {
		t.Fatalf("expected task id 42, got %q", taskID)
	}
	if gotPath != "/1/indexes/properties/batch" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header missing, got %q", gotKey)
	}
	if len(gotBody.Requests) != 1 || gotBody.Requests[0].Action != "updateObject" {
		t.Fatalf("unexpected batch payload %+v", gotBody)
	}
	if gotBody.Requests[0].Body.ObjectID != "prop_1" {
		t.Fatalf("record lost its objectID: %+v", gotBody.Requests[0].Body)
	}
}

func TestSaveRecords_EmptyBatch(t *testing.T) {
	called := false
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	taskID, err := client.SaveRecords(context.Background(), nil)
	if err != nil || taskID != "" {
		t.Fatalf("empty batch must be a no-op, got %q / %v", taskID, err)
	}
	if called {
		t.Fatal("empty batch must not hit the service")
	}
}

func TestSaveRecords_StatusError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index is locked", http.StatusConflict)
	})

	_, err := client.SaveRecords(context.Background(), []models.PropertyRecord{{ObjectID: "x"}})
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", statusErr.Code)
	}
}

func TestSearch_FacetFilters(t *testing.T) {
	var gotBody map[string]any
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/indexes/properties/query" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"hits":   []map[string]any{{"objectID": "prop_1", "address": "12 Elm St, Riverton, UT"}},
			"nbHits": 1,
		})
	})

	result, err := client.Search(context.Background(), SearchParams{
		Query:      "elm",
		PriceRange: "$200K - $400K",
		City:       "Riverton",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.NbHits != 1 || len(result.Hits) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Hits[0].ObjectID != "prop_1" {
		t.Fatalf("unexpected hit %+v", result.Hits[0])
	}

	facets, ok := gotBody["facetFilters"].([]any)
	if !ok || len(facets) != 2 {
		t.Fatalf("expected two facet filters, got %v", gotBody["facetFilters"])
	}
	if facets[0] != "priceRange:$200K - $400K" || facets[1] != "city:Riverton" {
		t.Fatalf("unexpected facets %v", facets)
	}
}

func TestClearCity(t *testing.T) {
	var gotPath string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	if err := client.ClearCity(context.Background(), "Riverton", "UT"); err != nil {
		t.Fatalf("ClearCity: %v", err)
	}
	if gotPath != "/1/indexes/properties/deleteByQuery" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}
