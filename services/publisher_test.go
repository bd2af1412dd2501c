package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"home_scout/config"
	"home_scout/index"
	"home_scout/models"
	"home_scout/storage"
)

func testStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleBatch() []models.PropertyRecord {
	return []models.PropertyRecord{
		{
			ObjectID: "prop_1", Address: "12 Elm St, Riverton, UT",
			City: "Riverton", State: "UT",
			Beds: 3, Baths: 2.5, SqFt: 1850,
			PropertyURL: "https://www.example-homes.com/listings/12-elm-st",
		},
		{
			ObjectID: "prop_2", Address: "88 Cedar Ln, Riverton, UT",
			City: "Riverton", State: "UT",
			Beds: 2, Baths: 1, SqFt: 900,
		},
	}
}

func TestPublish_NoSink(t *testing.T) {
	store := testStore(t)
	p := NewPublisher(store, nil, nil)

	result, err := p.Publish(context.Background(), 1, "example-homes", sampleBatch())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// Fresh records are remembered, but nothing reached an index.
	if result.Published != 0 {
		t.Fatalf("expected 0 published without an index, got %d", result.Published)
	}
	if result.Duplicates != 0 || result.IndexTaskID != "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	again, err := p.Publish(context.Background(), 2, "example-homes", sampleBatch())
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	if again.Duplicates != 2 || again.Published != 0 {
		t.Fatalf("expected both records deduped on second pass, got %+v", again)
	}
}

func TestPublish_SinkEnabled(t *testing.T) {
	var pushed int
	indexSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Requests []json.RawMessage `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding batch: %v", err)
		}
		pushed = len(body.Requests)
		json.NewEncoder(w).Encode(map[string]any{"taskID": 42})
	}))
	defer indexSrv.Close()

	sink := index.NewClient(&config.IndexConfig{
		URL: indexSrv.URL, APIKey: "k", IndexName: "homes",
	}, nil)
	p := NewPublisher(testStore(t), sink, nil)

	result, err := p.Publish(context.Background(), 1, "example-homes", sampleBatch())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.Published != 2 || pushed != 2 {
		t.Fatalf("expected 2 published, got result %+v with %d pushed", result, pushed)
	}
	if result.IndexTaskID != "42" {
		t.Fatalf("unexpected task id %q", result.IndexTaskID)
	}
}
