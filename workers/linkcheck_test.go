package workers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLinkCheck_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live":
			w.WriteHeader(http.StatusOK)
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/moved":
			w.Header().Set("Location", "/search?city=riverton")
			w.WriteHeader(http.StatusFound)
		case "/renamed":
			w.Header().Set("Location", "/listings/12-elm-st")
			w.WriteHeader(http.StatusMovedPermanently)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	w := NewLinkCheckWorker(testStore(t), client, time.Hour)

	cases := []struct {
		path  string
		alive bool
	}{
		{"/live", true},
		{"/gone", false},
		{"/missing", false},
		{"/moved", false},
		{"/renamed", true},
	}
	for _, tc := range cases {
		result := w.Check(context.Background(), server.URL+tc.path)
		if result.Error != nil {
			t.Fatalf("Check(%s): %v", tc.path, result.Error)
		}
		if result.Alive != tc.alive {
			t.Fatalf("Check(%s): expected alive=%v, got %v (status %d)",
				tc.path, tc.alive, result.Alive, result.StatusCode)
		}
	}
}

func TestLinkCheck_ProcessBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dead" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := testStore(t)
	if _, err := store.RememberListing("fp-live", "prop_1", "example-homes", server.URL+"/ok"); err != nil {
		t.Fatalf("RememberListing: %v", err)
	}
	if _, err := store.RememberListing("fp-dead", "prop_2", "example-homes", server.URL+"/dead"); err != nil {
		t.Fatalf("RememberListing: %v", err)
	}

	w := NewLinkCheckWorker(store, nil, time.Hour)
	// Listings were just seen, but never link-checked, so both are stale.
	w.processBatch(context.Background(), 10)

	stale, err := store.StaleLinks(time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("StaleLinks: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected all links checked, %d still stale", len(stale))
	}
}
