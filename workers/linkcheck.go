package workers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"home_scout/storage"
)

// LinkCheckWorker revisits stored property URLs and records whether the
// listing page is still reachable. Dead links stay in the seen set so the
// dedupe history survives, but the API can filter them out.
type LinkCheckWorker struct {
	store      *storage.SQLiteStore
	httpClient *http.Client
	staleAfter time.Duration
	triggerCh  chan struct{}
}

// NewLinkCheckWorker creates a link check worker. The client should not
// follow redirects, since a redirect back to a search page usually means
// the listing was taken down.
func NewLinkCheckWorker(store *storage.SQLiteStore, client *http.Client, staleAfter time.Duration) *LinkCheckWorker {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &LinkCheckWorker{
		store:      store,
		httpClient: client,
		staleAfter: staleAfter,
		triggerCh:  make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run immediately
func (w *LinkCheckWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// LinkResult contains the outcome of checking one property URL
type LinkResult struct {
	Alive      bool
	StatusCode int
	Error      error
}

// Check does a lightweight HEAD request against a listing URL.
func (w *LinkCheckWorker) Check(ctx context.Context, listingURL string) LinkResult {
	req, err := http.NewRequestWithContext(ctx, "HEAD", listingURL, nil)
	if err != nil {
		return LinkResult{Error: err}
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return LinkResult{Error: err}
	}
	resp.Body.Close()

	result := LinkResult{StatusCode: resp.StatusCode}

	switch resp.StatusCode {
	case 200:
		result.Alive = true
	case 404, 410:
		result.Alive = false
	case 301, 302:
		result.Alive = !isDelistRedirect(resp.Header.Get("Location"))
	default:
		// Other codes give no clear signal, assume still live
		result.Alive = true
	}

	return result
}

// isDelistRedirect checks if a redirect target indicates the listing is gone
func isDelistRedirect(location string) bool {
	delistPatterns := []string{
		"/search",
		"/map",
		"notfound",
		"error",
	}
	lower := strings.ToLower(location)
	for _, pattern := range delistPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Run starts the link check worker loop
func (w *LinkCheckWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Link check worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.triggerCh:
			log.Println("Link check worker triggered manually")
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *LinkCheckWorker) processBatch(ctx context.Context, batchSize int) {
	cutoff := time.Now().Add(-w.staleAfter)
	listings, err := w.store.StaleLinks(cutoff, batchSize)
	if err != nil {
		log.Printf("Link check: query error: %v", err)
		return
	}

	if len(listings) == 0 {
		return
	}

	log.Printf("Link check: checking %d stale links", len(listings))

	var checked, dead int
	for _, listing := range listings {
		result := w.Check(ctx, listing.PropertyURL)
		checked++

		if result.Error != nil {
			log.Printf("Link check: error checking %s: %v", listing.PropertyURL, result.Error)
			// Keep the previous verdict, push the listing back in the queue
			w.store.MarkLinkChecked(listing.Fingerprint, listing.LinkAlive)
			continue
		}

		if !result.Alive {
			log.Printf("Link check: dead link (status %d): %s", result.StatusCode, listing.PropertyURL)
			dead++
		}
		if err := w.store.MarkLinkChecked(listing.Fingerprint, result.Alive); err != nil {
			log.Printf("Link check: failed to record result: %v", err)
		}

		// Rate limit between requests
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
	}

	if dead > 0 {
		log.Printf("Link check: checked %d, %d dead", checked, dead)
	}
}
