package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"home_scout/config"
	"home_scout/extract"
	"home_scout/models"
	"home_scout/services"
	"home_scout/storage"
)

type fakeRenderer struct {
	html string
	err  error
	urls []string
}

func (f *fakeRenderer) Render(ctx context.Context, url, waitFor string) (*goquery.Document, string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, "", f.err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.html))
	if err != nil {
		return nil, "", err
	}
	return doc, f.html, nil
}

const resultsPage = `<html><body>
<div class="property-card">
	<div class="property-price">$325,000</div>
	<div class="property-address">12 Elm St, Riverton, UT</div>
	<p>3 beds 2.5 baths 1,850 sqft</p>
</div>
<div class="property-card">
	<div class="property-price">Call for price</div>
	<p>77 Oak Ave Riverton 4 bed 3 bath 2,400 sqft</p>
</div>
</body></html>`

func testOrchestrator(t *testing.T, renderer PageRenderer) (*Orchestrator, *storage.SQLiteStore) {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pipeline := extract.DefaultPipeline()
	pipeline.SiteOrigin = "https://www.example-homes.com"

	cfg := &config.Config{
		Collector: config.CollectorConfig{MaxCount: 20},
		Sites: map[string]*config.SiteConfig{
			"example-homes": {
				ID:        "example-homes",
				Name:      "Example Homes",
				SearchURL: "https://www.example-homes.com/search?city={city}&state={state}",
				WaitFor:   ".search-results",
				Markets:   []config.Market{{City: "Riverton", State: "UT"}},
				Pipeline:  pipeline,
			},
		},
	}

	publisher := services.NewPublisher(store, nil, nil)
	return NewOrchestrator(cfg, store, renderer, publisher), store
}

func TestBuildSearchURL(t *testing.T) {
	got := buildSearchURL("https://x/search?city={city}&state={state}", "Salt Lake City", "UT")
	if got != "https://x/search?city=Salt+Lake+City&state=UT" {
		t.Fatalf("unexpected URL %q", got)
	}
}

func TestCollectMarket(t *testing.T) {
	renderer := &fakeRenderer{html: resultsPage}
	o, store := testOrchestrator(t, renderer)

	run, err := o.CollectMarket(context.Background(), "example-homes", "Riverton", "UT", 0)
	if err != nil {
		t.Fatalf("CollectMarket: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Fatalf("expected completed run, got %q", run.Status)
	}
	if run.ListingsFound != 2 || run.RecordsAccepted != 1 || run.RecordsRejected != 1 {
		t.Fatalf("unexpected counts: %+v", run)
	}
	if len(renderer.urls) != 1 || renderer.urls[0] != "https://www.example-homes.com/search?city=Riverton&state=UT" {
		t.Fatalf("unexpected rendered URL %v", renderer.urls)
	}

	// The rendered page must be queued for upload.
	snaps, err := store.PendingSnapshots(10)
	if err != nil {
		t.Fatalf("PendingSnapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].RunID != run.ID {
		t.Fatalf("expected queued snapshot for run %d, got %+v", run.ID, snaps)
	}

	runs, err := store.RecentRuns(5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].FinishedAt == nil {
		t.Fatalf("run record not finalized: %+v", runs)
	}
}

func TestCollectMarket_Dedupe(t *testing.T) {
	renderer := &fakeRenderer{html: resultsPage}
	o, store := testOrchestrator(t, renderer)

	if _, err := o.CollectMarket(context.Background(), "example-homes", "Riverton", "UT", 0); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	run, err := o.CollectMarket(context.Background(), "example-homes", "Riverton", "UT", 0)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	// Same page twice: the second pass accepts the record again but the
	// publisher recognizes the fingerprint.
	if run.RecordsAccepted != 1 {
		t.Fatalf("expected 1 accepted on second pass, got %d", run.RecordsAccepted)
	}
	stale, err := store.StaleLinks(timeFarFuture(), 10)
	if err != nil {
		t.Fatalf("StaleLinks: %v", err)
	}
	if len(stale) > 1 {
		t.Fatalf("duplicate pass must not grow the seen set: %d entries", len(stale))
	}
}

func timeFarFuture() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func TestCollectMarket_RenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("navigation timeout")}
	o, store := testOrchestrator(t, renderer)

	run, err := o.CollectMarket(context.Background(), "example-homes", "Riverton", "UT", 0)
	if err == nil {
		t.Fatal("expected render error to surface")
	}
	if run.Status != models.RunStatusFailed || run.ErrorsCount != 1 {
		t.Fatalf("expected failed run, got %+v", run)
	}

	runs, _ := store.RecentRuns(5)
	if len(runs) != 1 || runs[0].Status != models.RunStatusFailed {
		t.Fatalf("failed run not persisted: %+v", runs)
	}
}

func TestCollectMarket_UnknownSite(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeRenderer{html: resultsPage})
	if _, err := o.CollectMarket(context.Background(), "nope", "Riverton", "UT", 0); err == nil {
		t.Fatal("expected error for unknown site")
	}
}

func TestHandleCommand_PauseResume(t *testing.T) {
	o, store := testOrchestrator(t, &fakeRenderer{html: resultsPage})

	if err := store.EnqueueCommand(models.CmdPause, nil); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}
	cmds, _ := store.GetPendingCommands()
	if err := o.HandleCommand(&cmds[0]); err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if !o.IsPaused() {
		t.Fatal("expected paused")
	}

	if err := o.HandleCommand(&models.Command{Command: models.CmdResume}); err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if o.IsPaused() {
		t.Fatal("expected resumed")
	}
}
