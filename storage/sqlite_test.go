package storage

import (
	"path/filepath"
	"testing"
	"time"

	"home_scout/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := testStore(t)

	run := &models.CollectRun{
		SiteID:    "example-homes",
		City:      "Riverton",
		State:     "UT",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	run.ID = id

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.ListingsFound = 12
	run.RecordsAccepted = 10
	run.RecordsRejected = 2
	run.IndexTaskID = "42"
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	runs, err := store.RecentRuns(5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != models.RunStatusCompleted || got.RecordsAccepted != 10 || got.IndexTaskID != "42" {
		t.Fatalf("run not persisted correctly: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Fatal("finished_at not persisted")
	}
}

func TestCommandQueue(t *testing.T) {
	store := testStore(t)

	params := &models.CommandParams{Site: "example-homes", City: "Riverton", State: "UT", MaxCount: 5}
	if err := store.EnqueueCommand(models.CmdCollectSite, params); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdPause, nil); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected 2 pending commands, got %d", len(cmds))
	}
	if cmds[0].Command != models.CmdCollectSite {
		t.Fatalf("commands out of order: %+v", cmds)
	}

	parsed, err := store.ParseCommandParams(&cmds[0])
	if err != nil {
		t.Fatalf("ParseCommandParams: %v", err)
	}
	if parsed.City != "Riverton" || parsed.MaxCount != 5 {
		t.Fatalf("params round trip broken: %+v", parsed)
	}

	if err := store.MarkCommandProcessed(cmds[0].ID); err != nil {
		t.Fatalf("MarkCommandProcessed: %v", err)
	}
	cmds, err = store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Command != models.CmdPause {
		t.Fatalf("expected only the pause command left, got %+v", cmds)
	}
}

func TestSnapshotQueue(t *testing.T) {
	store := testStore(t)

	snap := &models.PageSnapshot{
		RunID:      1,
		SiteID:     "example-homes",
		City:       "Riverton",
		State:      "UT",
		URL:        "https://www.example-homes.com/search?city=Riverton&state=UT",
		HTML:       "<html><body>results</body></html>",
		CapturedAt: time.Now(),
	}
	id, err := store.CreateSnapshot(snap)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	pending, err := store.PendingSnapshots(10)
	if err != nil {
		t.Fatalf("PendingSnapshots: %v", err)
	}
	if len(pending) != 1 || pending[0].HTML == "" {
		t.Fatalf("expected 1 pending snapshot with html, got %+v", pending)
	}

	if err := store.MarkSnapshotUploaded(id, "snapshots/example-homes/riverton-ut/1-1.html"); err != nil {
		t.Fatalf("MarkSnapshotUploaded: %v", err)
	}
	pending, err = store.PendingSnapshots(10)
	if err != nil {
		t.Fatalf("PendingSnapshots: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("uploaded snapshot still pending: %+v", pending)
	}
}

func TestSnapshotFailureBudget(t *testing.T) {
	store := testStore(t)

	snap := &models.PageSnapshot{RunID: 1, SiteID: "s", City: "c", State: "st", URL: "u", HTML: "h", CapturedAt: time.Now()}
	id, err := store.CreateSnapshot(snap)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.MarkSnapshotFailed(id); err != nil {
			t.Fatalf("MarkSnapshotFailed: %v", err)
		}
	}

	pending, err := store.PendingSnapshots(10)
	if err != nil {
		t.Fatalf("PendingSnapshots: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("snapshot must leave the queue after 3 failures, got %+v", pending)
	}
}

func TestRememberListing(t *testing.T) {
	store := testStore(t)

	isNew, err := store.RememberListing("fp-1", "prop_1", "example-homes", "https://x/homes/1")
	if err != nil {
		t.Fatalf("RememberListing: %v", err)
	}
	if !isNew {
		t.Fatal("first sighting must be new")
	}

	isNew, err = store.RememberListing("fp-1", "prop_2", "example-homes", "")
	if err != nil {
		t.Fatalf("RememberListing: %v", err)
	}
	if isNew {
		t.Fatal("second sighting must not be new")
	}

	stale, err := store.StaleLinks(time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("StaleLinks: %v", err)
	}
	if len(stale) != 1 || stale[0].PropertyURL != "https://x/homes/1" {
		t.Fatalf("empty url must not overwrite the stored one: %+v", stale)
	}

	if err := store.MarkLinkChecked("fp-1", false); err != nil {
		t.Fatalf("MarkLinkChecked: %v", err)
	}
	stale, err = store.StaleLinks(time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("StaleLinks: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("freshly checked link must not be stale: %+v", stale)
	}
}

func TestSiteStats(t *testing.T) {
	store := testStore(t)

	finished := time.Now()
	for _, status := range []models.RunStatus{models.RunStatusCompleted, models.RunStatusFailed} {
		run := &models.CollectRun{SiteID: "example-homes", City: "Riverton", State: "UT", StartedAt: time.Now(), Status: models.RunStatusRunning}
		id, err := store.CreateRun(run)
		if err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
		run.ID = id
		run.Status = status
		run.FinishedAt = &finished
		run.RecordsAccepted = 7
		if err := store.UpdateRun(run); err != nil {
			t.Fatalf("UpdateRun: %v", err)
		}
	}

	if err := store.UpdateSiteStats("example-homes"); err != nil {
		t.Fatalf("UpdateSiteStats: %v", err)
	}
	stats, err := store.GetSiteStats("example-homes")
	if err != nil {
		t.Fatalf("GetSiteStats: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats row")
	}
	if stats.TotalRecords != 14 {
		t.Fatalf("expected 14 total records, got %d", stats.TotalRecords)
	}
	if stats.SuccessRate != 0.5 {
		t.Fatalf("expected 0.5 success rate, got %g", stats.SuccessRate)
	}
}
