package workers

import (
	"context"
	"log"
	"time"

	"home_scout/models"
	"home_scout/storage"
)

// SnapshotUploader pushes one captured page to durable storage and returns
// the key it was stored under.
type SnapshotUploader interface {
	UploadSnapshot(ctx context.Context, snap *models.PageSnapshot) (string, error)
}

// SnapshotWorker drains the page snapshot queue into S3. Snapshots are
// queued by the orchestrator with the raw HTML inline; once uploaded the
// HTML is dropped from the local database.
type SnapshotWorker struct {
	store     *storage.SQLiteStore
	uploader  SnapshotUploader
	triggerCh chan struct{}
}

func NewSnapshotWorker(store *storage.SQLiteStore, uploader SnapshotUploader) *SnapshotWorker {
	return &SnapshotWorker{
		store:     store,
		uploader:  uploader,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run immediately
func (w *SnapshotWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the snapshot worker loop
func (w *SnapshotWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.triggerCh:
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *SnapshotWorker) processBatch(ctx context.Context, batchSize int) {
	if w.uploader == nil {
		return
	}

	snaps, err := w.store.PendingSnapshots(batchSize)
	if err != nil {
		log.Printf("Snapshot worker: query error: %v", err)
		return
	}

	if len(snaps) == 0 {
		return
	}

	log.Printf("Snapshot worker: uploading %d pages", len(snaps))

	var uploaded, failed int
	for i := range snaps {
		snap := &snaps[i]

		key, err := w.uploader.UploadSnapshot(ctx, snap)
		if err != nil {
			log.Printf("Snapshot worker: upload failed for run %d: %v", snap.RunID, err)
			if err := w.store.MarkSnapshotFailed(snap.ID); err != nil {
				log.Printf("Snapshot worker: failed to record attempt: %v", err)
			}
			failed++
			continue
		}

		if err := w.store.MarkSnapshotUploaded(snap.ID, key); err != nil {
			log.Printf("Snapshot worker: failed to mark uploaded: %v", err)
			failed++
			continue
		}

		uploaded++
		log.Printf("Snapshot worker: uploaded run %d -> %s (%d bytes)", snap.RunID, key, len(snap.HTML))
	}

	if uploaded > 0 || failed > 0 {
		log.Printf("Snapshot worker: uploaded %d, failed %d", uploaded, failed)
	}
}
