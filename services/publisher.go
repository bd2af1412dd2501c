package services

import (
	"context"
	"fmt"
	"log"

	"home_scout/identity"
	"home_scout/index"
	"home_scout/models"
	"home_scout/storage"
)

// Publisher handles the fan-out for one accepted batch: dedupe against the
// seen set, push fresh records to the search index, and archive everything
// to Postgres. Index failure fails the publish; archive failure is logged
// and counted, because the index is the product and the archive is not.
type Publisher struct {
	store   *storage.SQLiteStore
	sink    *index.Client
	archive *storage.PostgresStore
}

func NewPublisher(store *storage.SQLiteStore, sink *index.Client, archive *storage.PostgresStore) *Publisher {
	return &Publisher{
		store:   store,
		sink:    sink,
		archive: archive,
	}
}

// PublishResult reports what happened to one batch. Published counts only
// records that reached the index; with no index configured it stays zero
// even when records were fresh and archived.
type PublishResult struct {
	Published   int
	Duplicates  int
	IndexTaskID string
	Errors      int
}

// Publish is idempotent per listing: a record whose fingerprint was already
// seen is skipped, so overlapping collection passes do not multiply index
// entries.
func (p *Publisher) Publish(ctx context.Context, runID int64, siteID string, records []models.PropertyRecord) (*PublishResult, error) {
	result := &PublishResult{}

	fresh := make([]models.PropertyRecord, 0, len(records))
	for _, r := range records {
		fingerprint := identity.Fingerprint(&r)
		isNew, err := p.store.RememberListing(fingerprint, r.ObjectID, siteID, r.PropertyURL)
		if err != nil {
			return nil, fmt.Errorf("dedupe check: %w", err)
		}
		if !isNew {
			result.Duplicates++
			continue
		}
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		log.Printf("Publish: all %d records already seen for %s", len(records), siteID)
		return result, nil
	}

	if p.sink != nil && p.sink.Enabled() {
		taskID, err := p.sink.SaveRecords(ctx, fresh)
		if err != nil {
			return nil, fmt.Errorf("index push: %w", err)
		}
		result.IndexTaskID = taskID
		result.Published = len(fresh)
	}

	if p.archive != nil {
		if err := p.archive.ArchiveRecords(ctx, runID, fresh); err != nil {
			log.Printf("Publish: archive failed for run %d: %v", runID, err)
			result.Errors++
		}
	}

	log.Printf("Publish: %s run %d: %d published, %d duplicates (task %s)",
		siteID, runID, result.Published, result.Duplicates, result.IndexTaskID)
	return result, nil
}
