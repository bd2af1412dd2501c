package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"home_scout/config"
	"home_scout/models"
	"home_scout/services"
	"home_scout/storage"
)

// Orchestrator drives full collection passes: render the search page for
// each configured market, run the extraction pipeline over it, and hand the
// accepted batch to the publisher. It also owns the pause flag and the
// command dispatch the scheduler polls for.
type Orchestrator struct {
	cfg       *config.Config
	store     *storage.SQLiteStore
	renderer  PageRenderer
	publisher *services.Publisher

	mu     sync.Mutex
	paused bool

	triggerSnapshot  func()
	triggerLinkCheck func()
}

func NewOrchestrator(cfg *config.Config, store *storage.SQLiteStore, renderer PageRenderer, publisher *services.Publisher) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		renderer:  renderer,
		publisher: publisher,
	}
}

// SetWorkerTriggers wires the on-demand kicks for the background workers.
func (o *Orchestrator) SetWorkerTriggers(snapshot, linkCheck func()) {
	o.triggerSnapshot = snapshot
	o.triggerLinkCheck = linkCheck
}

func (o *Orchestrator) CollectAll(ctx context.Context) error {
	if o.IsPaused() {
		log.Println("Collector is paused, skipping run")
		return nil
	}

	for siteID := range o.cfg.Sites {
		if err := o.CollectSite(ctx, siteID, 0); err != nil {
			log.Printf("Error collecting site %s: %v", siteID, err)
		}
	}

	return nil
}

// CollectSite walks every configured market for one site. A failed market
// does not stop the remaining ones.
func (o *Orchestrator) CollectSite(ctx context.Context, siteID string, maxCount int) error {
	siteCfg, ok := o.cfg.Sites[siteID]
	if !ok {
		return fmt.Errorf("unknown site: %s", siteID)
	}

	delayMS := siteCfg.RateLimitMS
	if delayMS == 0 {
		delayMS = o.cfg.Collector.DelayMS
	}

	var lastErr error
	for i, market := range siteCfg.Markets {
		if i > 0 && delayMS > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(delayMS) * time.Millisecond):
			}
		}

		if _, err := o.CollectMarket(ctx, siteID, market.City, market.State, maxCount); err != nil {
			log.Printf("Market %s, %s failed on %s: %v", market.City, market.State, siteID, err)
			lastErr = err
		}
	}
	return lastErr
}

// CollectMarket runs one full pass for a single city/state: render, extract,
// publish, snapshot. The run record captures the outcome either way.
func (o *Orchestrator) CollectMarket(ctx context.Context, siteID, city, state string, maxCount int) (*models.CollectRun, error) {
	siteCfg, ok := o.cfg.Sites[siteID]
	if !ok {
		return nil, fmt.Errorf("unknown site: %s", siteID)
	}
	if maxCount <= 0 {
		maxCount = o.cfg.Collector.MaxCount
	}

	run := &models.CollectRun{
		SiteID:    siteID,
		City:      city,
		State:     state,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.store.CreateRun(run)
	if err != nil {
		return nil, err
	}
	run.ID = runID

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		o.store.UpdateRun(run)
		o.store.UpdateSiteStats(siteID)
	}()

	searchURL := buildSearchURL(siteCfg.SearchURL, city, state)
	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Collecting %s, %s from %s", city, state, searchURL), siteID)

	doc, html, err := o.renderer.Render(ctx, searchURL, siteCfg.WaitFor)
	if err != nil {
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Render failed: %v", err), siteID)
		run.Status = models.RunStatusFailed
		run.ErrorsCount++
		return run, err
	}

	o.queueSnapshot(run, searchURL, html)

	pipeline := siteCfg.Pipeline
	records, stats := pipeline.Collect(doc, city, state, maxCount)
	for i := range records {
		records[i].Source = siteID
	}

	run.ListingsFound = stats.Found
	run.RecordsAccepted = stats.Accepted
	run.RecordsRejected = stats.Rejected

	if stats.Found == 0 {
		run.Status = models.RunStatusCompleted
		o.log(run.ID, models.LogLevelWarn, "No listings found on page", siteID)
		return run, nil
	}

	result, err := o.publisher.Publish(ctx, run.ID, siteID, records)
	if err != nil {
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Publish failed: %v", err), siteID)
		run.Status = models.RunStatusFailed
		run.ErrorsCount++
		return run, err
	}
	run.IndexTaskID = result.IndexTaskID
	run.ErrorsCount += result.Errors

	run.Status = models.RunStatusCompleted
	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d found, %d accepted, %d rejected, %d published, %d duplicates",
			stats.Found, stats.Accepted, stats.Rejected, result.Published, result.Duplicates), siteID)

	return run, nil
}

func (o *Orchestrator) queueSnapshot(run *models.CollectRun, pageURL, html string) {
	snap := &models.PageSnapshot{
		RunID:      run.ID,
		SiteID:     run.SiteID,
		City:       run.City,
		State:      run.State,
		URL:        pageURL,
		HTML:       html,
		CapturedAt: time.Now(),
	}
	if _, err := o.store.CreateSnapshot(snap); err != nil {
		log.Printf("Failed to queue page snapshot: %v", err)
		return
	}
	if o.triggerSnapshot != nil {
		o.triggerSnapshot()
	}
}

func buildSearchURL(template, city, state string) string {
	return strings.NewReplacer(
		"{city}", url.QueryEscape(city),
		"{state}", url.QueryEscape(state),
	).Replace(template)
}

func (o *Orchestrator) HandleCommand(cmd *models.Command) error {
	params, err := o.store.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch cmd.Command {
	case models.CmdCollectNow:
		return o.CollectAll(ctx)
	case models.CmdCollectSite:
		if params.Site == "" {
			return o.CollectAll(ctx)
		}
		if params.City != "" {
			_, err := o.CollectMarket(ctx, params.Site, params.City, params.State, params.MaxCount)
			return err
		}
		return o.CollectSite(ctx, params.Site, params.MaxCount)
	case models.CmdPause:
		o.setPaused(true)
		log.Println("Collector paused")
	case models.CmdResume:
		o.setPaused(false)
		log.Println("Collector resumed")
	case models.CmdRunSnapshot:
		if o.triggerSnapshot != nil {
			o.triggerSnapshot()
		}
	case models.CmdRunLinkCheck:
		if o.triggerLinkCheck != nil {
			o.triggerLinkCheck()
		}
	}

	return nil
}

func (o *Orchestrator) setPaused(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = v
}

func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, siteID string) {
	log.Printf("[%s] %s: %s", level, siteID, message)
	o.store.Log(&runID, level, message, siteID)
}

func (o *Orchestrator) GetSiteIDs() []string {
	var ids []string
	for id := range o.cfg.Sites {
		ids = append(ids, id)
	}
	return ids
}

func (o *Orchestrator) MarshalStatus() ([]byte, error) {
	status := map[string]interface{}{
		"paused": o.IsPaused(),
		"sites":  o.GetSiteIDs(),
	}
	return json.Marshal(status)
}
