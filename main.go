package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"home_scout/api"
	"home_scout/browser"
	"home_scout/config"
	"home_scout/httputil"
	"home_scout/index"
	"home_scout/insights"
	"home_scout/logging"
	"home_scout/scheduler"
	"home_scout/scraper"
	"home_scout/services"
	"home_scout/storage"
	"home_scout/workers"
)

var (
	collectNow = flag.Bool("collect", false, "Run one collection pass and exit")
	siteFlag   = flag.String("site", "", "Limit collection to one site")
	marketFlag = flag.String("market", "", `Limit collection to one market, as "City,ST"`)
	maxCount   = flag.Int("max", 0, "Cap records per page (0 = configured default)")
)

func main() {
	flag.Parse()

	logFile, err := logging.Setup("home_scout.log", 0)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting home_scout...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d site configs", len(cfg.Sites))
	for id, site := range cfg.Sites {
		log.Printf("  - %s (%s), %d markets", site.Name, id, len(site.Markets))
	}

	clients := httputil.NewClients()
	ctx := context.Background()

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	var pgStore *storage.PostgresStore
	if cfg.Postgres.DSN != "" {
		pgStore, err = storage.NewPostgresStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		log.Printf("Record archive: %s", maskDSN(cfg.Postgres.DSN))
	} else {
		log.Println("No DATABASE_URL, records will not be archived")
	}

	sink := index.NewClient(&cfg.Index, clients.API)
	if sink.Enabled() {
		log.Printf("Search index: %s (%s)", cfg.Index.URL, cfg.Index.IndexName)
	} else {
		log.Println("No INDEX_URL, records will not be pushed")
	}

	provider := insights.NewProvider(&cfg.Insights)
	log.Printf("Insights provider: %s", provider.Name())

	renderer := browser.NewRenderer()
	defer renderer.Close()

	publisher := services.NewPublisher(sqliteStore, sink, pgStore)
	orchestrator := scraper.NewOrchestrator(cfg, sqliteStore, renderer, publisher)

	if *collectNow {
		runOnce(ctx, orchestrator)
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var uploader *storage.S3Uploader
	if cfg.S3.Enabled() {
		uploader, err = storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to set up S3: %v", err)
		}
		log.Printf("Snapshot bucket: %s", cfg.S3.Bucket)
	} else {
		log.Println("No S3_BUCKET, page snapshots stay queued locally")
	}

	snapshotWorker := workers.NewSnapshotWorker(sqliteStore, uploader)
	go snapshotWorker.Run(ctx, 10, 2*time.Minute)
	log.Println("Snapshot worker started")

	linkWorker := workers.NewLinkCheckWorker(sqliteStore, clients.Fetch, 24*time.Hour)
	go linkWorker.Run(ctx, 20, 30*time.Minute)
	log.Println("Link check worker started")

	orchestrator.SetWorkerTriggers(snapshotWorker.Trigger, linkWorker.Trigger)

	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	server := api.NewServer(sqliteStore, pgStore, sink, provider, orchestrator)
	go func() {
		if err := server.ListenAndServe(cfg.API.Addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("API shutdown: %v", err)
	}

	log.Println("Goodbye!")
}

// runOnce handles the one-shot CLI modes: a single market, a single site, or
// everything.
func runOnce(ctx context.Context, orchestrator *scraper.Orchestrator) {
	switch {
	case *marketFlag != "":
		if *siteFlag == "" {
			log.Fatal("-market requires -site")
		}
		city, state, ok := parseMarket(*marketFlag)
		if !ok {
			log.Fatalf("Invalid market %q, expected \"City,ST\"", *marketFlag)
		}
		run, err := orchestrator.CollectMarket(ctx, *siteFlag, city, state, *maxCount)
		if err != nil {
			log.Fatalf("Collection failed: %v", err)
		}
		log.Printf("Done: %d found, %d accepted, %d rejected",
			run.ListingsFound, run.RecordsAccepted, run.RecordsRejected)
	case *siteFlag != "":
		if err := orchestrator.CollectSite(ctx, *siteFlag, *maxCount); err != nil {
			log.Fatalf("Collection failed: %v", err)
		}
		log.Println("Collection complete")
	default:
		if err := orchestrator.CollectAll(ctx); err != nil {
			log.Fatalf("Collection failed: %v", err)
		}
		log.Println("Collection complete")
	}
}

func parseMarket(s string) (city, state string, ok bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	city = strings.TrimSpace(parts[0])
	state = strings.TrimSpace(parts[1])
	return city, state, city != "" && state != ""
}

// maskDSN hides the password in a connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "(unparseable DSN)"
	}
	return u.Redacted()
}
