package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"home_scout/models"
)

// SQLiteStore is the operational database: run records, per-run logs,
// the command queue, page snapshots waiting for upload, the seen-listing
// dedupe set, and per-site stats. Record data itself lives in Postgres and
// the search index.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collect_runs (
		id INTEGER PRIMARY KEY,
		site_id TEXT,
		city TEXT,
		state TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		listings_found INTEGER DEFAULT 0,
		records_accepted INTEGER DEFAULT 0,
		records_rejected INTEGER DEFAULT 0,
		index_task_id TEXT DEFAULT '',
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS collect_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS page_snapshots (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		site_id TEXT,
		city TEXT,
		state TEXT,
		url TEXT,
		html TEXT,
		s3_key TEXT,
		status TEXT DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		captured_at DATETIME,
		uploaded_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS seen_listings (
		fingerprint TEXT PRIMARY KEY,
		object_id TEXT,
		site_id TEXT,
		property_url TEXT,
		link_alive BOOLEAN DEFAULT TRUE,
		link_checked_at DATETIME,
		first_seen_at DATETIME,
		last_seen_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS site_stats (
		site_id TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		total_records INTEGER DEFAULT 0,
		success_rate REAL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON collect_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON collect_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_snapshots_pending ON page_snapshots(status) WHERE status = 'pending';
	CREATE INDEX IF NOT EXISTS idx_seen_site ON seen_listings(site_id, last_seen_at);
	CREATE INDEX IF NOT EXISTS idx_seen_alive ON seen_listings(link_alive, link_checked_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.CollectRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO collect_runs (site_id, city, state, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.SiteID, run.City, run.State, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.CollectRun) error {
	_, err := s.db.Exec(`
		UPDATE collect_runs SET finished_at = ?, status = ?, listings_found = ?,
			records_accepted = ?, records_rejected = ?, index_task_id = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsFound,
		run.RecordsAccepted, run.RecordsRejected, run.IndexTaskID, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) RecentRuns(limit int) ([]models.CollectRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, site_id, city, state, started_at, finished_at, status,
			listings_found, records_accepted, records_rejected, index_task_id, errors_count
		FROM collect_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.CollectRun
	for rows.Next() {
		var run models.CollectRun
		var taskID sql.NullString
		if err := rows.Scan(&run.ID, &run.SiteID, &run.City, &run.State, &run.StartedAt,
			&run.FinishedAt, &run.Status, &run.ListingsFound, &run.RecordsAccepted,
			&run.RecordsRejected, &taskID, &run.ErrorsCount); err != nil {
			return nil, err
		}
		run.IndexTaskID = taskID.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO collect_logs (run_id, timestamp, level, message, site_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, siteID)
	return err
}

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	var raw []byte
	if params != nil {
		var err error
		raw, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, cmd, raw)
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

func (s *SQLiteStore) CreateSnapshot(snap *models.PageSnapshot) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO page_snapshots (run_id, site_id, city, state, url, html, status, attempts, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		snap.RunID, snap.SiteID, snap.City, snap.State, snap.URL, snap.HTML,
		models.SnapshotStatusPending, snap.CapturedAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) PendingSnapshots(limit int) ([]models.PageSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, run_id, site_id, city, state, url, html, s3_key, status, attempts, captured_at, uploaded_at
		FROM page_snapshots WHERE status = ? AND attempts < 3
		ORDER BY captured_at LIMIT ?`, models.SnapshotStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.PageSnapshot
	for rows.Next() {
		var snap models.PageSnapshot
		var s3Key sql.NullString
		if err := rows.Scan(&snap.ID, &snap.RunID, &snap.SiteID, &snap.City, &snap.State,
			&snap.URL, &snap.HTML, &s3Key, &snap.Status, &snap.Attempts,
			&snap.CapturedAt, &snap.UploadedAt); err != nil {
			return nil, err
		}
		if s3Key.Valid {
			snap.S3Key = &s3Key.String
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// MarkSnapshotUploaded records the S3 key and drops the inline HTML, which
// has no reason to stay in the operational database once it is in S3.
func (s *SQLiteStore) MarkSnapshotUploaded(id int64, s3Key string) error {
	_, err := s.db.Exec(`
		UPDATE page_snapshots SET status = ?, s3_key = ?, html = '', uploaded_at = ?
		WHERE id = ?`, models.SnapshotStatusUploaded, s3Key, time.Now(), id)
	return err
}

func (s *SQLiteStore) MarkSnapshotFailed(id int64) error {
	_, err := s.db.Exec(`
		UPDATE page_snapshots SET attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= 3 THEN ? ELSE status END
		WHERE id = ?`, models.SnapshotStatusFailed, id)
	return err
}

// RememberListing upserts one fingerprint into the dedupe set and reports
// whether it was new.
func (s *SQLiteStore) RememberListing(fingerprint, objectID, siteID, propertyURL string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM seen_listings WHERE fingerprint = ?`, fingerprint).Scan(&exists)
	known := err == nil
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}

	now := time.Now()
	_, err = s.db.Exec(`
		INSERT INTO seen_listings (fingerprint, object_id, site_id, property_url, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			property_url = CASE WHEN excluded.property_url != '' THEN excluded.property_url ELSE property_url END`,
		fingerprint, objectID, siteID, propertyURL, now, now)
	if err != nil {
		return false, err
	}
	return !known, nil
}

// StaleLinks returns listings whose property URL has not been checked since
// the cutoff.
func (s *SQLiteStore) StaleLinks(cutoff time.Time, limit int) ([]SeenListing, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT fingerprint, object_id, site_id, property_url, link_alive
		FROM seen_listings
		WHERE property_url != '' AND (link_checked_at IS NULL OR link_checked_at < ?)
		ORDER BY link_checked_at ASC LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []SeenListing
	for rows.Next() {
		var l SeenListing
		if err := rows.Scan(&l.Fingerprint, &l.ObjectID, &l.SiteID, &l.PropertyURL, &l.LinkAlive); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

type SeenListing struct {
	Fingerprint string
	ObjectID    string
	SiteID      string
	PropertyURL string
	LinkAlive   bool
}

func (s *SQLiteStore) MarkLinkChecked(fingerprint string, alive bool) error {
	_, err := s.db.Exec(`
		UPDATE seen_listings SET link_alive = ?, link_checked_at = ?
		WHERE fingerprint = ?`, alive, time.Now(), fingerprint)
	return err
}

func (s *SQLiteStore) UpdateSiteStats(siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO site_stats (site_id, last_run_at, last_run_status, total_records, success_rate)
		SELECT
			?,
			(SELECT started_at FROM collect_runs WHERE site_id = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT status FROM collect_runs WHERE site_id = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT COALESCE(SUM(records_accepted), 0) FROM collect_runs WHERE site_id = ?),
			(SELECT CAST(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS REAL) /
				NULLIF(COUNT(*), 0) FROM collect_runs WHERE site_id = ?)
		ON CONFLICT(site_id) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			total_records = excluded.total_records,
			success_rate = excluded.success_rate`,
		siteID, siteID, siteID, siteID, siteID)
	return err
}

func (s *SQLiteStore) GetSiteStats(siteID string) (*models.SiteStats, error) {
	row := s.db.QueryRow(`
		SELECT site_id, last_run_at, last_run_status, total_records, success_rate
		FROM site_stats WHERE site_id = ?`, siteID)

	var stats models.SiteStats
	var status sql.NullString
	err := row.Scan(&stats.SiteID, &stats.LastRunAt, &status, &stats.TotalRecords, &stats.SuccessRate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stats.LastRunStatus = status.String
	return &stats, nil
}

// ResetAllData clears every operational table.
func (s *SQLiteStore) ResetAllData() error {
	tables := []string{
		"collect_logs",
		"collect_runs",
		"commands",
		"page_snapshots",
		"seen_listings",
		"site_stats",
	}

	for _, table := range tables {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	return nil
}
