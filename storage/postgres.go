package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"home_scout/models"
)

// PostgresStore is the long-term record archive. The search index holds the
// live dataset; the archive keeps every accepted record with the run that
// produced it, so markets can be rebuilt or re-analyzed later.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS property_records (
		object_id TEXT PRIMARY KEY,
		run_id BIGINT,
		address TEXT NOT NULL,
		address_is_synthesized BOOLEAN DEFAULT FALSE,
		price TEXT,
		price_value INTEGER,
		beds INTEGER,
		baths REAL,
		sqft INTEGER,
		image_url TEXT,
		property_url TEXT,
		price_range TEXT,
		property_type TEXT,
		description TEXT,
		city TEXT,
		state TEXT,
		source TEXT,
		collected_at TIMESTAMPTZ,
		archived_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_records_city_state ON property_records(city, state, collected_at);
	CREATE INDEX IF NOT EXISTS idx_records_run ON property_records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_price ON property_records(price_value);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// ArchiveRecords writes one accepted batch. The whole batch goes in a single
// round trip; an individual conflict on object_id is impossible because ids
// are minted per extraction.
func (s *PostgresStore) ArchiveRecords(ctx context.Context, runID int64, records []models.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO property_records (
				object_id, run_id, address, address_is_synthesized, price, price_value,
				beds, baths, sqft, image_url, property_url, price_range, property_type,
				description, city, state, source, collected_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			r.ObjectID, runID, r.Address, r.AddressIsSynthesized, r.Price, r.PriceValue,
			r.Beds, r.Baths, r.SqFt, r.ImageURL, r.PropertyURL, r.PriceRange, r.PropertyType,
			r.Description, r.City, r.State, r.Source, r.CollectedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("archive record: %w", err)
		}
	}
	return nil
}

const recordColumns = `object_id, address, address_is_synthesized, price, price_value,
	beds, baths, sqft, image_url, property_url, price_range, property_type,
	description, city, state, source, collected_at`

func scanRecord(row pgx.Row) (*models.PropertyRecord, error) {
	var r models.PropertyRecord
	err := row.Scan(
		&r.ObjectID, &r.Address, &r.AddressIsSynthesized, &r.Price, &r.PriceValue,
		&r.Beds, &r.Baths, &r.SqFt, &r.ImageURL, &r.PropertyURL, &r.PriceRange, &r.PropertyType,
		&r.Description, &r.City, &r.State, &r.Source, &r.CollectedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, objectID string) (*models.PropertyRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM property_records WHERE object_id = $1`, objectID)

	record, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RecordsForMarket returns the most recently collected records for one
// city/state, newest first.
func (s *PostgresStore) RecordsForMarket(ctx context.Context, city, state string, limit int) ([]models.PropertyRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM property_records
		WHERE city = $1 AND state = $2
		ORDER BY collected_at DESC
		LIMIT $3`, city, state, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PropertyRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) CountRecords(ctx context.Context, city, state string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM property_records WHERE city = $1 AND state = $2`,
		city, state).Scan(&count)
	return count, err
}
