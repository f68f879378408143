package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stays_observer/models"
)

// PostgresStore archives enriched bookings and listing codes so history
// outlives the rolling fetch window.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 5
	config.MinConns = 1
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS archived_bookings (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			listing_id TEXT,
			kind TEXT,
			check_in DATE,
			check_out DATE,
			guest_name TEXT,
			guest_count INTEGER,
			nights INTEGER,
			platform TEXT,
			data JSONB,
			first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS archived_listings (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_archived_bookings_listing ON archived_bookings(listing_id, check_in);
	`)
	return err
}

// =============================================================================
// Archive
// =============================================================================

const upsertBookingSQL = `
	INSERT INTO archived_bookings (
		id, code, listing_id, kind, check_in, check_out, guest_name, guest_count, nights, platform, data, last_seen_at
	) VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, NULLIF($6, '')::date, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		code = EXCLUDED.code,
		listing_id = EXCLUDED.listing_id,
		kind = EXCLUDED.kind,
		check_in = EXCLUDED.check_in,
		check_out = EXCLUDED.check_out,
		guest_name = EXCLUDED.guest_name,
		guest_count = EXCLUDED.guest_count,
		nights = EXCLUDED.nights,
		platform = EXCLUDED.platform,
		data = EXCLUDED.data,
		last_seen_at = EXCLUDED.last_seen_at`

const upsertListingSQL = `
	INSERT INTO archived_listings (id, code, updated_at) VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) UpsertBookings(ctx context.Context, bookings []models.Booking, seenAt time.Time) error {
	batch := &pgx.Batch{}
	for _, b := range bookings {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal booking %s: %w", b.ID, err)
		}
		batch.Queue(upsertBookingSQL, b.ID, b.Code, b.ListingID, string(b.Kind), b.CheckInDate, b.CheckOutDate,
			b.GuestName, b.GuestCount, b.Nights, b.Platform, data, seenAt)
	}
	return s.sendBatch(ctx, batch)
}

func (s *PostgresStore) UpsertListingCodes(ctx context.Context, codes [][2]string, seenAt time.Time) error {
	batch := &pgx.Batch{}
	for _, pair := range codes {
		batch.Queue(upsertListingSQL, pair[0], pair[1], seenAt)
	}
	return s.sendBatch(ctx, batch)
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// Publish archives a persisted snapshot.
func (s *PostgresStore) Publish(ctx context.Context, snap *models.Snapshot) error {
	seenAt := time.UnixMilli(snap.LastFetchTime)
	if err := s.UpsertBookings(ctx, snap.Bookings, seenAt); err != nil {
		return fmt.Errorf("archive bookings: %w", err)
	}
	if err := s.UpsertListingCodes(ctx, snap.ListingsMap, seenAt); err != nil {
		return fmt.Errorf("archive listings: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountArchivedBookings(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM archived_bookings`).Scan(&n)
	return n, err
}
