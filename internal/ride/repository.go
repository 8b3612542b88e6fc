package ride

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const (
	activeTable   = "rides"
	archivedTable = "expired_rides"
)

// Repository persists the ride collections to Postgres. It implements
// Persister; the Store treats it as best-effort and keeps its in-memory
// maps authoritative.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new ride repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the ride tables if they do not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS %s (
			message_id       TEXT PRIMARY KEY,
			ride_id          TEXT NOT NULL,
			channel_id       TEXT NOT NULL,
			thread_id        TEXT NOT NULL DEFAULT '',
			driver_id        TEXT NOT NULL,
			destination      TEXT NOT NULL,
			departure        TEXT NOT NULL,
			meeting_location TEXT NOT NULL,
			notes            TEXT NOT NULL DEFAULT 'None',
			total_seats      INT NOT NULL,
			riders           TEXT[] NOT NULL DEFAULT '{}',
			expires_at       BIGINT NOT NULL
		)
	`
	for _, table := range []string{activeTable, archivedTable} {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf(ddl, table)); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table, err)
		}
	}
	return nil
}

// LoadActive returns every ride on the active board
func (r *Repository) LoadActive(ctx context.Context) ([]*Ride, error) {
	return r.loadAll(ctx, activeTable)
}

// LoadArchived returns every expired ride in the archive
func (r *Repository) LoadArchived(ctx context.Context) ([]*Ride, error) {
	return r.loadAll(ctx, archivedTable)
}

// SaveActive inserts or updates a ride on the active board
func (r *Repository) SaveActive(ctx context.Context, ride *Ride) error {
	return r.save(ctx, activeTable, ride)
}

// DeleteActive removes a ride from the active board
func (r *Repository) DeleteActive(ctx context.Context, messageID string) error {
	return r.delete(ctx, activeTable, messageID)
}

// SaveArchived inserts or updates a ride in the archive
func (r *Repository) SaveArchived(ctx context.Context, ride *Ride) error {
	return r.save(ctx, archivedTable, ride)
}

// DeleteArchived removes a ride from the archive
func (r *Repository) DeleteArchived(ctx context.Context, messageID string) error {
	return r.delete(ctx, archivedTable, messageID)
}

func (r *Repository) loadAll(ctx context.Context, table string) ([]*Ride, error) {
	query := fmt.Sprintf(`
		SELECT message_id, ride_id, channel_id, thread_id, driver_id,
		       destination, departure, meeting_location, notes,
		       total_seats, riders, expires_at
		FROM %s
	`, table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load rides from %s: %w", table, err)
	}
	defer rows.Close()

	var rides []*Ride
	for rows.Next() {
		ride := &Ride{}
		if err := rows.Scan(
			&ride.MessageID,
			&ride.RideID,
			&ride.ChannelID,
			&ride.ThreadID,
			&ride.DriverID,
			&ride.Destination,
			&ride.Departure,
			&ride.MeetingLocation,
			&ride.Notes,
			&ride.TotalSeats,
			pq.Array(&ride.Riders),
			&ride.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		if ride.Riders == nil {
			ride.Riders = []string{}
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rides from %s: %w", table, err)
	}

	return rides, nil
}

func (r *Repository) save(ctx context.Context, table string, ride *Ride) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (message_id, ride_id, channel_id, thread_id, driver_id,
		                destination, departure, meeting_location, notes,
		                total_seats, riders, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (message_id) DO UPDATE SET
			thread_id  = EXCLUDED.thread_id,
			riders     = EXCLUDED.riders,
			expires_at = EXCLUDED.expires_at
	`, table)

	_, err := r.db.ExecContext(ctx, query,
		ride.MessageID,
		ride.RideID,
		ride.ChannelID,
		ride.ThreadID,
		ride.DriverID,
		ride.Destination,
		ride.Departure,
		ride.MeetingLocation,
		ride.Notes,
		ride.TotalSeats,
		pq.Array(ride.Riders),
		ride.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save ride to %s: %w", table, err)
	}
	return nil
}

func (r *Repository) delete(ctx context.Context, table, messageID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE message_id = $1`, table)
	if _, err := r.db.ExecContext(ctx, query, messageID); err != nil {
		return fmt.Errorf("failed to delete ride from %s: %w", table, err)
	}
	return nil
}
