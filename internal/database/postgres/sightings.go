package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/gatewatch/internal/database"
)

// SightingRepository provides PostgreSQL-backed storage of unknown sightings.
type SightingRepository struct {
	pool *Pool
}

// NewSightingRepository creates a new PostgreSQL sighting repository.
func NewSightingRepository(pool *Pool) *SightingRepository {
	return &SightingRepository{pool: pool}
}

const sightingColumns = `id, number, embedding, confidence, image, first_seen, last_seen, detections`

// ListSightings returns up to limit sightings, most recently seen first.
// A limit of zero returns every sighting.
func (r *SightingRepository) ListSightings(ctx context.Context, limit int) ([]database.StoredSighting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sightingColumns+`
		FROM sightings
		ORDER BY last_seen DESC, number DESC
		LIMIT NULLIF($1, 0)
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()
	return scanSightings(rows)
}

// GetSighting returns a sighting by ID, nil if not found.
func (r *SightingRepository) GetSighting(ctx context.Context, id string) (*database.StoredSighting, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	s, err := scanSighting(r.pool.QueryRow(ctx, `
		SELECT `+sightingColumns+`
		FROM sightings
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AllSightings returns every sighting ordered by number.
func (r *SightingRepository) AllSightings(ctx context.Context) ([]database.StoredSighting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sightingColumns+`
		FROM sightings
		ORDER BY number
	`)
	if err != nil {
		return nil, fmt.Errorf("query all sightings: %w", err)
	}
	defer rows.Close()
	return scanSightings(rows)
}

// CreateSighting stores a new sighting; the number comes from the table sequence.
func (r *SightingRepository) CreateSighting(ctx context.Context, s database.StoredSighting) (*database.StoredSighting, error) {
	if s.Detections == 0 {
		s.Detections = 1
	}
	created, err := scanSighting(r.pool.QueryRow(ctx, `
		INSERT INTO sightings (id, embedding, confidence, image, first_seen, last_seen, detections)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+sightingColumns,
		uuid.NewString(), pgvector.NewVector(s.Embedding), s.Confidence, s.Image, s.FirstSeen, s.LastSeen, s.Detections,
	))
	if err != nil {
		return nil, fmt.Errorf("insert sighting: %w", err)
	}
	return &created, nil
}

// RecordDetection bumps the detection count and refreshes the latest crop.
func (r *SightingRepository) RecordDetection(
	ctx context.Context, id string, confidence float64, image string, at time.Time,
) (*database.StoredSighting, error) {
	if uuid.Validate(id) != nil {
		return nil, database.ErrNotFound
	}
	s, err := scanSighting(r.pool.QueryRow(ctx, `
		UPDATE sightings
		SET detections = detections + 1,
		    confidence = $2,
		    image = CASE WHEN $3 = '' THEN image ELSE $3 END,
		    last_seen = GREATEST(last_seen, $4)
		WHERE id = $1
		RETURNING `+sightingColumns,
		id, confidence, image, at,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update sighting: %w", err)
	}
	return &s, nil
}

// DeleteSighting removes a sighting.
func (r *SightingRepository) DeleteSighting(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return database.ErrNotFound
	}
	result, err := r.pool.Exec(ctx, "DELETE FROM sightings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete sighting: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sighting: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func scanSighting(scanner interface{ Scan(...any) error }) (database.StoredSighting, error) {
	var s database.StoredSighting
	var vec pgvector.Vector
	err := scanner.Scan(
		&s.ID,
		&s.Number,
		&vec,
		&s.Confidence,
		&s.Image,
		&s.FirstSeen,
		&s.LastSeen,
		&s.Detections,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("scan sighting: %w", err)
	}
	s.Embedding = vec.Slice()
	return s, nil
}

func scanSightings(rows *sql.Rows) ([]database.StoredSighting, error) {
	var sightings []database.StoredSighting
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, err
		}
		sightings = append(sightings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sightings: %w", err)
	}
	return sightings, nil
}
