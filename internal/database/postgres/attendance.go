package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/gatewatch/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance history.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `id, identity_id, name, kind, at, session_seconds, break_type, break_label`

// LastEvent returns the most recent event of an identity, nil if there is none.
func (r *AttendanceRepository) LastEvent(ctx context.Context, identityID string) (*database.StoredAttendanceEvent, error) {
	if uuid.Validate(identityID) != nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_events
		WHERE identity_id = $1
		ORDER BY at DESC, id DESC
		LIMIT 1
	`, identityID)

	ev, err := scanAttendanceEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// EventsBetween returns events with from <= at < to, oldest first.
func (r *AttendanceRepository) EventsBetween(
	ctx context.Context, identityID string, from, to time.Time,
) ([]database.StoredAttendanceEvent, error) {
	if uuid.Validate(identityID) != nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_events
		WHERE identity_id = $1 AND at >= $2 AND at < $3
		ORDER BY at, id
	`, identityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query attendance events: %w", err)
	}
	defer rows.Close()

	var events []database.StoredAttendanceEvent
	for rows.Next() {
		ev, err := scanAttendanceEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance events: %w", err)
	}
	return events, nil
}

// AppendEvent stores an event and returns it with its ID set.
func (r *AttendanceRepository) AppendEvent(
	ctx context.Context, ev database.StoredAttendanceEvent,
) (*database.StoredAttendanceEvent, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance_events (identity_id, name, kind, at, session_seconds, break_type, break_label)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, ev.IdentityID, ev.Name, ev.Kind, ev.At, ev.SessionSeconds, ev.BreakType, ev.BreakLabel).Scan(&ev.ID)
	if err != nil {
		return nil, fmt.Errorf("insert attendance event: %w", err)
	}
	return &ev, nil
}

func scanAttendanceEvent(scanner interface{ Scan(...any) error }) (database.StoredAttendanceEvent, error) {
	var ev database.StoredAttendanceEvent
	err := scanner.Scan(
		&ev.ID,
		&ev.IdentityID,
		&ev.Name,
		&ev.Kind,
		&ev.At,
		&ev.SessionSeconds,
		&ev.BreakType,
		&ev.BreakLabel,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ev, err
	}
	if err != nil {
		return ev, fmt.Errorf("scan attendance event: %w", err)
	}
	return ev, nil
}
