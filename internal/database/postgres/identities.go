package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/gatewatch/internal/database"
)

// IdentityRepository provides PostgreSQL-backed gallery storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// ListIdentities returns all identities ordered by creation time.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, embedding, created_at
		FROM identities
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.StoredIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// GetIdentity returns an identity by ID, nil if not found.
func (r *IdentityRepository) GetIdentity(ctx context.Context, id string) (*database.StoredIdentity, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, embedding, created_at
		FROM identities
		WHERE id = $1
	`, id)

	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// CreateIdentity stores a new identity with a random UUID.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, name string, embedding []float32) (*database.StoredIdentity, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO identities (id, name, embedding)
		VALUES ($1, $2, $3)
		RETURNING id, name, embedding, created_at
	`, uuid.NewString(), name, pgvector.NewVector(embedding))

	identity, err := scanIdentity(row)
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return &identity, nil
}

// DeleteIdentity removes an identity; attendance events cascade.
func (r *IdentityRepository) DeleteIdentity(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return database.ErrNotFound
	}
	result, err := r.pool.Exec(ctx, "DELETE FROM identities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func scanIdentity(scanner interface{ Scan(...any) error }) (database.StoredIdentity, error) {
	var identity database.StoredIdentity
	var vec pgvector.Vector
	if err := scanner.Scan(&identity.ID, &identity.Name, &vec, &identity.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity, err
		}
		return identity, fmt.Errorf("scan identity: %w", err)
	}
	identity.Embedding = vec.Slice()
	return identity, nil
}
