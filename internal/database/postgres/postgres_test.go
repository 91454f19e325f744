//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/gatewatch/internal/config"
	"github.com/kozaktomas/gatewatch/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if _, err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(seed float32) []float32 {
	emb := make([]float32, 512)
	for i := range emb {
		emb[i] = seed + float32(i)/512.0
	}
	return emb
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	applied, err := pool.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no pending migrations, got %v", applied)
	}

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied failed: %v", err)
	}
	if len(versions) != 3 {
		t.Errorf("expected 3 applied migrations, got %v", versions)
	}
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool)

	created, err := repo.CreateIdentity(ctx, "Alice", testEmbedding(0.1))
	if err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected ID and timestamp, got %+v", created)
	}

	got, err := repo.GetIdentity(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if got == nil || got.Name != "Alice" || len(got.Embedding) != 512 {
		t.Fatalf("unexpected identity %+v", got)
	}

	if missing, err := repo.GetIdentity(ctx, "not-a-uuid"); err != nil || missing != nil {
		t.Errorf("expected nil for invalid ID, got %+v, %v", missing, err)
	}

	if _, err := repo.CreateIdentity(ctx, "Bob", testEmbedding(0.2)); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	all, err := repo.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Alice" {
		t.Errorf("unexpected identities %+v", all)
	}

	if err := repo.DeleteIdentity(ctx, created.ID); err != nil {
		t.Fatalf("DeleteIdentity failed: %v", err)
	}
	if err := repo.DeleteIdentity(ctx, created.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	identities := NewIdentityRepository(pool)
	repo := NewAttendanceRepository(pool)

	alice, err := identities.CreateIdentity(ctx, "Alice", testEmbedding(0.1))
	if err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	last, err := repo.LastEvent(ctx, alice.ID)
	if err != nil || last != nil {
		t.Fatalf("expected no events, got %+v, %v", last, err)
	}

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if _, err := repo.AppendEvent(ctx, database.StoredAttendanceEvent{
		IdentityID: alice.ID, Name: "Alice", Kind: database.KindIn, At: base,
	}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	out, err := repo.AppendEvent(ctx, database.StoredAttendanceEvent{
		IdentityID: alice.ID, Name: "Alice", Kind: database.KindOut, At: base.Add(4 * time.Hour),
		SessionSeconds: 14400, BreakType: "lunch", BreakLabel: "Lunch break",
	})
	if err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if out.ID == 0 {
		t.Error("expected event ID to be set")
	}

	last, err = repo.LastEvent(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LastEvent failed: %v", err)
	}
	if last == nil || last.Kind != database.KindOut || last.BreakType != "lunch" || last.SessionSeconds != 14400 {
		t.Fatalf("unexpected last event %+v", last)
	}

	events, err := repo.EventsBetween(ctx, alice.ID, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("EventsBetween failed: %v", err)
	}
	if len(events) != 2 || events[0].Kind != database.KindIn {
		t.Errorf("unexpected events %+v", events)
	}

	events, err = repo.EventsBetween(ctx, alice.ID, base.Add(time.Hour), base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("EventsBetween failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected empty window, got %+v", events)
	}

	// events cascade with the identity
	if err := identities.DeleteIdentity(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteIdentity failed: %v", err)
	}
	last, err = repo.LastEvent(ctx, alice.ID)
	if err != nil || last != nil {
		t.Errorf("expected events to be deleted, got %+v, %v", last, err)
	}
}

func TestSightingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSightingRepository(pool)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first, err := repo.CreateSighting(ctx, database.StoredSighting{
		Embedding: testEmbedding(0.3), Confidence: 20, Image: "data:image/jpeg;base64,AAAA",
		FirstSeen: now, LastSeen: now,
	})
	if err != nil {
		t.Fatalf("CreateSighting failed: %v", err)
	}
	second, err := repo.CreateSighting(ctx, database.StoredSighting{
		Embedding: testEmbedding(0.9), FirstSeen: now, LastSeen: now,
	})
	if err != nil {
		t.Fatalf("CreateSighting failed: %v", err)
	}
	if second.Number != first.Number+1 {
		t.Errorf("expected sequential numbers, got %d and %d", first.Number, second.Number)
	}
	if first.Detections != 1 {
		t.Errorf("expected 1 detection, got %d", first.Detections)
	}

	updated, err := repo.RecordDetection(ctx, first.ID, 25, "", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("RecordDetection failed: %v", err)
	}
	if updated.Detections != 2 || updated.Confidence != 25 || updated.Image != first.Image {
		t.Errorf("unexpected update %+v", updated)
	}

	list, err := repo.ListSightings(ctx, 1)
	if err != nil {
		t.Fatalf("ListSightings failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Errorf("expected most recently seen sighting first, got %+v", list)
	}

	all, err := repo.AllSightings(ctx)
	if err != nil {
		t.Fatalf("AllSightings failed: %v", err)
	}
	if len(all) != 2 || len(all[0].Embedding) != 512 {
		t.Errorf("unexpected sightings %+v", all)
	}

	if err := repo.DeleteSighting(ctx, second.ID); err != nil {
		t.Fatalf("DeleteSighting failed: %v", err)
	}
	if _, err := repo.RecordDetection(ctx, second.ID, 10, "", now); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got, err := repo.GetSighting(ctx, second.ID); err != nil || got != nil {
		t.Errorf("expected deleted sighting to be gone, got %+v, %v", got, err)
	}
}
