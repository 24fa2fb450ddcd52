// README: Postgres trip store tests; skipped unless WAYFARER_TEST_DSN points at a database.
package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"wayfarer/internal/infra"
)

func setupPostgresStore(t *testing.T) (*PostgresStore, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("WAYFARER_TEST_DSN")
	if dsn == "" {
		t.Skip("WAYFARER_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := infra.NewDB(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root, err := infra.RepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	if err := infra.ApplyMigrations(ctx, db, filepath.Join(root, "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE trip_records, travel_profiles"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresStore(db), db
}

func TestPostgresStore_RecordPruneAndSummary(t *testing.T) {
	store, _ := setupPostgresStore(t)
	ctx := context.Background()
	svc := NewService(store, nil, &steppingClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, nil)

	var first string
	for i := 0; i < MaxRecentTrips+2; i++ {
		rec, err := svc.RecordTrip(ctx, "pg_user", TripInput{Destination: "Paris", Preferences: []string{"art"}, Rating: rating(5)})
		if err != nil {
			t.Fatalf("RecordTrip: %v", err)
		}
		if i == 0 {
			first = rec.ID
		}
	}

	hist, err := svc.LoadHistory(ctx, "pg_user")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(hist) != MaxRecentTrips {
		t.Fatalf("expected %d trips, got %d", MaxRecentTrips, len(hist))
	}
	if _, err := store.Get(ctx, "pg_user", first); !errors.Is(err, ErrNotFound) {
		t.Fatalf("oldest trip should be pruned, got %v", err)
	}

	prof, err := svc.Profile(ctx, "pg_user")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if prof.Summary.TotalTrips != MaxRecentTrips+2 || prof.Summary.AvgSatisfactionRating != 5 {
		t.Fatalf("summary: %+v", prof.Summary)
	}
}

func TestPostgresStore_RatingAndUsage(t *testing.T) {
	store, _ := setupPostgresStore(t)
	ctx := context.Background()
	svc := NewService(store, nil, nil, nil)

	rec, err := svc.RecordTrip(ctx, "pg_user", TripInput{Destination: "Rome", Highlights: []string{"Colosseum"}})
	if err != nil {
		t.Fatalf("RecordTrip: %v", err)
	}
	got, err := svc.RateTrip(ctx, "pg_user", rec.ID, 1.5)
	if err != nil {
		t.Fatalf("RateTrip: %v", err)
	}
	if got.SatisfactionRating != 1.5 || len(got.Highlights) != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if err := svc.AddUsage(ctx, map[string]int64{rec.ID: 3}); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	got, _ = store.Get(ctx, "pg_user", rec.ID)
	if got.Usage() != 3 {
		t.Fatalf("usage: %d", got.Usage())
	}
	if _, err := svc.RateTrip(ctx, "pg_user", "nope", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
