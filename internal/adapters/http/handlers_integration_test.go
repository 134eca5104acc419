//go:build integration

package http_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	handler "github.com/kyotoapp/nextdest/internal/adapters/http"
	"github.com/kyotoapp/nextdest/internal/adapters/postgres"
	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/location"
	"github.com/kyotoapp/nextdest/internal/core/selector"
	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/core/usecases"
	"github.com/kyotoapp/nextdest/internal/pkg/config"
)

// setupTestDB connects to the configured database and recreates the
// candidates table.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	t.Setenv("NEXTDEST_STORE_DRIVER", "postgres")
	cfg, err := config.Load("nextdest-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	schema, err := os.ReadFile("../../../migrations/001_candidates.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `DROP TABLE IF EXISTS candidates`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCandidates_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	repo := postgres.NewCandidateRepo(db)

	n, err := repo.SeedIfEmpty(context.Background(), scenarioPoints())
	if err != nil || n != 2 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	if n, _ := repo.SeedIfEmpty(context.Background(), scenarioPoints()); n != 0 {
		t.Errorf("second seed wrote %d rows", n)
	}

	store := state.NewStore()
	loc := usecases.NewLocationService(location.NewTracker(), store)
	dest, err := usecases.NewDestinationService(repo, loc.Tracker(), nil, nil, store, selector.DefaultParams(), fixedRand(0.5))
	if err != nil {
		t.Fatal(err)
	}
	app := setupApp(&handler.Dependencies{Destinations: dest, Location: loc, State: store, DB: db})

	if code, body := do(t, app, "POST", "/v1/candidates", `{"name":"Toji","latitude":"34.9806","longitude":"135.7478"}`); code != 201 {
		t.Fatalf("expected 201, got %d: %s", code, body)
	}

	code, body := do(t, app, "GET", "/v1/candidates", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var result struct {
		Data []domain.Point `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data) != 3 || result.Data[2].Name != "Toji" {
		t.Fatalf("expected insertion order with Toji last, got %+v", result.Data)
	}

	grant(t, app)
	if code, body := do(t, app, "POST", "/v1/selections", ""); code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}

	if code, _ := do(t, app, "GET", "/v1/ready", ""); code != 200 {
		t.Errorf("expected ready with a live database, got %d", code)
	}
}
