package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyotoapp/nextdest/internal/adapters/postgres"
	"github.com/kyotoapp/nextdest/internal/pkg/config"
	"github.com/kyotoapp/nextdest/internal/seed"
)

var upFiles = []string{
	"migrations/001_candidates.sql",
}

var downFiles = []string{
	"migrations/001_candidates.down.sql",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|seed>")
	}

	cfg, err := config.Load("nextdest-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		runFiles(ctx, db.Pool, upFiles)
		log.Println("all migrations applied")
	case "down":
		runFiles(ctx, db.Pool, downFiles)
		log.Println("all migrations reverted")
	case "seed":
		points, err := seed.Load(cfg.Store.SeedPath)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		n, err := postgres.NewCandidateRepo(db).SeedIfEmpty(ctx, points)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		fmt.Printf("OK  %d candidates inserted\n", n)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func runFiles(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}
}
