package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/kyotoapp/nextdest/internal/adapters/http"
	"github.com/kyotoapp/nextdest/internal/adapters/memory"
	natsadapter "github.com/kyotoapp/nextdest/internal/adapters/nats"
	"github.com/kyotoapp/nextdest/internal/adapters/postgres"
	"github.com/kyotoapp/nextdest/internal/adapters/valkey"
	"github.com/kyotoapp/nextdest/internal/core/location"
	"github.com/kyotoapp/nextdest/internal/core/ports"
	"github.com/kyotoapp/nextdest/internal/core/selector"
	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/core/usecases"
	"github.com/kyotoapp/nextdest/internal/pkg/config"
	"github.com/kyotoapp/nextdest/internal/pkg/logging"
	"github.com/kyotoapp/nextdest/internal/pkg/telemetry"
	"github.com/kyotoapp/nextdest/internal/seed"
)

func main() {
	cfg, err := config.Load("nextdest-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	initial, err := seed.Load(cfg.Store.SeedPath)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	deps := &http.Dependencies{DocsPath: cfg.Server.DocsPath}

	// Candidate store
	var points ports.CandidateRepository
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo := postgres.NewCandidateRepo(db)
		n, err := repo.SeedIfEmpty(ctx, initial)
		if err != nil {
			log.Fatalf("seed database: %v", err)
		}
		if n > 0 {
			slog.Info("seeded candidate set", "count", n)
		}
		points = repo
		deps.DB = db
	default:
		points = memory.NewCandidateRepo(initial)
	}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		c, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer c.Close()
			cache = c
			deps.Cache = c
		}
	}

	// NATS
	var publisher ports.EventPublisher
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = natsadapter.Connect(cfg.NATS.URL, "nextdest-api")
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer natsConn.Close()
			pub, err := natsadapter.NewPublisher(natsConn)
			if err != nil {
				slog.Warn("jetstream unavailable", "error", err)
			} else {
				publisher = pub
			}
			deps.NATS = natsConn
		}
	}

	// Core
	store := state.NewStore()
	locSvc := usecases.NewLocationService(location.NewTracker(), store)

	params := selector.Params{
		AdjustmentFactor: cfg.Selection.AdjustmentFactor,
		DistanceExponent: cfg.Selection.DistanceExponent,
	}
	destSvc, err := usecases.NewDestinationService(points, locSvc.Tracker(), cache, publisher, store, params, newRand(cfg.Selection.Seed))
	if err != nil {
		log.Fatalf("selection: %v", err)
	}
	if err := destSvc.Refresh(ctx); err != nil {
		slog.Warn("candidate refresh failed", "error", err)
	}

	if natsConn != nil {
		sub := natsadapter.NewSubscriber(natsConn)
		defer sub.Close()
		if err := locSvc.Listen(ctx, sub); err != nil {
			slog.Warn("location subscription failed", "error", err)
		}
	}

	deps.Destinations = destSvc
	deps.Location = locSvc
	deps.State = store

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Nextdest API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", cfg.Store.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// newRand returns a PCG source. Seed 0 seeds from the clock.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
