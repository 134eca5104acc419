package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/kyotoapp/nextdest/internal/adapters/memory"
	natsadapter "github.com/kyotoapp/nextdest/internal/adapters/nats"
	"github.com/kyotoapp/nextdest/internal/adapters/postgres"
	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/selector"
	"github.com/kyotoapp/nextdest/internal/pkg/config"
	"github.com/kyotoapp/nextdest/internal/pkg/logging"
	"github.com/kyotoapp/nextdest/internal/seed"
	"github.com/kyotoapp/nextdest/internal/workflows"
)

// usage: drawworker            run the worker
//        drawworker draw LAT LON   start one draw and print the result
func main() {
	cfg, err := config.Load("nextdest-drawworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if len(os.Args) > 1 && os.Args[1] == "draw" {
		if err := startDraw(c, cfg.Temporal.TaskQueue, os.Args[2:]); err != nil {
			log.Fatalf("draw: %v", err)
		}
		return
	}

	acts, cleanup, err := newActivities(cfg)
	if err != nil {
		log.Fatalf("activities: %v", err)
	}
	defer cleanup()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.DrawWorkflow)
	w.RegisterActivity(acts)

	slog.Info("draw worker started", "task_queue", cfg.Temporal.TaskQueue, "store", cfg.Store.Driver)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func newActivities(cfg *config.Config) (*workflows.DrawActivities, func(), error) {
	ctx := context.Background()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	initial, err := seed.Load(cfg.Store.SeedPath)
	if err != nil {
		return nil, cleanup, err
	}

	seedVal := cfg.Selection.Seed
	if seedVal == 0 {
		seedVal = uint64(time.Now().UnixNano())
	}
	acts := &workflows.DrawActivities{
		Params: selector.Params{
			AdjustmentFactor: cfg.Selection.AdjustmentFactor,
			DistanceExponent: cfg.Selection.DistanceExponent,
		},
		Rand: rand.New(rand.NewPCG(seedVal, seedVal^0x9e3779b97f4a7c15)),
	}
	if err := acts.Params.Validate(); err != nil {
		return nil, cleanup, err
	}

	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, db.Close)
		acts.Candidates = postgres.NewCandidateRepo(db)
	default:
		acts.Candidates = memory.NewCandidateRepo(initial)
	}

	if cfg.NATS.Enabled {
		nc, err := natsadapter.Connect(cfg.NATS.URL, "nextdest-drawworker")
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
			return acts, cleanup, nil
		}
		closers = append(closers, nc.Close)
		pub, err := natsadapter.NewPublisher(nc)
		if err != nil {
			slog.Warn("jetstream unavailable", "error", err)
			return acts, cleanup, nil
		}
		acts.Publisher = pub
	}

	return acts, cleanup, nil
}

func startDraw(c client.Client, taskQueue string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: drawworker draw LAT LON")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("longitude: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("draw-%d", time.Now().UnixNano()),
		TaskQueue: taskQueue,
	}, workflows.DrawWorkflow, workflows.DrawInput{Origin: domain.GeoPoint{Lat: lat, Lon: lon}})
	if err != nil {
		return err
	}

	var sel domain.Selection
	if err := run.Get(ctx, &sel); err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(sel)
}
