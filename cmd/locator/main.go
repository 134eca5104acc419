package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/kyotoapp/nextdest/internal/adapters/nats"
	"github.com/kyotoapp/nextdest/internal/pkg/config"
	"github.com/kyotoapp/nextdest/internal/pkg/logging"
)

const interval = 5 * time.Second

// locator replays a device location source over NATS: it grants
// authorization, then publishes one track step per interval, looping.
func main() {
	cfg, err := config.Load("nextdest-locator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	var trackPath string
	if len(os.Args) > 1 {
		trackPath = os.Args[1]
	}
	track, err := loadTrack(trackPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	nc, err := natsadapter.Connect(cfg.NATS.URL, "nextdest-locator")
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer nc.Drain()
	pub := natsadapter.NewLocationPublisher(nc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pub.PublishAuthorization(ctx, "granted"); err != nil {
		log.Fatalf("publish authorization: %v", err)
	}
	slog.Info("locator started", "steps", len(track), "interval", interval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i := 0
	publish := func() {
		step := track[i%len(track)]
		i++
		if step.Error != "" {
			if err := pub.PublishFailure(ctx, step.Error); err != nil {
				slog.Warn("publish failure", "error", err)
			}
			return
		}
		if err := pub.PublishFix(ctx, step.Point(), time.Now().UTC()); err != nil {
			slog.Warn("publish fix", "error", err)
			return
		}
		slog.Debug("fix published", "lat", step.Lat, "lon", step.Lon)
	}

	publish()
	for {
		select {
		case <-ticker.C:
			publish()
		case sig := <-quit:
			slog.Info("shutting down locator", "signal", sig.String())
			return
		}
	}
}
