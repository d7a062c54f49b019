// Command worker runs the background jobs: completing orders whose travel
// date has passed and consuming order events.
package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/tour-marketplace/internal/app"
	"github.com/iliyamo/tour-marketplace/internal/config"
	"github.com/iliyamo/tour-marketplace/internal/queue"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Engine.RunSweeper(ctx, cfg.SweepEvery)
	}()
	if cfg.RabbitURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.NewConsumer(cfg.RabbitURL, log).Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("order event consumer stopped")
			}
		}()
	}

	log.WithField("sweep_every", cfg.SweepEvery).Info("worker started")
	wg.Wait()
	log.Info("worker stopped")
}
