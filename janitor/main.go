// Command janitor removes the placements of deleted boards from cards. Board
// deletions are queued by the API; each message is handled by one of
// JANITOR_WORKERS pollers.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cardmass/bus"
	"cardmass/config"
	"cardmass/placement"
	"cardmass/storage"
)

const idlePoll = time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.ApplyLogging()
	log.Info("janitor starting")

	store, err := storage.New(cfg.StorageConnectionString, cfg.CardsTable, cfg.BoardsTable, cfg.BoardCleanupQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var (
		rc       *redis.Client
		notifier placement.Notifier = bus.NewBroker()
	)
	if cfg.Redis != nil {
		rc = redis.NewClient(cfg.Redis)
		defer rc.Close()
		notifier = bus.NewPublisher(rc, cfg.UpdatesChannel)
	}
	cards := placement.NewService(storage.NewCache(store, rc, cfg.CacheTTL), notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.JanitorWorkers; i++ {
		g.Go(func() error {
			return runWorker(ctx, cards, store, idlePoll)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("janitor: %v", err)
	}
	log.Info("janitor stopped")
}
