// Command storage-init creates the tables and queue the services expect. It
// is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"cardmass/config"
)

const queueAlreadyExists = "QueueAlreadyExists"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.ApplyLogging()
	log.Info("storage init starting")

	ctx := context.Background()
	svc, err := aztables.NewServiceClientFromConnectionString(cfg.StorageConnectionString, nil)
	if err != nil {
		log.Fatalf("table service: %v", err)
	}
	for _, name := range []string{cfg.CardsTable, cfg.BoardsTable} {
		c := svc.NewClient(name)
		err := ensure(ctx, "table", name, string(aztables.TableAlreadyExists), func(ctx context.Context) error {
			_, err := c.CreateTable(ctx, nil)
			return err
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	q, err := azqueue.NewQueueClientFromConnectionString(cfg.StorageConnectionString, cfg.BoardCleanupQueue, nil)
	if err != nil {
		log.Fatalf("queue client: %v", err)
	}
	err = ensure(ctx, "queue", cfg.BoardCleanupQueue, queueAlreadyExists, func(ctx context.Context) error {
		_, err := q.Create(ctx, nil)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Info("storage init complete")
}

// ensure runs create and treats the existsCode response as success.
func ensure(ctx context.Context, kind, name, existsCode string, create func(context.Context) error) error {
	err := create(ctx)
	if err == nil {
		log.WithField(kind, name).Info("created")
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.ErrorCode == existsCode {
		log.WithField(kind, name).Debug("already exists")
		return nil
	}
	return fmt.Errorf("create %s %s: %w", kind, name, err)
}
