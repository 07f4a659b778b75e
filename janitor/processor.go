package main

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"cardmass/domain"
	"cardmass/storage"
)

type unplacer interface {
	UnplaceEverywhere(ctx context.Context, orgID string, board domain.BoardID) (int, error)
}

type cleanupQueue interface {
	Dequeue(ctx context.Context) (*azqueue.DequeuedMessage, error)
	Delete(ctx context.Context, id, receipt string) error
}

// processMessage removes the deleted board from every card of the
// organization and then acknowledges the message. Malformed messages are
// acknowledged and dropped; a failed cleanup leaves the message to reappear
// after its visibility timeout.
func processMessage(ctx context.Context, u unplacer, q cleanupQueue, msg *azqueue.DequeuedMessage) error {
	if msg.MessageID == nil || msg.PopReceipt == nil {
		log.Warn("cleanup message without id or pop receipt")
		return nil
	}
	var m storage.BoardCleanup
	if msg.MessageText == nil || sonic.UnmarshalString(*msg.MessageText, &m) != nil || m.OrgID == "" || m.BoardID == "" {
		log.WithField("message", *msg.MessageID).Warn("dropping malformed cleanup message")
		return q.Delete(ctx, *msg.MessageID, *msg.PopReceipt)
	}

	n, err := u.UnplaceEverywhere(ctx, m.OrgID, m.BoardID)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"org": m.OrgID, "board": m.BoardID, "cards": n}).Info("board placements removed")
	return q.Delete(ctx, *msg.MessageID, *msg.PopReceipt)
}

// runWorker polls the queue until ctx is done, sleeping for idle whenever the
// queue is empty or unavailable.
func runWorker(ctx context.Context, u unplacer, q cleanupQueue, idle time.Duration) error {
	for ctx.Err() == nil {
		msg, err := q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("receive cleanup message")
			}
			sleep(ctx, idle)
			continue
		}
		if msg == nil {
			sleep(ctx, idle)
			continue
		}
		if err := processMessage(ctx, u, q, msg); err != nil {
			log.WithError(err).Error("board cleanup failed")
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
