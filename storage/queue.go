package storage

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"cardmass/domain"
)

// BoardCleanup asks the janitor to drop a deleted board from every card.
type BoardCleanup struct {
	OrgID   string         `json:"orgId"`
	BoardID domain.BoardID `json:"boardId"`
}

// EnqueueBoardCleanup sends a cleanup request to the queue.
func (s *Storage) EnqueueBoardCleanup(ctx context.Context, m BoardCleanup) error {
	data, err := sonic.MarshalString(m)
	if err != nil {
		return err
	}
	_, err = s.cleanup.EnqueueMessage(ctx, data, nil)
	return err
}

// Dequeue retrieves a single message from the cleanup queue, or nil when the
// queue is empty.
func (s *Storage) Dequeue(ctx context.Context) (*azqueue.DequeuedMessage, error) {
	resp, err := s.cleanup.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	return resp.Messages[0], nil
}

// Delete removes a processed message from the queue.
func (s *Storage) Delete(ctx context.Context, id, receipt string) error {
	_, err := s.cleanup.DeleteMessage(ctx, id, receipt, nil)
	return err
}
