// Package storage persists cards and boards in Azure Tables and queues board
// cleanup work in Azure Queues.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"cardmass/domain"
)

type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, o *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	NewListEntitiesPager(o *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	AddEntity(ctx context.Context, entity []byte, o *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, o *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, o *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	DequeueMessage(ctx context.Context, o *azqueue.DequeueMessageOptions) (azqueue.DequeueMessagesResponse, error)
	DeleteMessage(ctx context.Context, messageID, popReceipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error)
}

// Storage provides access to the cards and boards tables and the board
// cleanup queue.
type Storage struct {
	cards   tableClient
	boards  tableClient
	cleanup queueClient
	now     func() time.Time
}

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// New creates a Storage instance from the given connection string.
func New(connStr, cardsTable, boardsTable, cleanupQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	cq, err := azqueue.NewQueueClientFromConnectionString(connStr, cleanupQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return newStorage(svc.NewClient(cardsTable), svc.NewClient(boardsTable), cq), nil
}

func newStorage(cards, boards tableClient, cleanup queueClient) *Storage {
	return &Storage{cards: cards, boards: boards, cleanup: cleanup, now: time.Now}
}

// translate maps table service failures onto domain errors.
func translate(err error, format string, args ...any) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return domain.NotFoundf(format, args...)
		case http.StatusPreconditionFailed, http.StatusConflict:
			return domain.Conflictf(format, args...)
		}
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func partitionFilter(orgID string) string {
	return "PartitionKey eq '" + escapeODataString(orgID) + "'"
}

// escapeODataString doubles single quotes for use in a filter literal.
func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
