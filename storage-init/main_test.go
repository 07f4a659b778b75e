package main

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

func TestEnsure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "created"},
		{name: "exists", err: &azcore.ResponseError{StatusCode: 409, ErrorCode: queueAlreadyExists}},
		{name: "other conflict", err: &azcore.ResponseError{StatusCode: 409, ErrorCode: "QueueBeingDeleted"}, wantErr: true},
		{name: "transport", err: errors.New("dial tcp: refused"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := ensure(context.Background(), "queue", "board-cleanup", queueAlreadyExists, func(context.Context) error {
				calls++
				return tt.err
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ensure error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != 1 {
				t.Fatalf("expected one create call, got %d", calls)
			}
		})
	}
}
