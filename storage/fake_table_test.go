package storage

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
)

type storedEntity struct {
	props map[string]any
	etag  azcore.ETag
}

// fakeTable is an in-memory table honouring etags and merge semantics.
type fakeTable struct {
	mu       sync.Mutex
	rows     map[string]storedEntity
	seq      int
	filters  []string
	pageSize int
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[string]storedEntity{}, pageSize: 2}
}

func rowID(pk, rk string) string { return pk + "\x00" + rk }

func (f *fakeTable) nextETag() azcore.ETag {
	f.seq++
	return azcore.ETag("W/\"" + strconv.Itoa(f.seq) + "\"")
}

func decodeProps(entity []byte) (map[string]any, string, string, error) {
	props := map[string]any{}
	if err := sonic.Unmarshal(entity, &props); err != nil {
		return nil, "", "", err
	}
	pk, _ := props["PartitionKey"].(string)
	rk, _ := props["RowKey"].(string)
	return props, pk, rk, nil
}

func (f *fakeTable) GetEntity(ctx context.Context, pk, rk string, o *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[rowID(pk, rk)]
	if !ok {
		return aztables.GetEntityResponse{}, &azcore.ResponseError{StatusCode: 404, ErrorCode: "ResourceNotFound"}
	}
	data, err := sonic.Marshal(e.props)
	if err != nil {
		return aztables.GetEntityResponse{}, err
	}
	return aztables.GetEntityResponse{ETag: e.etag, Value: data}, nil
}

func (f *fakeTable) NewListEntitiesPager(o *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	f.mu.Lock()
	var filter string
	if o != nil && o.Filter != nil {
		filter = *o.Filter
	}
	f.filters = append(f.filters, filter)
	var pages [][][]byte
	var page [][]byte
	for _, e := range f.rows {
		pk, _ := e.props["PartitionKey"].(string)
		if !strings.Contains(filter, "PartitionKey eq '"+strings.ReplaceAll(pk, "'", "''")+"'") {
			continue
		}
		data, _ := sonic.Marshal(e.props)
		page = append(page, data)
		if len(page) == f.pageSize {
			pages = append(pages, page)
			page = nil
		}
	}
	if len(page) > 0 || len(pages) == 0 {
		pages = append(pages, page)
	}
	f.mu.Unlock()

	next := 0
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool { return next < len(pages) },
		Fetcher: func(ctx context.Context, _ *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			p := pages[next]
			next++
			return aztables.ListEntitiesResponse{Entities: p}, nil
		},
	})
}

func (f *fakeTable) AddEntity(ctx context.Context, entity []byte, o *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	props, pk, rk, err := decodeProps(entity)
	if err != nil {
		return aztables.AddEntityResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[rowID(pk, rk)]; ok {
		return aztables.AddEntityResponse{}, &azcore.ResponseError{StatusCode: 409, ErrorCode: "EntityAlreadyExists"}
	}
	et := f.nextETag()
	f.rows[rowID(pk, rk)] = storedEntity{props: props, etag: et}
	return aztables.AddEntityResponse{ETag: et, Value: entity}, nil
}

func (f *fakeTable) UpdateEntity(ctx context.Context, entity []byte, o *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	props, pk, rk, err := decodeProps(entity)
	if err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[rowID(pk, rk)]
	if !ok {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: 404, ErrorCode: "ResourceNotFound"}
	}
	if o != nil && o.IfMatch != nil && *o.IfMatch != azcore.ETagAny && *o.IfMatch != cur.etag {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: 412, ErrorCode: "UpdateConditionNotSatisfied"}
	}
	if o != nil && o.UpdateMode == aztables.UpdateModeMerge {
		for k, v := range props {
			cur.props[k] = v
		}
		props = cur.props
	}
	et := f.nextETag()
	f.rows[rowID(pk, rk)] = storedEntity{props: props, etag: et}
	return aztables.UpdateEntityResponse{ETag: et}, nil
}

func (f *fakeTable) DeleteEntity(ctx context.Context, pk, rk string, o *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[rowID(pk, rk)]; !ok {
		return aztables.DeleteEntityResponse{}, &azcore.ResponseError{StatusCode: 404, ErrorCode: "ResourceNotFound"}
	}
	delete(f.rows, rowID(pk, rk))
	return aztables.DeleteEntityResponse{}, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []string
	deleted  []string
	fail     error
}

func (q *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return azqueue.EnqueueMessagesResponse{}, q.fail
	}
	q.messages = append(q.messages, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func (q *fakeQueue) DequeueMessage(ctx context.Context, o *azqueue.DequeueMessageOptions) (azqueue.DequeueMessagesResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return azqueue.DequeueMessagesResponse{}, nil
	}
	text := q.messages[0]
	q.messages = q.messages[1:]
	id, receipt := "m"+strconv.Itoa(len(q.deleted)), "r"
	return azqueue.DequeueMessagesResponse{Messages: []*azqueue.DequeuedMessage{{
		MessageID:   &id,
		PopReceipt:  &receipt,
		MessageText: &text,
	}}}, nil
}

func (q *fakeQueue) DeleteMessage(ctx context.Context, id, receipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, id)
	return azqueue.DeleteMessageResponse{}, nil
}
