package bus

import (
	"context"
	"sync"
)

// Broker fans notifications out to the stream connections of one process,
// keyed by organization.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Notification]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Notification]struct{})}
}

// Subscribe registers a listener for orgID. The returned channel holds at
// most one pending notification; slow readers miss intermediate ones.
func (b *Broker) Subscribe(orgID string) chan Notification {
	ch := make(chan Notification, 1)
	b.mu.Lock()
	if b.subs[orgID] == nil {
		b.subs[orgID] = make(map[chan Notification]struct{})
	}
	b.subs[orgID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(orgID string, ch chan Notification) {
	b.mu.Lock()
	delete(b.subs[orgID], ch)
	if len(b.subs[orgID]) == 0 {
		delete(b.subs, orgID)
	}
	b.mu.Unlock()
}

// Notify delivers n to the listeners of n.OrgID without blocking.
func (b *Broker) Notify(n Notification) {
	b.mu.Lock()
	for ch := range b.subs[n.OrgID] {
		select {
		case ch <- n:
		default:
		}
	}
	b.mu.Unlock()
}

// Publish delivers n in-process. It lets a single instance run without Redis.
func (b *Broker) Publish(_ context.Context, n Notification) error {
	b.Notify(n)
	return nil
}

// Subscribers reports the number of listeners for orgID.
func (b *Broker) Subscribers(orgID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[orgID])
}
