// Package bus carries change notifications between writers and the SSE
// stream. Notifications only tell clients what to re-fetch; they never carry
// card state.
package bus

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Kind names the collection that changed.
type Kind string

const (
	KindCards  Kind = "cards"
	KindBoards Kind = "boards"
)

// Notification is the payload published after every write.
type Notification struct {
	OrgID    string `json:"orgId"`
	Kind     Kind   `json:"kind"`
	EntityID string `json:"entityId,omitempty"`
	At       int64  `json:"at"`
}

// New builds a notification stamped with the current time.
func New(orgID string, kind Kind, entityID string) Notification {
	return Notification{OrgID: orgID, Kind: kind, EntityID: entityID, At: time.Now().UnixMilli()}
}

// Publisher publishes notifications on a Redis channel.
type Publisher struct {
	rc      *redis.Client
	channel string
}

func NewPublisher(rc *redis.Client, channel string) *Publisher {
	return &Publisher{rc: rc, channel: channel}
}

// Publish sends n to every subscriber of the channel.
func (p *Publisher) Publish(ctx context.Context, n Notification) error {
	payload, err := sonic.Marshal(n)
	if err != nil {
		return err
	}
	if err := p.rc.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.WithError(err).Errorf("unable to publish %s notification to %s", n.Kind, p.channel)
		return err
	}
	return nil
}

// Decode parses a published payload.
func Decode(payload string) (Notification, error) {
	var n Notification
	err := sonic.UnmarshalString(payload, &n)
	return n, err
}
