package bus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ReconnectDelay is the pause before re-subscribing after the channel closes.
var ReconnectDelay = time.Second

// Subscribe listens on channel until ctx is done, passing every decoded
// notification to handle. A closed subscription is re-established.
func Subscribe(ctx context.Context, rc *redis.Client, channel string, handle func(Notification)) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				n, err := Decode(msg.Payload)
				if err != nil {
					log.WithError(err).Error("unable to parse notification")
					continue
				}
				handle(n)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.WithField("channel", channel).Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(ReconnectDelay):
		}
	}
}
