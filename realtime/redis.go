package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const channelPrefix = "worldroom:events:"

// RedisBroker publishes through Redis so every server instance sees every
// event, and fans received events out to local subscribers.
type RedisBroker struct {
	client *redis.Client
	local  *Broker
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, local: NewBroker()}
}

func channelFor(t Topic) string { return channelPrefix + t.String() }

func (r *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	channel := channelFor(event.Topic)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(payload),
		}).WithError(err).Error("Redis publish failed")
		return fmt.Errorf("realtime: publish to %s: %w", channel, err)
	}
	return nil
}

func (r *RedisBroker) Subscribe(topic Topic, fn func(Event)) Subscription {
	return r.local.Subscribe(topic, fn)
}

// Run relays Redis messages to local subscribers until ctx is done. ready,
// if non-nil, is closed once the pattern subscription is confirmed.
func (r *RedisBroker) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: psubscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}
	logrus.Info("Realtime relay subscribed to Redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logrus.WithField("channel", msg.Channel).WithError(err).Warn("Dropping malformed realtime event")
				continue
			}
			if topic, err := ParseTopic(strings.TrimPrefix(msg.Channel, channelPrefix)); err == nil {
				event.Topic = topic
			}
			r.local.deliver(event)
		}
	}
}
