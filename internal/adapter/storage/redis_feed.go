package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/port"
)

const changeChannelPrefix = "storefront:changes:"

// RedisFeed is the push-invalidation channel, one pub/sub channel per
// table.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

// Subscribe opens a dedicated pub/sub connection for the table. The
// returned release func closes the connection and the event channel with
// it.
func (r *RedisFeed) Subscribe(ctx context.Context, table string) (<-chan port.ChangeEvent, func(), error) {
	sub := r.client.Subscribe(ctx, changeChannelPrefix+table)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	events := make(chan port.ChangeEvent)
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			ev := port.ChangeEvent{Table: table}
			// Payload contents are advisory; subscribers refetch either way.
			_ = json.Unmarshal([]byte(msg.Payload), &ev)
			events <- ev
		}
	}()

	return events, func() { sub.Close() }, nil
}

func (r *RedisFeed) Publish(ctx context.Context, table string, ev port.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := r.client.Publish(ctx, changeChannelPrefix+table, payload).Err(); err != nil {
		return fmt.Errorf("publish %s change: %w", table, err)
	}
	return nil
}
