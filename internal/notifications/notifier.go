// Package notifications publishes post lifecycle events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"postboard/internal/middleware"
	"postboard/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PostEventsChannel is the Redis channel post events are published on.
const PostEventsChannel = "posts:events"

// Post event types.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
)

// PostEvent is the JSON envelope published for each mutation.
type PostEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewPostEvent stamps payload with a fresh id and the current UTC time.
func NewPostEvent(eventType string, payload map[string]any) PostEvent {
	return PostEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether the notifier has a Redis client.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishPostEvent publishes an event of eventType on PostEventsChannel.
func (n *Notifier) PublishPostEvent(ctx context.Context, eventType string, payload map[string]any) error {
	if !n.Enabled() {
		return nil
	}

	event := NewPostEvent(eventType, payload)
	data, err := json.Marshal(event)
	if err != nil {
		observability.PostEventsPublished.WithLabelValues(eventType, "error").Inc()
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	if err := n.rdb.Publish(ctx, PostEventsChannel, data).Err(); err != nil {
		observability.PostEventsPublished.WithLabelValues(eventType, "error").Inc()
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	observability.PostEventsPublished.WithLabelValues(eventType, "ok").Inc()
	return nil
}

// Subscribe follows PostEventsChannel and calls onEvent for each decoded
// event until ctx is cancelled. Undecodable messages are logged and skipped.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(PostEvent)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, PostEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", PostEventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event PostEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("Dropping malformed post event", slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("Panic in post event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
