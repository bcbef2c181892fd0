package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeOptionsCommitted is published after a product's batch files were committed
	EventTypeOptionsCommitted EventType = "PRODUCT_OPTIONS_COMMITTED"

	DefaultStream = "stream:product_options"
)

// OptionsCommitted describes one committed product transaction.
type OptionsCommitted struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	CrawlID   string    `json:"crawl_id"`
	ProductID int64     `json:"product_id"`
	GoodsNo   string    `json:"goods_no,omitempty"`
	URL       string    `json:"url"`
	Options   int       `json:"options"`
	Rejected  int       `json:"rejected"`
	Files     []string  `json:"files"`
	Source    string    `json:"source"`
}

type Publisher interface {
	PublishOptionsCommitted(ctx context.Context, event *OptionsCommitted) error
}

// RedisClient is the subset of the redis client the publisher uses.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client RedisClient, stream string, logger *slog.Logger) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *RedisPublisher) PublishOptionsCommitted(ctx context.Context, event *OptionsCommitted) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.EventType == "" {
		event.EventType = string(EventTypeOptionsCommitted)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Source == "" {
		event.Source = "product-options-crawler"
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"type":       event.EventType,
			"timestamp":  fmt.Sprintf("%d", event.Timestamp.UnixNano()),
			"event_id":   event.EventID,
			"product_id": event.ProductID,
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"type", event.EventType,
		"event_id", event.EventID,
		"product_id", event.ProductID,
		"stream_id", id,
	)

	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishOptionsCommitted(context.Context, *OptionsCommitted) error {
	return nil
}
