// Package event broadcasts content-change notifications so listening
// views (public site caches, admin dashboards) can refresh after a
// record is finalized.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// PostChanged is the notification published when a post record is
// created or updated through an upload job
type PostChanged struct {
	PostID    string    `json:"post_id"`
	Title     string    `json:"title"`
	Action    string    `json:"action"` // "created" or "updated"
	Timestamp time.Time `json:"timestamp"`
}

// Producer publishes content-changed events to Kafka. A nil Producer is
// valid and publishes nothing, so the broadcast stays optional.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a producer for the given topic
func NewProducer(brokers []string, clientID, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Transport: &kafka.Transport{
			ClientID: clientID,
		},
	}

	return &Producer{writer: writer, logger: logger}
}

// PublishPostChanged sends one notification. Failures are logged, not
// propagated: a finalized record must not be reported as failed because
// the broadcast did not go out.
func (p *Producer) PublishPostChanged(ctx context.Context, event PostChanged) {
	if p == nil {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal post-changed event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.PostID),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish post-changed event",
			zap.String("post_id", event.PostID),
			zap.Error(err))
		return
	}

	p.logger.Debug("Post-changed event published",
		zap.String("post_id", event.PostID),
		zap.String("action", event.Action))
}

// Close closes the underlying writer
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
