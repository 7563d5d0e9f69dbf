package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
)

const publishTimeout = 5 * time.Second

// Event announces a newly stored snapshot.
type Event struct {
	Host      string `json:"ip"`
	Timestamp string `json:"timestamp"`
	Checksum  string `json:"checksum"`
	Created   bool   `json:"created"`
}

// Notifier publishes "lists changed" events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// PubSubNotifier publishes events to a Pub/Sub topic.
type PubSubNotifier struct {
	topic *pubsub.Topic
}

// NewPubSubNotifier publishes to topic. A nil topic makes Notify a no-op.
func NewPubSubNotifier(topic *pubsub.Topic) *PubSubNotifier {
	return &PubSubNotifier{topic: topic}
}

// Notify publishes ev and waits for the server to accept it.
func (p *PubSubNotifier) Notify(ctx context.Context, ev Event) error {
	if p.topic == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err = p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event": "ingested",
			"ip":    ev.Host,
		},
	}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish ingest event: %w", err)
	}
	return nil
}

// NoopNotifier is used when no topic is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Event) error { return nil }

