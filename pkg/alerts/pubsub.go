package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
)

// PubSubEmitter publishes alerts to a Google Pub/Sub topic for downstream
// paging and console integration.
type PubSubEmitter struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *slog.Logger
}

// NewPubSubEmitter connects to Pub/Sub and binds the topic. The topic must
// already exist.
func NewPubSubEmitter(ctx context.Context, projectID, topicID string) (*PubSubEmitter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubEmitter{
		client: client,
		topic:  client.Topic(topicID),
		logger: slog.Default().With("component", "alerts.pubsub"),
	}, nil
}

// Emit publishes the alert and waits for the server acknowledgement, so a
// delivery failure is visible to the caller.
func (e *PubSubEmitter) Emit(ctx context.Context, alert *Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshaling alert: %w", err)
	}

	result := e.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"outcome":  string(alert.Outcome),
			"severity": alert.Severity,
		},
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing alert %s: %w", alert.EventID, err)
	}

	e.logger.Debug("alert published", "event_id", alert.EventID, "outcome", alert.Outcome)
	return nil
}

// Close flushes pending publishes and releases the client.
func (e *PubSubEmitter) Close() error {
	e.topic.Stop()
	return e.client.Close()
}
