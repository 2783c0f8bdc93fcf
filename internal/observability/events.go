package observability

import "context"

// Publisher is the event bus seam; the AMQP publisher and its noop
// fallback both satisfy it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// EventEnvelope wraps websocket lifecycle events on the bus.
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends an event through the installed publisher. A missing
// publisher is a silent no-op; a publish failure only bumps the error
// counter, it never fails the caller's operation.
func PublishEvent(ctx context.Context, routingKey string, event any) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, event)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
