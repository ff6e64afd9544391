package gcp

import (
	"context"
	"fmt"
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const lifecycleEventSource = "//docanalysis/pipeline"

// CloudEventPublisher delivers pipeline lifecycle events as CloudEvents over
// HTTP to a configured sink (an Eventarc channel or any CloudEvents
// receiver). Delivery is best effort: failures are logged, never surfaced.
type CloudEventPublisher struct {
	client cloudevents.Client
	sink   string
}

// NewCloudEventPublisher reads the sink from the EVENT_SINK_URL environment
// variable and builds an HTTP CloudEvents client for it.
func NewCloudEventPublisher() (*CloudEventPublisher, error) {
	sink := GetEnv("EVENT_SINK_URL", "")
	if sink == "" {
		return nil, fmt.Errorf("EVENT_SINK_URL environment variable not set")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudEvents client: %w", err)
	}
	return &CloudEventPublisher{client: client, sink: sink}, nil
}

func (p *CloudEventPublisher) Send(ctx context.Context, eventName string, payload map[string]any) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.New().String())
	event.SetSource(lifecycleEventSource)
	event.SetType(eventName)
	if err := event.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		slog.Error("Failed to encode lifecycle event.", "event", eventName, "error", err)
		return
	}

	result := p.client.Send(cloudevents.ContextWithTarget(ctx, p.sink), event)
	if cloudevents.IsUndelivered(result) {
		slog.Error("Failed to deliver lifecycle event.", "event", eventName, "sink", p.sink, "error", result)
	}
}

// LogPublisher stands in when no event sink is configured: events go to the
// structured log and nowhere else.
type LogPublisher struct{}

func (LogPublisher) Send(_ context.Context, eventName string, payload map[string]any) {
	slog.Info("Lifecycle event (no sink configured).", "event", eventName, "payload", payload)
}
