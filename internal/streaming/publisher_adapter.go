package streaming

import (
	"context"

	"scambait-lab/internal/domain/models"
)

// EventBusPublisher implements services.EventPublisher using the EventBus
type EventBusPublisher struct {
	eventBus *EventBus
	wsHub    *WebSocketHub
}

// NewEventBusPublisher creates a new publisher adapter
func NewEventBusPublisher(eventBus *EventBus, wsHub *WebSocketHub) *EventBusPublisher {
	return &EventBusPublisher{
		eventBus: eventBus,
		wsHub:    wsHub,
	}
}

func (p *EventBusPublisher) publish(ctx context.Context, event *EngagementEvent) {
	if p.eventBus != nil {
		p.eventBus.Publish(ctx, event)
	}
	if p.wsHub != nil {
		p.wsHub.BroadcastEvent(event)
	}
}

// PublishIntelligence publishes an intelligence update event
func (p *EventBusPublisher) PublishIntelligence(ctx context.Context, sessionID string, bundle models.IntelligenceBundle, riskScore float64) {
	p.publish(ctx, NewIntelligenceEvent(sessionID, bundle, riskScore))
}

// PublishScamDetected publishes a scam detection event
func (p *EventBusPublisher) PublishScamDetected(ctx context.Context, sessionID string, result models.ClassificationResult) {
	p.publish(ctx, NewScamDetectedEvent(sessionID, result))
}

// PublishSessionTerminated publishes a termination event with the report
func (p *EventBusPublisher) PublishSessionTerminated(ctx context.Context, report models.EngagementReport) {
	p.publish(ctx, NewSessionTerminatedEvent(report))
}
