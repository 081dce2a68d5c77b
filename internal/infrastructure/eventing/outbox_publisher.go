package eventing

import (
	"context"
	"fmt"
	"strings"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/cloudevents"
	"github.com/wms-platform/asrs-service/pkg/kafka"
	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/outbox"
)

// OutboxPublisher implements domain.EventPublisher by writing CloudEvents to
// the transactional outbox. Called inside a transaction, the events commit or
// roll back with the state change that produced them.
type OutboxPublisher struct {
	repo    outbox.Repository
	factory *cloudevents.EventFactory
}

// NewOutboxPublisher creates a new OutboxPublisher
func NewOutboxPublisher(repo outbox.Repository, factory *cloudevents.EventFactory) *OutboxPublisher {
	return &OutboxPublisher{repo: repo, factory: factory}
}

// Publish converts and stores the events
func (p *OutboxPublisher) Publish(ctx context.Context, events ...domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	correlationID, _ := ctx.Value(logging.CorrelationIDKey).(string)

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		aggregateType, topic := routeEvent(event.EventType())
		subject := strings.ToLower(aggregateType) + "/" + event.AggregateID()

		cloudEvent := p.factory.CreateEventWithCorrelation(ctx, event.EventType(), subject, event, correlationID, "")
		cloudEvent.Time = event.OccurredAt()

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(event.AggregateID(), aggregateType, topic, cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := p.repo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

// routeEvent picks the aggregate type and topic from the event type prefix
func routeEvent(eventType string) (aggregateType, topic string) {
	switch {
	case strings.HasPrefix(eventType, "asrs.fulfillment."):
		return "FulfillmentPlan", kafka.Topics.FulfillmentEvents
	case strings.HasPrefix(eventType, "asrs.inventory."):
		return "StockUnit", kafka.Topics.InventoryEvents
	case strings.HasPrefix(eventType, "asrs.robot.status"):
		return "Robot", kafka.Topics.RobotEvents
	default:
		return "Command", kafka.Topics.RobotEvents
	}
}
