package memory

import (
	"context"
	"time"

	"github.com/wms-platform/asrs-service/pkg/outbox"
)

// OutboxRepository implements outbox.Repository. Events saved inside a
// store transaction are discarded with it on rollback.
type OutboxRepository struct {
	s *Store
}

func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	defer r.s.lock(ctx)()
	for _, e := range events {
		c := *e
		r.s.st.outbox = append(r.s.st.outbox, &c)
	}
	return nil
}

func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	defer r.s.lock(ctx)()
	events := make([]*outbox.OutboxEvent, 0)
	for _, e := range r.s.st.outbox {
		if !e.ShouldRetry() {
			continue
		}
		c := *e
		events = append(events, &c)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	defer r.s.lock(ctx)()
	for _, e := range r.s.st.outbox {
		if e.ID == eventID {
			now := time.Now().UTC()
			e.PublishedAt = &now
			return nil
		}
	}
	return nil
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	defer r.s.lock(ctx)()
	for _, e := range r.s.st.outbox {
		if e.ID == eventID {
			e.RetryCount++
			e.LastError = errorMsg
			return nil
		}
	}
	return nil
}

// EventTypes lists stored event types in insertion order
func (r *OutboxRepository) EventTypes(ctx context.Context) []string {
	defer r.s.lock(ctx)()
	types := make([]string, 0, len(r.s.st.outbox))
	for _, e := range r.s.st.outbox {
		types = append(types, e.EventType)
	}
	return types
}
