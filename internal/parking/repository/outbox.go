package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/parklite/internal/parking/domain"
)

// SQLOutbox persists reservation events to the outbox table instead of
// publishing them directly. When called inside an InTx scope the insert joins
// the transaction, so events commit atomically with the state change. A
// separate worker drains the table to the broker.
type SQLOutbox struct {
	s       *SQLStore
	subject string
}

// Outbox returns an event publisher that writes through the outbox table.
func (s *SQLStore) Outbox(subject string) *SQLOutbox {
	return &SQLOutbox{s: s, subject: subject}
}

// Publish satisfies domain.EventPublisher.
func (o *SQLOutbox) Publish(ctx context.Context, event domain.ReservationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = o.s.q(ctx).ExecContext(ctx,
		`INSERT INTO outbox (topic, payload, created_at) VALUES ($1, $2, $3)`,
		o.subject, payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	return nil
}
