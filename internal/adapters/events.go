// Package adapters decorates record stores with side effects that must not
// change the store contract.
package adapters

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"spesebot/internal/amqp"
	"spesebot/internal/core"
	"spesebot/internal/records"
)

// EventPublisher sends expense-recorded events.
type EventPublisher interface {
	PublishExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error
}

// PublishingStore announces every successful write. Publishing failures
// are logged and never reach the caller.
type PublishingStore struct {
	records.Store
	publisher EventPublisher
}

var _ records.Store = (*PublishingStore)(nil)

func NewPublishingStore(store records.Store, publisher EventPublisher) *PublishingStore {
	return &PublishingStore{Store: store, publisher: publisher}
}

func (s *PublishingStore) Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	id, err := s.Store.Create(ctx, category, amount, date)
	if err != nil {
		return "", err
	}
	s.publish(ctx, amqp.OpCreate, core.ExpenseRecord{ID: id, Category: category, Amount: amount, Date: date})
	return id, nil
}

func (s *PublishingStore) Update(ctx context.Context, u core.RecordUpdate) error {
	if err := s.Store.Update(ctx, u); err != nil {
		return err
	}
	rec := core.ExpenseRecord{ID: u.ID, Category: u.Category, Amount: u.Amount, Date: u.Date}
	if u.Version > 0 {
		rec.Version = u.Version + 1
	}
	s.publish(ctx, amqp.OpUpdate, rec)
	return nil
}

func (s *PublishingStore) publish(ctx context.Context, op string, rec core.ExpenseRecord) {
	if err := s.publisher.PublishExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage(op, rec)); err != nil {
		slog.WarnContext(ctx, "Failed to publish expense event",
			"record_id", rec.ID,
			"operation", op,
			"error", err)
	}
}
