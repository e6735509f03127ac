package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spesebot/internal/amqp"
	"spesebot/internal/core"
	"spesebot/internal/records/memory"
)

type recordingPublisher struct {
	msgs []*amqp.ExpenseRecordedMessage
	err  error
}

func (p *recordingPublisher) PublishExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

var today = core.NewDate(2026, 10, 15)

func TestPublishingStore_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store := NewPublishingStore(memory.New(), pub)

	id, err := store.Create(ctx, "еда", decimal.NewFromInt(100), today)
	require.NoError(t, err)

	latest, err := store.QueryLatestByCategory(ctx, "еда")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, core.RecordUpdate{
		ID: id, Category: "еда", Amount: decimal.NewFromInt(250), Date: today, Version: latest.Version,
	}))

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, amqp.OpCreate, pub.msgs[0].Operation)
	assert.Equal(t, id, pub.msgs[0].RecordID)
	assert.Equal(t, "100", pub.msgs[0].Amount)
	assert.Equal(t, amqp.OpUpdate, pub.msgs[1].Operation)
	assert.Equal(t, "250", pub.msgs[1].Amount)
	assert.Equal(t, latest.Version+1, pub.msgs[1].Version)
	assert.Equal(t, "2026-10-15", pub.msgs[1].Date)
}

func TestPublishingStore_PublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	store := NewPublishingStore(memory.New(), pub)

	id, err := store.Create(context.Background(), "такси", decimal.NewFromInt(5), today)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Len(t, pub.msgs, 1)
}

func TestPublishingStore_FailedWritesAreNotAnnounced(t *testing.T) {
	pub := &recordingPublisher{}
	store := NewPublishingStore(memory.New(), pub)

	err := store.Update(context.Background(), core.RecordUpdate{ID: "missing", Category: "x", Amount: decimal.NewFromInt(1), Date: today})
	require.ErrorIs(t, err, core.ErrRecordNotFound)
	assert.Empty(t, pub.msgs)
}
