// Package worker consumes expense-recorded events and copies them into
// append-only journals.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"spesebot/internal/amqp"
	"spesebot/internal/cache"
	"spesebot/internal/records"
)

const (
	seenSize = 4096
	seenTTL  = time.Hour
)

// JournalWorker writes every event to each configured journal. An event is
// acknowledged only after all journals accepted it.
type JournalWorker struct {
	journals []records.JournalWriter
	names    []string
	seen     *cache.LRUCache[struct{}]
}

func NewJournalWorker() *JournalWorker {
	return &JournalWorker{seen: cache.NewLRUCache[struct{}](seenSize, seenTTL)}
}

// AddJournal registers a journal under a name used in logs.
func (w *JournalWorker) AddJournal(name string, j records.JournalWriter) {
	w.names = append(w.names, name)
	w.journals = append(w.journals, j)
}

// Journals is the number of registered journals.
func (w *JournalWorker) Journals() int {
	return len(w.journals)
}

// Seen exposes the processed-event cache so callers can schedule its cleanup.
func (w *JournalWorker) Seen() *cache.LRUCache[struct{}] {
	return w.seen
}

// HandleExpenseRecorded journals one event. Redeliveries of an event that
// was already fully journaled are skipped.
func (w *JournalWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	key := msg.RecordID + "|" + msg.Operation + "|" + strconv.FormatInt(msg.Timestamp.UnixNano(), 10)
	if _, ok := w.seen.Get(key); ok {
		slog.DebugContext(ctx, "Skipping already journaled event", "record_id", msg.RecordID, "operation", msg.Operation)
		return nil
	}

	rec, err := msg.Record()
	if err != nil {
		return fmt.Errorf("decode event %s: %w", msg.RecordID, err)
	}
	for i, j := range w.journals {
		if err := j.AppendJournal(ctx, msg.Operation, rec, msg.Timestamp); err != nil {
			return fmt.Errorf("append to %s journal: %w", w.names[i], err)
		}
	}
	w.seen.Set(key, struct{}{})

	slog.InfoContext(ctx, "Journaled expense event",
		"record_id", rec.ID,
		"operation", msg.Operation,
		"category", rec.Category,
		"amount", rec.Amount.String(),
		"journals", len(w.journals))
	return nil
}
