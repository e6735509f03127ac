package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
)

// ExpenseRecordedMessage announces a successful write to the record store.
// Amount travels as a decimal string so no precision is lost.
type ExpenseRecordedMessage struct {
	RecordID  string    `json:"record_id"`
	Operation string    `json:"operation"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Date      string    `json:"date"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage builds the event for rec written by op.
func NewExpenseRecordedMessage(op string, rec core.ExpenseRecord) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		RecordID:  rec.ID,
		Operation: op,
		Category:  rec.Category,
		Amount:    rec.Amount.String(),
		Date:      rec.Date.String(),
		Version:   rec.Version,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Record decodes the message payload back into a record.
func (m *ExpenseRecordedMessage) Record() (core.ExpenseRecord, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("amount %q: %w", m.Amount, core.ErrInvalidAmount)
	}
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("date %q: %w", m.Date, err)
	}
	rec := core.ExpenseRecord{ID: m.RecordID, Category: m.Category, Amount: amount, Date: date, Version: m.Version}
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	return rec, nil
}

// ExpenseRecordedMessageFromJSON decodes and validates a message body.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RecordID == "" {
		return nil, fmt.Errorf("missing record_id")
	}
	if msg.Operation != OpCreate && msg.Operation != OpUpdate {
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	if _, err := msg.Record(); err != nil {
		return nil, err
	}
	return &msg, nil
}
