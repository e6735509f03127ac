package records

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
)

// Ports for outbound adapters.
//
// Adapters report transport problems as plain errors; a missing row is
// core.ErrRecordNotFound, a lost conditional write core.ErrVersionConflict
// and an undecodable row core.ErrMalformedRecord.
type (
	RecordCreator interface {
		// Create inserts a new record and returns the store-assigned id.
		Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (id string, err error)
	}

	RangeQuerier interface {
		// QueryRange returns every record dated inside r, both ends included.
		QueryRange(ctx context.Context, r core.DateRange) ([]core.ExpenseRecord, error)
	}

	LatestFinder interface {
		// QueryLatestByCategory returns the most recently dated record of the
		// category or core.ErrRecordNotFound.
		QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error)
	}

	RecordUpdater interface {
		// Update overwrites amount and date of an existing record.
		Update(ctx context.Context, u core.RecordUpdate) error
	}

	// Store is the full record store contract.
	Store interface {
		RecordCreator
		RangeQuerier
		LatestFinder
		RecordUpdater
	}

	// JournalWriter appends an audit line for a recorded write to an export sheet.
	JournalWriter interface {
		AppendJournal(ctx context.Context, op string, rec core.ExpenseRecord, at time.Time) error
	}
)
