package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	"spesebot/internal/records"
)

// Store operation names used in StoreError.Op and logs.
const (
	OpCreate      = "create"
	OpQueryRange  = "query_range"
	OpQueryLatest = "query_latest"
	OpUpdate      = "update"
)

type guardedStore struct {
	next    records.Store
	timeout time.Duration
}

// Guard bounds every call to next by timeout and classifies failures as
// *core.StoreError. ErrRecordNotFound and ErrVersionConflict stay bare since
// callers branch on them. A non-positive timeout disables the deadline.
func Guard(next records.Store, timeout time.Duration) records.Store {
	return &guardedStore{next: next, timeout: timeout}
}

func (g *guardedStore) Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	id, err := g.next.Create(ctx, category, amount, date)
	return id, classify(OpCreate, err)
}

func (g *guardedStore) QueryRange(ctx context.Context, r core.DateRange) ([]core.ExpenseRecord, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	recs, err := g.next.QueryRange(ctx, r)
	if err != nil {
		return nil, classify(OpQueryRange, err)
	}
	return recs, nil
}

func (g *guardedStore) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	rec, err := g.next.QueryLatestByCategory(ctx, category)
	return rec, classify(OpQueryLatest, err)
}

func (g *guardedStore) Update(ctx context.Context, u core.RecordUpdate) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return classify(OpUpdate, g.next.Update(ctx, u))
}

func (g *guardedStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrRecordNotFound), errors.Is(err, core.ErrVersionConflict):
		return err
	case core.IsStoreError(err):
		return err
	default:
		return &core.StoreError{Op: op, Err: err}
	}
}
