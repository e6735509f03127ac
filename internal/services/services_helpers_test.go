package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	"spesebot/internal/records"
)

var testToday = core.NewDate(2026, 10, 15)

func fixedToday() core.Date { return testToday }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stubStore lets a test replace single store operations.
type stubStore struct {
	records.Store
	createFn func(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error)
	rangeFn  func(ctx context.Context, r core.DateRange) ([]core.ExpenseRecord, error)
	latestFn func(ctx context.Context, category string) (core.ExpenseRecord, error)
	updateFn func(ctx context.Context, u core.RecordUpdate) error
}

func (s *stubStore) Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	if s.createFn != nil {
		return s.createFn(ctx, category, amount, date)
	}
	return s.Store.Create(ctx, category, amount, date)
}

func (s *stubStore) QueryRange(ctx context.Context, r core.DateRange) ([]core.ExpenseRecord, error) {
	if s.rangeFn != nil {
		return s.rangeFn(ctx, r)
	}
	return s.Store.QueryRange(ctx, r)
}

func (s *stubStore) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	if s.latestFn != nil {
		return s.latestFn(ctx, category)
	}
	return s.Store.QueryLatestByCategory(ctx, category)
}

func (s *stubStore) Update(ctx context.Context, u core.RecordUpdate) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, u)
	}
	return s.Store.Update(ctx, u)
}

// barrierStore holds the first `parties` latest-reads until all of them
// arrived, so concurrent read-modify-write cycles overlap.
type barrierStore struct {
	records.Store
	parties int32
	reads   atomic.Int32
	wg      sync.WaitGroup
}

func newBarrierStore(next records.Store, parties int) *barrierStore {
	b := &barrierStore{Store: next, parties: int32(parties)}
	b.wg.Add(parties)
	return b
}

func (b *barrierStore) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	rec, err := b.Store.QueryLatestByCategory(ctx, category)
	if b.reads.Add(1) <= b.parties {
		b.wg.Done()
		b.wg.Wait()
	}
	return rec, err
}

// slowStore delays latest-reads to widen the read-modify-write window.
type slowStore struct {
	records.Store
	delay time.Duration
}

func (s *slowStore) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	rec, err := s.Store.QueryLatestByCategory(ctx, category)
	time.Sleep(s.delay)
	return rec, err
}
