package services

import (
	"context"
	"fmt"
	"log/slog"

	"spesebot/internal/core"
	"spesebot/internal/records"
)

// Aggregator turns the records of a date range into a Summary.
type Aggregator struct {
	store records.RangeQuerier
}

func NewAggregator(store records.RangeQuerier) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate sums the records of r per category. No records is an empty
// Summary, not an error; store failures come back as *core.StoreError.
func (a *Aggregator) Aggregate(ctx context.Context, r core.DateRange) (core.Summary, error) {
	if err := r.Validate(); err != nil {
		return core.Summary{}, err
	}
	recs, err := a.store.QueryRange(ctx, r)
	if err != nil {
		if !core.IsStoreError(err) {
			err = &core.StoreError{Op: OpQueryRange, Err: err}
		}
		return core.Summary{}, fmt.Errorf("aggregate %s..%s: %w", r.Start, r.End, err)
	}
	s := core.Summarize(r, recs)
	if dropped := len(recs) - s.Count; dropped > 0 {
		slog.WarnContext(ctx, "Store returned records outside the range",
			"start", r.Start.String(), "end", r.End.String(), "dropped", dropped)
	}
	slog.DebugContext(ctx, "Range aggregated",
		"start", r.Start.String(), "end", r.End.String(),
		"records", s.Count, "categories", len(s.Totals), "total", s.Total.String())
	return s, nil
}
