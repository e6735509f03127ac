package services

import (
	"context"
	"fmt"
	"strings"

	"spesebot/internal/core"
	"spesebot/internal/records"
)

// RankingMode selects how categories are scored for suggestions.
type RankingMode string

const (
	RankBySpend     RankingMode = "spend"
	RankByFrequency RankingMode = "frequency"
)

func ParseRankingMode(s string) (RankingMode, error) {
	switch RankingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RankBySpend:
		return RankBySpend, nil
	case RankByFrequency:
		return RankByFrequency, nil
	default:
		return "", fmt.Errorf("unknown ranking mode %q", s)
	}
}

// Ranker picks the top categories of a trailing window. Its output feeds
// quick-pick suggestions only.
type Ranker struct {
	agg   *Aggregator
	store records.RangeQuerier
	mode  RankingMode
	today func() core.Date
}

func NewRanker(store records.RangeQuerier, mode RankingMode, today func() core.Date) *Ranker {
	return &Ranker{agg: NewAggregator(store), store: store, mode: mode, today: today}
}

// TopCategories ranks the categories of [today-windowDays, today] and keeps at most n.
func (r *Ranker) TopCategories(ctx context.Context, windowDays, n int) ([]core.RankedCategory, error) {
	if windowDays < 0 {
		return nil, fmt.Errorf("window of %d days: %w", windowDays, core.ErrInvalidRange)
	}
	if n <= 0 {
		return []core.RankedCategory{}, nil
	}
	window := core.TrailingWindow(r.today(), windowDays)

	if r.mode == RankByFrequency {
		recs, err := r.store.QueryRange(ctx, window)
		if err != nil {
			if !core.IsStoreError(err) {
				err = &core.StoreError{Op: OpQueryRange, Err: err}
			}
			return nil, fmt.Errorf("rank categories: %w", err)
		}
		return core.TopN(core.CountByCategory(window, recs), n), nil
	}

	s, err := r.agg.Aggregate(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("rank categories: %w", err)
	}
	ranked := make([]core.RankedCategory, 0, len(s.Totals))
	for _, ct := range s.Totals {
		ranked = append(ranked, core.RankedCategory{Category: ct.Category, Score: ct.Total})
	}
	return core.TopN(ranked, n), nil
}
