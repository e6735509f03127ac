package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func rec(cat, amount string, d Date) ExpenseRecord {
	return ExpenseRecord{Category: cat, Amount: decimal.RequireFromString(amount), Date: d}
}

func TestSummarizeTotalsAndOrder(t *testing.T) {
	r := DateRange{Start: NewDate(2026, 10, 1), End: NewDate(2026, 10, 15)}
	records := []ExpenseRecord{
		rec("такси", "500", NewDate(2026, 10, 1)),
		rec("еда", "6400", NewDate(2026, 10, 2)),
		rec("кофе", "500", NewDate(2026, 10, 3)),
		rec("еда", "64.5", NewDate(2026, 10, 15)),
		rec("еда", "1000", NewDate(2026, 10, 16)), // outside
	}
	s := Summarize(r, records)

	if s.Count != 4 {
		t.Fatalf("Count = %d, want 4", s.Count)
	}
	if !s.Total.Equal(decimal.RequireFromString("7464.5")) {
		t.Fatalf("Total = %s", s.Total)
	}
	want := []string{"еда", "такси", "кофе"} // такси before кофе: first seen
	if len(s.Totals) != len(want) {
		t.Fatalf("Totals = %+v", s.Totals)
	}
	for i, name := range want {
		if s.Totals[i].Category != name {
			t.Fatalf("position %d: got %s, want %s", i, s.Totals[i].Category, name)
		}
	}
	if got := s.ByCategory()["еда"]; !got.Equal(decimal.RequireFromString("6464.5")) {
		t.Fatalf("еда total = %s", got)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	r := DateRange{Start: NewDate(2026, 10, 1), End: NewDate(2026, 10, 7)}
	s := Summarize(r, nil)
	if !s.Empty() || !s.Total.IsZero() || len(s.Totals) != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
	if len(s.ByCategory()) != 0 {
		t.Fatal("expected empty mapping")
	}
}

func TestCountAndTopN(t *testing.T) {
	r := DateRange{Start: NewDate(2026, 10, 1), End: NewDate(2026, 10, 31)}
	records := []ExpenseRecord{
		rec("a", "1", NewDate(2026, 10, 1)),
		rec("b", "100", NewDate(2026, 10, 1)),
		rec("a", "1", NewDate(2026, 10, 2)),
		rec("c", "1", NewDate(2026, 10, 2)),
		rec("b", "1", NewDate(2026, 10, 3)),
		rec("d", "1", NewDate(2026, 10, 3)),
	}
	counts := CountByCategory(r, records)
	top := TopN(counts, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(top))
	}
	// a and b both have 2, a seen first; c before d.
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if top[i].Category != name {
			t.Fatalf("position %d: got %s, want %s", i, top[i].Category, name)
		}
	}
	if len(TopN(counts, 0)) != 0 {
		t.Fatal("n=0 must yield nothing")
	}
	if len(TopN(counts, 10)) != 4 {
		t.Fatal("n larger than input must keep everything")
	}
}
