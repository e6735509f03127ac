package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// RankedCategory is a category with its ranking score (count or spend).
type RankedCategory struct {
	Category string
	Score    decimal.Decimal
}

// Summary is the reduction of the records of one date range.
type Summary struct {
	Range  DateRange
	Totals []CategoryTotal // descending by Total, ties in first-seen order
	Total  decimal.Decimal
	Count  int
}

// Empty reports whether no record fell into the range.
func (s Summary) Empty() bool {
	return s.Count == 0
}

// ByCategory returns the totals as a map.
func (s Summary) ByCategory() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.Totals))
	for _, ct := range s.Totals {
		out[ct.Category] = ct.Total
	}
	return out
}

// Summarize sums the records of r by category. Records outside r are
// ignored. The result order only depends on the input order for equal totals.
func Summarize(r DateRange, records []ExpenseRecord) Summary {
	byCat := map[string]decimal.Decimal{}
	order := make([]string, 0)
	total := decimal.Zero
	count := 0
	for _, rec := range records {
		if !r.Contains(rec.Date) {
			continue
		}
		if _, seen := byCat[rec.Category]; !seen {
			order = append(order, rec.Category)
		}
		byCat[rec.Category] = byCat[rec.Category].Add(rec.Amount)
		total = total.Add(rec.Amount)
		count++
	}
	list := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		list = append(list, CategoryTotal{Category: name, Total: byCat[name]})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Total.GreaterThan(list[j].Total)
	})
	return Summary{Range: r, Totals: list, Total: total, Count: count}
}

// CountByCategory counts the records of r per category, in first-seen order.
func CountByCategory(r DateRange, records []ExpenseRecord) []RankedCategory {
	counts := map[string]int64{}
	order := make([]string, 0)
	for _, rec := range records {
		if !r.Contains(rec.Date) {
			continue
		}
		if _, seen := counts[rec.Category]; !seen {
			order = append(order, rec.Category)
		}
		counts[rec.Category]++
	}
	out := make([]RankedCategory, 0, len(order))
	for _, name := range order {
		out = append(out, RankedCategory{Category: name, Score: decimal.NewFromInt(counts[name])})
	}
	return out
}

// TopN sorts by descending score, keeping input order for ties, and keeps
// at most n entries.
func TopN(ranked []RankedCategory, n int) []RankedCategory {
	if n <= 0 {
		return []RankedCategory{}
	}
	out := append([]RankedCategory(nil), ranked...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score.GreaterThan(out[j].Score)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
