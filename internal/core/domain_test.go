package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2026-10-15", NewDate(2026, 10, 15), true},
		{" 2026-01-02 ", NewDate(2026, 1, 2), true},
		{"2026-10-15T08:30:00.000+05:00", NewDate(2026, 10, 15), true},
		{"15.10.2026", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	// 2026-10-14 21:00 UTC is already the 15th at UTC+5.
	ts := time.Date(2026, 10, 14, 21, 0, 0, 0, time.UTC).In(loc)
	if got := DateOf(ts); got.String() != "2026-10-15" {
		t.Fatalf("DateOf = %s, want 2026-10-15", got)
	}
}

func TestDateRangeContainsBoundaries(t *testing.T) {
	r, err := NewDateRange(NewDate(2026, 10, 1), NewDate(2026, 10, 15))
	if err != nil {
		t.Fatalf("NewDateRange: %v", err)
	}
	if !r.Contains(NewDate(2026, 10, 1)) {
		t.Fatal("start date must be included")
	}
	if !r.Contains(NewDate(2026, 10, 15)) {
		t.Fatal("end date must be included")
	}
	if r.Contains(NewDate(2026, 10, 16)) {
		t.Fatal("end+1 must be excluded")
	}
	if r.Contains(NewDate(2026, 9, 30)) {
		t.Fatal("start-1 must be excluded")
	}
	if r.Days() != 15 {
		t.Fatalf("Days = %d, want 15", r.Days())
	}
}

func TestNewDateRangeRejectsInverted(t *testing.T) {
	_, err := NewDateRange(NewDate(2026, 10, 2), NewDate(2026, 10, 1))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := NewDateRange(Date{}, NewDate(2026, 10, 1)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero start, got %v", err)
	}
}

func TestWindows(t *testing.T) {
	today := NewDate(2026, 10, 15)
	w := TrailingWindow(today, 7)
	if w.Start.String() != "2026-10-08" || w.End.String() != "2026-10-15" {
		t.Fatalf("unexpected trailing window %s..%s", w.Start, w.End)
	}
	m := MonthToDate(today)
	if m.Start.String() != "2026-10-01" || m.End.String() != "2026-10-15" {
		t.Fatalf("unexpected month window %s..%s", m.Start, m.End)
	}
}

func TestExpenseRecordValidate(t *testing.T) {
	good := ExpenseRecord{
		Category: "еда",
		Amount:   decimal.NewFromInt(100),
		Date:     NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount must be valid, got %v", err)
	}

	bads := []ExpenseRecord{
		{Category: "  ", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1)},
		{Category: "a", Amount: decimal.NewFromInt(-1), Date: NewDate(2025, 1, 1)},
		{Category: "a", Amount: decimal.NewFromInt(1)}, // zero date
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
