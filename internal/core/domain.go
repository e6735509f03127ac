package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of a calendar date in every store.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date stored as midnight UTC.
	Date struct {
		time.Time
	}

	// DateRange is an inclusive [Start, End] span of calendar dates.
	DateRange struct {
		Start Date
		End   Date
	}

	// ExpenseRecord is one persisted expense row.
	ExpenseRecord struct {
		ID       string
		Category string
		Amount   decimal.Decimal
		Date     Date
		// Version is bumped by stores that support conditional writes; zero otherwise.
		Version int64
	}

	// RecordUpdate carries the new state of an existing record. Version is the
	// version the caller read; stores without versioning ignore it.
	// Category is informational for observers; stores never rewrite it.
	RecordUpdate struct {
		ID       string
		Category string
		Amount   decimal.Decimal
		Date     Date
		Version  int64
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Longer ISO timestamps are cut to
// their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// NewDateRange builds a validated inclusive range.
func NewDateRange(start, end Date) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// TrailingWindow returns [today - days, today].
func TrailingWindow(today Date, days int) DateRange {
	return DateRange{Start: today.AddDays(-days), End: today}
}

// MonthToDate returns [first day of today's month, today].
func MonthToDate(today Date) DateRange {
	return DateRange{Start: NewDate(today.Year(), int(today.Month()), 1), End: today}
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether d falls inside the range, both ends included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the number of calendar days covered by the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start.Time).Hours()/24) + 1
}

// ValidateCategory trims the label and rejects empty ones.
func ValidateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// ValidateAmount rejects negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	if err := ValidateCategory(e.Category); err != nil {
		return err
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}
