package bot

import (
	"fmt"
	"strings"

	"spesebot/internal/core"
)

// MonthWindow selects what the "month" report covers.
type MonthWindow string

const (
	// MonthCalendar reports from the first day of the current month to today.
	MonthCalendar MonthWindow = "calendar"
	// MonthRolling reports the trailing 31 days.
	MonthRolling MonthWindow = "rolling"
)

const rollingMonthDays = 31

func ParseMonthWindow(s string) (MonthWindow, error) {
	switch MonthWindow(strings.ToLower(strings.TrimSpace(s))) {
	case "", MonthCalendar:
		return MonthCalendar, nil
	case MonthRolling:
		return MonthRolling, nil
	default:
		return "", fmt.Errorf("unknown month window %q", s)
	}
}

// Period is a resolved report period.
type Period struct {
	Token string
	Days  int // trailing days; 0 for the calendar month
	Range core.DateRange
}

// periodDays maps report tokens to trailing windows.
var periodDays = map[string]int{
	"week":  7,
	"week2": 14,
	"week3": 21,
}

// ReportTokens lists the commands that produce a report.
var ReportTokens = []string{"week", "week2", "week3", "month"}

// NormalizeToken lowercases a command and strips a leading "/" and a
// "@botname" suffix.
func NormalizeToken(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.TrimPrefix(t, "/")
	if at := strings.IndexByte(t, '@'); at >= 0 {
		t = t[:at]
	}
	return t
}

// IsReportToken reports whether token names a known period.
func IsReportToken(token string) bool {
	t := NormalizeToken(token)
	_, ok := periodDays[t]
	return ok || t == "month"
}

// ResolvePeriod maps token to a date range ending today. Unknown tokens
// resolve to "week".
func ResolvePeriod(token string, today core.Date, month MonthWindow) Period {
	t := NormalizeToken(token)
	if t == "month" {
		if month == MonthRolling {
			return Period{Token: t, Days: rollingMonthDays, Range: core.TrailingWindow(today, rollingMonthDays)}
		}
		return Period{Token: t, Range: core.MonthToDate(today)}
	}
	days, ok := periodDays[t]
	if !ok {
		t, days = "week", periodDays["week"]
	}
	return Period{Token: t, Days: days, Range: core.TrailingWindow(today, days)}
}
