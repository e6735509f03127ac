package bot

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"spesebot/internal/core"
)

func TestResolvePeriod(t *testing.T) {
	tests := []struct {
		token     string
		month     MonthWindow
		wantToken string
		wantDays  int
		wantStart core.Date
	}{
		{"week", MonthCalendar, "week", 7, today.AddDays(-7)},
		{"/WEEK2", MonthCalendar, "week2", 14, today.AddDays(-14)},
		{"/week3@spese_bot", MonthCalendar, "week3", 21, today.AddDays(-21)},
		{"month", MonthCalendar, "month", 0, core.NewDate(2026, 10, 1)},
		{"/Month", MonthRolling, "month", 31, today.AddDays(-31)},
		{"year", MonthCalendar, "week", 7, today.AddDays(-7)},
		{"", MonthCalendar, "week", 7, today.AddDays(-7)},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p := ResolvePeriod(tt.token, today, tt.month)
			assert.Equal(t, tt.wantToken, p.Token)
			assert.Equal(t, tt.wantDays, p.Days)
			assert.Equal(t, tt.wantStart, p.Range.Start)
			assert.Equal(t, today, p.Range.End)
			assert.NoError(t, p.Range.Validate())
		})
	}
}

func TestResolvePeriod_CalendarMonthOnFirstDay(t *testing.T) {
	first := core.NewDate(2026, 11, 1)
	p := ResolvePeriod("month", first, MonthCalendar)
	assert.Equal(t, first, p.Range.Start)
	assert.Equal(t, first, p.Range.End)
}

func TestIsReportToken(t *testing.T) {
	for _, tok := range []string{"/week", "week2", "/WEEK3@bot", "month"} {
		assert.True(t, IsReportToken(tok), tok)
	}
	for _, tok := range []string{"/start", "year", ""} {
		assert.False(t, IsReportToken(tok), tok)
	}
}

func TestParseMonthWindow(t *testing.T) {
	w, err := ParseMonthWindow("")
	assert.NoError(t, err)
	assert.Equal(t, MonthCalendar, w)
	w, err = ParseMonthWindow("Rolling")
	assert.NoError(t, err)
	assert.Equal(t, MonthRolling, w)
	_, err = ParseMonthWindow("fortnight")
	assert.Error(t, err)
}

func TestFormatSummary_RoundsAndUsesSuffix(t *testing.T) {
	s := core.Summary{
		Totals: []core.CategoryTotal{{Category: "еда", Total: decimal.RequireFromString("10.005")}},
		Total:  decimal.RequireFromString("10.005"),
		Count:  1,
	}
	got := FormatSummary(Period{Days: 7}, s, " KZT")
	assert.Equal(t, "📊 Расходы за 7 дней:\n• еда: 10.01 KZT\nИтого: 10.01 KZT", got)
}
