package bot

import (
	"fmt"
	"strings"

	"spesebot/internal/core"
)

// User-facing texts.
const (
	TextSaved        = "✅ Сохранено."
	TextSaveFailed   = "❌ Не удалось сохранить."
	TextBadFormat    = "⚠️ Неверный формат. Пример: еда 6400"
	TextNoExpenses   = "Нет расходов за этот период."
	TextLoadFailed   = "❌ Не удалось загрузить расходы."
	TextStartPrompt  = "Выберите категорию или введите вручную:"
	textMonthHeader  = "📊 Расходы за текущий месяц:"
	textPeriodHeader = "📊 Расходы за %d дней:"
	textTotalLine    = "Итого: %s%s"
)

// FormatSummary renders a non-empty summary as one line per category plus the grand total.
func FormatSummary(p Period, s core.Summary, suffix string) string {
	var b strings.Builder
	if p.Days == 0 {
		b.WriteString(textMonthHeader)
	} else {
		fmt.Fprintf(&b, textPeriodHeader, p.Days)
	}
	b.WriteByte('\n')
	for _, ct := range s.Totals {
		fmt.Fprintf(&b, "• %s: %s%s\n", ct.Category, core.FormatAmount(ct.Total), suffix)
	}
	fmt.Fprintf(&b, textTotalLine, core.FormatAmount(s.Total), suffix)
	return b.String()
}
