// Package bot turns chat messages into ingest, report and suggestion calls
// and renders their outcome as replies.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	"spesebot/internal/services"
)

type (
	Ingester interface {
		Ingest(ctx context.Context, category string, amount decimal.Decimal) (string, error)
	}

	Aggregator interface {
		Aggregate(ctx context.Context, r core.DateRange) (core.Summary, error)
	}

	Ranker interface {
		TopCategories(ctx context.Context, windowDays, n int) ([]core.RankedCategory, error)
	}
)

// Status classifies a reply.
type Status string

const (
	StatusSaved      Status = "saved"
	StatusBadFormat  Status = "bad_format"
	StatusSaveFailed Status = "save_failed"
	StatusReport     Status = "report"
	StatusEmpty      Status = "empty"
	StatusLoadFailed Status = "load_failed"
	StatusStart      Status = "start"
)

// Reply is what the front-end sends back to the conversation.
type Reply struct {
	Status   Status
	Text     string
	Keyboard []string // one button per row; nil means no keyboard
}

type Options struct {
	MonthWindow          MonthWindow
	SuggestionWindowDays int
	SuggestionCount      int
	CurrencySuffix       string
	Today                func() core.Date
}

// Bot handles the messages of many conversations. Calls for one
// conversation run one at a time.
type Bot struct {
	ingester   Ingester
	aggregator Aggregator
	ranker     Ranker
	opts       Options
	convs      *services.KeyedMutex
}

func New(ing Ingester, agg Aggregator, rank Ranker, opts Options) *Bot {
	if opts.Today == nil {
		opts.Today = TodayIn(time.UTC, time.Now)
	}
	if opts.MonthWindow == "" {
		opts.MonthWindow = MonthCalendar
	}
	return &Bot{ingester: ing, aggregator: agg, ranker: rank, opts: opts, convs: services.NewKeyedMutex()}
}

// TodayIn returns a clock yielding the current calendar date in loc.
func TodayIn(loc *time.Location, now func() time.Time) func() core.Date {
	return func() core.Date {
		return core.DateOf(now().In(loc))
	}
}

// OnText parses "category amount" and ingests it.
func (b *Bot) OnText(ctx context.Context, conversationID string, text string) Reply {
	unlock := b.convs.Lock(conversationID)
	defer unlock()

	category, amount, err := core.ParseLine(text)
	if err != nil {
		slog.DebugContext(ctx, "Rejected chat line", "conversation", conversationID, "error", err)
		return Reply{Status: StatusBadFormat, Text: TextBadFormat}
	}
	if _, err := b.ingester.Ingest(ctx, category, amount); err != nil {
		slog.ErrorContext(ctx, "Failed to save expense",
			"conversation", conversationID, "category", category, "amount", amount.String(), "error", err)
		return Reply{Status: StatusSaveFailed, Text: TextSaveFailed}
	}
	return Reply{Status: StatusSaved, Text: TextSaved}
}

// OnReportCommand aggregates the period named by token. A failed read is
// retried once before giving up.
func (b *Bot) OnReportCommand(ctx context.Context, conversationID string, token string) Reply {
	unlock := b.convs.Lock(conversationID)
	defer unlock()

	p := ResolvePeriod(token, b.opts.Today(), b.opts.MonthWindow)
	s, err := b.aggregator.Aggregate(ctx, p.Range)
	if err != nil && retryable(ctx, err) {
		slog.WarnContext(ctx, "Report read failed, retrying", "conversation", conversationID, "period", p.Token, "error", err)
		s, err = b.aggregator.Aggregate(ctx, p.Range)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load expenses", "conversation", conversationID, "period", p.Token, "error", err)
		return Reply{Status: StatusLoadFailed, Text: TextLoadFailed}
	}
	if s.Empty() {
		return Reply{Status: StatusEmpty, Text: TextNoExpenses}
	}
	return Reply{Status: StatusReport, Text: FormatSummary(p, s, b.opts.CurrencySuffix)}
}

// OnStartCommand offers the top categories of the suggestion window as a
// keyboard. Ranking failures leave the keyboard empty.
func (b *Bot) OnStartCommand(ctx context.Context, conversationID string) Reply {
	unlock := b.convs.Lock(conversationID)
	defer unlock()

	reply := Reply{Status: StatusStart, Text: TextStartPrompt}
	top, err := b.ranker.TopCategories(ctx, b.opts.SuggestionWindowDays, b.opts.SuggestionCount)
	if err != nil {
		slog.WarnContext(ctx, "Failed to rank categories", "conversation", conversationID, "error", err)
		return reply
	}
	for _, rc := range top {
		reply.Keyboard = append(reply.Keyboard, rc.Category)
	}
	return reply
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, core.ErrInvalidRange)
}
