package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	"spesebot/internal/records"
)

// Mode is the ingestion policy.
type Mode string

const (
	// ModeAppend creates one record per entry, dated today.
	ModeAppend Mode = "append"
	// ModeAccumulate folds the entry into the newest record of the category
	// and moves that record to today. Amounts from earlier days end up
	// attributed to today, so period reports for this category are skewed.
	ModeAccumulate Mode = "accumulate"
)

// DefaultMaxAttempts bounds the accumulate read-modify-write loop on version conflicts.
const DefaultMaxAttempts = 3

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAppend:
		return ModeAppend, nil
	case ModeAccumulate:
		return ModeAccumulate, nil
	default:
		return "", fmt.Errorf("unknown ingest mode %q", s)
	}
}

// Ingestor writes parsed entries through the store according to its mode.
type Ingestor struct {
	store       records.Store
	mode        Mode
	today       func() core.Date
	locks       *KeyedMutex
	maxAttempts int
}

func NewIngestor(store records.Store, mode Mode, today func() core.Date) *Ingestor {
	return &Ingestor{
		store:       store,
		mode:        mode,
		today:       today,
		locks:       NewKeyedMutex(),
		maxAttempts: DefaultMaxAttempts,
	}
}

func (i *Ingestor) Mode() Mode { return i.mode }

// Ingest stores one entry and returns the id of the created or updated
// record. A successful call performs exactly one store write.
func (i *Ingestor) Ingest(ctx context.Context, category string, amount decimal.Decimal) (string, error) {
	if err := core.ValidateCategory(category); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}
	if err := core.ValidateAmount(amount); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}

	if i.mode != ModeAccumulate {
		id, err := i.store.Create(ctx, category, amount, i.today())
		if err != nil {
			return "", fmt.Errorf("ingest %q: %w", category, err)
		}
		slog.InfoContext(ctx, "Expense recorded", "id", id, "category", category, "amount", amount.String(), "mode", string(i.mode))
		return id, nil
	}
	return i.accumulate(ctx, category, amount)
}

func (i *Ingestor) accumulate(ctx context.Context, category string, amount decimal.Decimal) (string, error) {
	unlock := i.locks.Lock(category)
	defer unlock()

	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		latest, err := i.store.QueryLatestByCategory(ctx, category)
		if errors.Is(err, core.ErrRecordNotFound) {
			id, err := i.store.Create(ctx, category, amount, i.today())
			if err != nil {
				return "", fmt.Errorf("ingest %q: %w", category, err)
			}
			slog.InfoContext(ctx, "Expense recorded", "id", id, "category", category, "amount", amount.String(), "mode", string(i.mode))
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("ingest %q: %w", category, err)
		}

		total := latest.Amount.Add(amount)
		err = i.store.Update(ctx, core.RecordUpdate{
			ID:       latest.ID,
			Category: category,
			Amount:   total,
			Date:     i.today(),
			Version:  latest.Version,
		})
		if err == nil {
			slog.InfoContext(ctx, "Expense accumulated",
				"id", latest.ID,
				"category", category,
				"amount", amount.String(),
				"total", total.String(),
				"previous_date", latest.Date.String())
			return latest.ID, nil
		}
		if !errors.Is(err, core.ErrVersionConflict) {
			return "", fmt.Errorf("ingest %q: %w", category, err)
		}
		slog.WarnContext(ctx, "Concurrent update detected, retrying",
			"id", latest.ID, "category", category, "attempt", attempt)
	}
	return "", fmt.Errorf("ingest %q: %w after %d attempts", category, core.ErrVersionConflict, i.maxAttempts)
}
