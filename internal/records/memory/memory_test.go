package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
)

func TestMemoryStoreCreateAndQuery(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Create(ctx, "еда", decimal.NewFromInt(100), core.NewDate(2026, 10, 15))
	if err != nil || id == "" {
		t.Fatalf("unexpected create: id=%q err=%v", id, err)
	}
	if _, err := s.Create(ctx, "кофе", decimal.NewFromInt(5), core.NewDate(2026, 10, 16)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.QueryRange(ctx, core.DateRange{Start: core.NewDate(2026, 10, 1), End: core.NewDate(2026, 10, 15)})
	if err != nil || len(got) != 1 || got[0].ID != id {
		t.Fatalf("unexpected query: %+v err=%v", got, err)
	}
	if got[0].Version != 1 {
		t.Fatalf("expected version 1, got %d", got[0].Version)
	}
}

func TestMemoryStoreCreateRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.Create(context.Background(), " ", decimal.NewFromInt(1), core.NewDate(2026, 1, 1)); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := s.Create(context.Background(), "a", decimal.NewFromInt(-1), core.NewDate(2026, 1, 1)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMemoryStoreLatestAndVersionedUpdate(t *testing.T) {
	ctx := context.Background()
	s := New(
		core.ExpenseRecord{Category: "еда", Amount: decimal.NewFromInt(1), Date: core.NewDate(2026, 10, 1)},
		core.ExpenseRecord{Category: "еда", Amount: decimal.NewFromInt(2), Date: core.NewDate(2026, 10, 3)},
		core.ExpenseRecord{Category: "еда", Amount: decimal.NewFromInt(3), Date: core.NewDate(2026, 10, 2)},
	)

	if _, err := s.QueryLatestByCategory(ctx, "такси"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	latest, err := s.QueryLatestByCategory(ctx, "еда")
	if err != nil || !latest.Amount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected latest: %+v err=%v", latest, err)
	}

	u := core.RecordUpdate{ID: latest.ID, Amount: decimal.NewFromInt(10), Date: core.NewDate(2026, 10, 15), Version: latest.Version}
	if err := s.Update(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Same version again is stale now.
	if err := s.Update(ctx, u); !errors.Is(err, core.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := s.Update(ctx, core.RecordUpdate{ID: "missing", Amount: decimal.Zero, Date: core.NewDate(2026, 1, 1)}); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	latest, _ = s.QueryLatestByCategory(ctx, "еда")
	if !latest.Amount.Equal(decimal.NewFromInt(10)) || latest.Version != 2 || latest.Date.String() != "2026-10-15" {
		t.Fatalf("update not applied: %+v", latest)
	}
}

func TestMemoryStoreJournal(t *testing.T) {
	s := New()
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	rec := core.ExpenseRecord{ID: "x", Category: "еда", Amount: decimal.NewFromInt(1), Date: core.NewDate(2026, 10, 15)}
	if err := s.AppendJournal(context.Background(), "create", rec, at); err != nil {
		t.Fatalf("journal: %v", err)
	}
	j := s.Journal()
	if len(j) != 1 || j[0].Op != "create" || j[0].Record.ID != "x" || !j[0].At.Equal(at) {
		t.Fatalf("unexpected journal: %+v", j)
	}
}

func TestNewFromFileSeeds(t *testing.T) {
	dir := t.TempDir()
	// No file -> empty store
	if got := NewFromFile(filepath.Join(dir, "missing.txt")).Records(); len(got) != 0 {
		t.Fatalf("expected empty store, got %d", len(got))
	}

	path := filepath.Join(dir, "seed_records.txt")
	content := "# date category amount\n2026-10-01 еда 6400\n\n2026-10-02 кофе 4,50\nbroken line\n2026-10-03 такси -5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	got := NewFromFile(path).Records()
	if len(got) != 2 {
		t.Fatalf("expected 2 seeded records, got %+v", got)
	}
	if got[1].Category != "кофе" || !got[1].Amount.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("unexpected seed: %+v", got[1])
	}
	if got[0].ID == "" || got[0].Version != 1 {
		t.Fatalf("seeded records need id and version: %+v", got[0])
	}
}
