package memory

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	ports "spesebot/internal/records"
)

// Ensure interface conformance
var (
	_ ports.Store         = (*Store)(nil)
	_ ports.JournalWriter = (*Store)(nil)
)

// JournalEntry is one line written through AppendJournal.
type JournalEntry struct {
	Op     string
	Record core.ExpenseRecord
	At     time.Time
}

// Store keeps records in insertion order and versions every write.
type Store struct {
	mu      sync.Mutex
	items   []core.ExpenseRecord
	journal []JournalEntry
}

func New(seed ...core.ExpenseRecord) *Store {
	s := &Store{}
	for _, r := range seed {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Version == 0 {
			r.Version = 1
		}
		s.items = append(s.items, r)
	}
	return s
}

// NewFromFile seeds the store from lines of the form "YYYY-MM-DD category amount".
// Blank lines and lines starting with '#' are skipped, as are malformed ones.
func NewFromFile(path string) *Store {
	var seed []core.ExpenseRecord
	for _, line := range readLines(path) {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		d, err := core.ParseDate(fields[0])
		if err != nil {
			continue
		}
		cat, amt, err := core.ParseLine(fields[1] + " " + fields[2])
		if err != nil {
			continue
		}
		seed = append(seed, core.ExpenseRecord{Category: cat, Amount: amt, Date: d})
	}
	return New(seed...)
}

// Create stores the record and returns a random id.
func (s *Store) Create(_ context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	rec := core.ExpenseRecord{ID: uuid.NewString(), Category: category, Amount: amount, Date: date, Version: 1}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, rec)
	return rec.ID, nil
}

// QueryRange returns matching records in insertion order.
func (s *Store) QueryRange(_ context.Context, r core.DateRange) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ExpenseRecord, 0)
	for _, rec := range s.items {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// QueryLatestByCategory picks the highest date; on equal dates the later insert wins.
func (s *Store) QueryLatestByCategory(_ context.Context, category string) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := -1
	for i, rec := range s.items {
		if rec.Category != category {
			continue
		}
		if found == -1 || !rec.Date.Before(s.items[found].Date) {
			found = i
		}
	}
	if found == -1 {
		return core.ExpenseRecord{}, core.ErrRecordNotFound
	}
	return s.items[found], nil
}

// Update applies u when u.Version matches the stored version.
func (s *Store) Update(_ context.Context, u core.RecordUpdate) error {
	if err := core.ValidateAmount(u.Amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != u.ID {
			continue
		}
		if s.items[i].Version != u.Version {
			return core.ErrVersionConflict
		}
		s.items[i].Amount = u.Amount
		s.items[i].Date = u.Date
		s.items[i].Version++
		return nil
	}
	return core.ErrRecordNotFound
}

// AppendJournal records an export line in memory.
func (s *Store) AppendJournal(_ context.Context, op string, rec core.ExpenseRecord, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, JournalEntry{Op: op, Record: rec, At: at})
	return nil
}

// Records returns a copy of every stored record.
func (s *Store) Records() []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord(nil), s.items...)
}

// Journal returns a copy of the journal lines.
func (s *Store) Journal() []JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]JournalEntry(nil), s.journal...)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
