package backend

import (
	"context"

	"spesebot/internal/records"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is a ready-to-use record store and its companions.
type BackendResult struct {
	Store records.Store
	// Journal is nil for backends without an export journal.
	Journal records.JournalWriter
	// Ready probes the store; nil means the backend has nothing to probe.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Journal is a named journal sink used by the event worker.
type Journal struct {
	Name   string
	Writer records.JournalWriter
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateJournals(ctx context.Context, config Config) ([]Journal, CleanupFunc, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	MemorySeedFile string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleJournalSheetName   string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Notion
	NotionToken            string
	NotionDatabaseID       string
	NotionAPIURL           string
	NotionCategoryProperty string
	NotionAmountProperty   string
	NotionDateProperty     string

	// MongoDB
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	NotionBackend BackendType = "notion"
	MongoBackend  BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend, NotionBackend, MongoBackend:
		return true
	default:
		return false
	}
}

// Versioned reports whether the backend supports conditional updates, which
// accumulate mode relies on across processes.
func (bt BackendType) Versioned() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
