package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spesebot/internal/core"
	"spesebot/internal/records/google"
	"spesebot/internal/records/memory"
	"spesebot/internal/records/mongo"
	"spesebot/internal/records/notion"
	"spesebot/internal/storage"
)

const disconnectTimeout = 5 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config), nil
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case NotionBackend:
		return f.createNotionBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	var store *memory.Store
	if config.MemorySeedFile != "" {
		store = memory.NewFromFile(config.MemorySeedFile)
	} else {
		store = memory.New()
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile, "records", len(store.Records()))
	return &BackendResult{Store: store, Journal: store}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Store:   repo,
		Journal: repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := f.newSheetsClient(ctx, config)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)
	return &BackendResult{Store: cli, Journal: cli}, nil
}

func (f *DefaultFactory) newSheetsClient(ctx context.Context, config Config) (*google.Client, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		RecordsSheet:    config.GoogleSheetName,
		JournalSheet:    config.GoogleJournalSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return cli, nil
}

func (f *DefaultFactory) createNotionBackend(config Config) (*BackendResult, error) {
	cli, err := notion.New(notion.Config{
		Token:            config.NotionToken,
		DatabaseID:       config.NotionDatabaseID,
		BaseURL:          config.NotionAPIURL,
		CategoryProperty: config.NotionCategoryProperty,
		AmountProperty:   config.NotionAmountProperty,
		DateProperty:     config.NotionDateProperty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Notion client: %w", err)
	}
	f.logger.Info("Initialized Notion backend", "database_id", config.NotionDatabaseID)
	return &BackendResult{Store: cli}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, client, err := mongo.Open(ctx, mongo.Config{
		URI:        config.MongoURI,
		Database:   config.MongoDatabase,
		Collection: config.MongoCollection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB backend: %w", err)
	}
	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase, "collection", config.MongoCollection)
	return &BackendResult{
		Store: store,
		Ready: func(ctx context.Context) error { return client.Ping(ctx, nil) },
		Cleanup: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

// CreateJournals opens the journals the event worker writes to: the SQLite
// journal table for the sqlite backend and the Sheets journal tab whenever a
// spreadsheet is configured. Without either, events are only logged.
func (f *DefaultFactory) CreateJournals(ctx context.Context, config Config) ([]Journal, CleanupFunc, error) {
	var (
		journals []Journal
		cleanups []CleanupFunc
	)
	cleanup := func() error {
		var errs []error
		for _, c := range cleanups {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	if config.Type == SQLiteBackend {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite journal: %w", err)
		}
		journals = append(journals, Journal{Name: "sqlite", Writer: repo})
		cleanups = append(cleanups, repo.Close)
		f.logJournalTail(ctx, repo)
	}

	if config.GoogleSpreadsheetID != "" {
		cli, err := f.newSheetsClient(ctx, config)
		if err != nil {
			_ = cleanup()
			return nil, nil, err
		}
		journals = append(journals, Journal{Name: "sheets", Writer: cli})
	}

	if len(journals) == 0 {
		f.logger.Warn("No persistent journal configured, events will only be logged")
		journals = append(journals, Journal{Name: "log", Writer: logJournal{logger: f.logger}})
	}
	return journals, cleanup, nil
}

// logJournalTail reports where a reopened SQLite journal left off.
func (f *DefaultFactory) logJournalTail(ctx context.Context, repo *storage.SQLiteRepository) {
	last, err := repo.ListJournal(ctx, 1)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to read SQLite journal tail", "error", err)
		return
	}
	if len(last) == 0 {
		f.logger.InfoContext(ctx, "SQLite journal is empty")
		return
	}
	f.logger.InfoContext(ctx, "Resuming SQLite journal",
		"last_recorded_at", last[0].RecordedAt,
		"last_operation", last[0].Op,
		"last_record_id", last[0].RecordID)
}

// logJournal writes journal lines to the process log.
type logJournal struct {
	logger *slog.Logger
}

func (l logJournal) AppendJournal(ctx context.Context, op string, rec core.ExpenseRecord, at time.Time) error {
	l.logger.InfoContext(ctx, "Journal",
		"operation", op,
		"record_id", rec.ID,
		"category", rec.Category,
		"amount", rec.Amount.String(),
		"date", rec.Date.String(),
		"at", at.UTC().Format(time.RFC3339))
	return nil
}
