package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spesebot/internal/bot"
	applog "spesebot/internal/log"
	"spesebot/internal/services"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendNotion = "notion"
	BackendMongo  = "mongo"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets, BackendNotion, BackendMongo}

type Config struct {
	// HTTP Server
	Port             string
	WebhookSecret    string
	WebhookRateLimit int
	LogLevel         string

	// Backend selection
	DataBackend  string
	StoreTimeout time.Duration
	ReplyTimeout time.Duration // whole chat turn, across every store call it makes

	// Memory
	MemorySeedFile string

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleJournalSheetName    string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string

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

	// AMQP; an empty URL disables the event stream
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Chat behavior
	IngestMode           string
	RankingMode          string
	MonthWindow          string
	SuggestionWindowDays int
	SuggestionCount      int
	BotTimezone          string
	CurrencySuffix       string
}

func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "10000"),
		WebhookSecret:    getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		WebhookRateLimit: getEnvInt("WEBHOOK_RATE_LIMIT", 120),
		LogLevel:         getEnv("LOG_LEVEL", "info"),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 10*time.Second),
		ReplyTimeout: getEnvDuration("REPLY_TIMEOUT", 25*time.Second),

		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spesebot.db"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", "Records"),
		GoogleJournalSheetName:    getEnv("GOOGLE_JOURNAL_SHEET_NAME", "Journal"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		NotionToken:            getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID:       getEnv("NOTION_DATABASE_ID", ""),
		NotionAPIURL:           getEnv("NOTION_API_URL", "https://api.notion.com"),
		NotionCategoryProperty: getEnv("NOTION_CATEGORY_PROPERTY", "Категория"),
		NotionAmountProperty:   getEnv("NOTION_AMOUNT_PROPERTY", "Сумма"),
		NotionDateProperty:     getEnv("NOTION_DATE_PROPERTY", "Дата"),

		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DATABASE", "spesebot"),
		MongoCollection: getEnv("MONGO_COLLECTION", "expenses"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spesebot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_recorded"),

		IngestMode:           getEnv("INGEST_MODE", string(services.ModeAppend)),
		RankingMode:          getEnv("RANKING_MODE", string(services.RankBySpend)),
		MonthWindow:          getEnv("MONTH_WINDOW", string(bot.MonthCalendar)),
		SuggestionWindowDays: getEnvInt("SUGGESTION_WINDOW_DAYS", 30),
		SuggestionCount:      getEnvInt("SUGGESTION_COUNT", 5),
		BotTimezone:          getEnv("BOT_TIMEZONE", "UTC"),
		CurrencySuffix:       getEnv("CURRENCY_SUFFIX", "₸"),
	}
}

// Validate validates the configuration and returns every problem found in
// one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}
	if c.WebhookRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid webhook rate limit %d: must be at least 1", c.WebhookRateLimit))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.StoreTimeout < 100*time.Millisecond || c.StoreTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be between 100ms and 5m", c.StoreTimeout))
	}
	if c.ReplyTimeout < c.StoreTimeout || c.ReplyTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reply timeout %v: must be between STORE_TIMEOUT and 5m", c.ReplyTimeout))
	}

	switch c.DataBackend {
	case BackendMemory:
		if c.MemorySeedFile != "" {
			if _, err := os.Stat(c.MemorySeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("memory seed file does not exist: %s", c.MemorySeedFile))
			}
		}
	case BackendSQLite:
		errors = append(errors, c.validateSQLite()...)
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	case BackendNotion:
		if c.NotionToken == "" {
			errors = append(errors, "NOTION_TOKEN is required when using notion backend")
		}
		if c.NotionDatabaseID == "" {
			errors = append(errors, "NOTION_DATABASE_ID is required when using notion backend")
		}
		if u, err := url.Parse(c.NotionAPIURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid NOTION_API_URL '%s'", c.NotionAPIURL))
		}
	case BackendMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI is required when using mongo backend")
		} else if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
			errors = append(errors, "invalid MONGO_URI: must start with mongodb:// or mongodb+srv://")
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			errors = append(errors, "MONGO_DATABASE and MONGO_COLLECTION cannot be empty")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := services.ParseMode(c.IngestMode); err != nil {
		errors = append(errors, fmt.Sprintf("invalid INGEST_MODE: %v", err))
	}
	if _, err := services.ParseRankingMode(c.RankingMode); err != nil {
		errors = append(errors, fmt.Sprintf("invalid RANKING_MODE: %v", err))
	}
	if _, err := bot.ParseMonthWindow(c.MonthWindow); err != nil {
		errors = append(errors, fmt.Sprintf("invalid MONTH_WINDOW: %v", err))
	}
	if c.SuggestionWindowDays < 1 || c.SuggestionWindowDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid suggestion window %d: must be between 1 and 366 days", c.SuggestionWindowDays))
	}
	if c.SuggestionCount < 0 || c.SuggestionCount > 20 {
		errors = append(errors, fmt.Sprintf("invalid suggestion count %d: must be between 0 and 20", c.SuggestionCount))
	}
	if _, err := time.LoadLocation(c.BotTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid BOT_TIMEZONE '%s': %v", c.BotTimezone, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty when using sheets backend")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredFile == "" {
		errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
	}
	for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleApplicationCredFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", f))
		}
	}
	return errors
}

// Location resolves BOT_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.BotTimezone)
}

// EventsEnabled reports whether the expense event stream is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
