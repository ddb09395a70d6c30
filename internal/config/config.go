package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backend selectors.
const (
	BackendXlsDB    = "xlsdb"
	BackendBigQuery = "bigquery"
)

// Processing modes for the ingestion endpoint.
const (
	// ModeSync runs the pipeline inline before responding.
	ModeSync = "sync"
	// ModeAsync enqueues the message and acknowledges immediately, decoupling
	// upstream delivery retries from processing outcomes.
	ModeAsync = "async"
)

// Config holds all settings resolved once at process start. Nothing else in
// the process reads environment variables.
type Config struct {
	Host string
	Port string

	// GeminiAPIKey authenticates the classification call. Required in strict
	// mode; the genai client also picks it up from GEMINI_API_KEY directly.
	GeminiAPIKey string

	// ClassifyTimeout bounds the outbound classification call; expiry is
	// treated as a classification failure (fail-closed).
	ClassifyTimeout time.Duration

	// DedupeWindow is how far back a same-amount transaction counts as a
	// re-report of the same notification.
	DedupeWindow time.Duration

	// LedgerBackend selects the tabular store implementation.
	LedgerBackend string

	XlsDB    XlsDBConfig
	BigQuery BigQueryConfig

	// ProcessingMode selects inline or queued message processing.
	ProcessingMode string

	// StrictPersistence controls whether a failed ledger write is surfaced to
	// the upstream client or only logged. Both behaviors exist in the wild;
	// this makes the choice explicit.
	StrictPersistence bool

	// Strict makes missing credentials a Load error instead of a warning.
	Strict bool
}

// XlsDBConfig identifies the sheet-backed tabular store.
type XlsDBConfig struct {
	BaseURL     string
	SheetID     string
	SheetName   string
	ClientEmail string
	PrivateKey  string
}

// BigQueryConfig identifies the BigQuery ledger dataset.
type BigQueryConfig struct {
	ProjectID string
	DatasetID string
}

// ValidationError reports the configuration keys that failed validation.
// It is returned from Load rather than terminating the process; only the
// top-level entry point decides whether it is fatal.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: missing required settings: %s", strings.Join(e.Missing, ", "))
}

// Load reads a local .env file if present, then resolves the configuration
// from the environment. In strict mode missing credentials return a
// *ValidationError.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "8000"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		ClassifyTimeout: getDurationEnv("CLASSIFY_TIMEOUT", 30*time.Second),
		DedupeWindow:    getDurationEnv("DEDUPE_WINDOW", 60*time.Second),
		LedgerBackend:   getEnv("LEDGER_BACKEND", BackendXlsDB),
		XlsDB: XlsDBConfig{
			BaseURL:     getEnv("XLSDB_URL", "http://localhost:5050/xlsDB"),
			SheetID:     os.Getenv("EXCEL_SHEET_ID"),
			SheetName:   os.Getenv("EXCEL_SHEET_NAME"),
			ClientEmail: os.Getenv("GOOGLE_CLIENT_EMAIL"),
			PrivateKey:  os.Getenv("GOOGLE_PRIVATE_KEY"),
		},
		BigQuery: BigQueryConfig{
			ProjectID: os.Getenv("BQ_PROJECT_ID"),
			DatasetID: getEnv("BQ_DATASET_ID", "sms_ledger"),
		},
		ProcessingMode:    getEnv("PROCESSING_MODE", ModeSync),
		StrictPersistence: getBoolEnv("STRICT_PERSISTENCE", false),
		Strict:            getBoolEnv("STRICT_CONFIG", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.LedgerBackend != BackendXlsDB && c.LedgerBackend != BackendBigQuery {
		return fmt.Errorf("config: unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.ProcessingMode != ModeSync && c.ProcessingMode != ModeAsync {
		return fmt.Errorf("config: unknown PROCESSING_MODE %q", c.ProcessingMode)
	}

	if !c.Strict {
		return nil
	}

	var missing []string
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	switch c.LedgerBackend {
	case BackendXlsDB:
		if c.XlsDB.SheetID == "" {
			missing = append(missing, "EXCEL_SHEET_ID")
		}
		if c.XlsDB.SheetName == "" {
			missing = append(missing, "EXCEL_SHEET_NAME")
		}
		if c.XlsDB.ClientEmail == "" {
			missing = append(missing, "GOOGLE_CLIENT_EMAIL")
		}
		if c.XlsDB.PrivateKey == "" {
			missing = append(missing, "GOOGLE_PRIVATE_KEY")
		}
	case BackendBigQuery:
		if c.BigQuery.ProjectID == "" {
			missing = append(missing, "BQ_PROJECT_ID")
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
