package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

// Flag is a boolean that also accepts the operator spellings "sim" and "yes".
type Flag bool

func (f *Flag) Decode(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "sim", "yes", "y", "on":
		*f = true
	case "", "0", "false", "nao", "não", "no", "n", "off":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %q", value)
	}
	return nil
}

type Config struct {
	// Corpus and outputs
	InputDir        string `envconfig:"INPUT_DIR" default:"data/raw"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"data/processed"`
	CheckpointPath  string `envconfig:"CHECKPOINT_PATH"`
	ResultsJSONPath string `envconfig:"RESULTS_JSON_PATH"`
	ResultsCSVPath  string `envconfig:"RESULTS_CSV_PATH"`
	ResultsXLSXPath string `envconfig:"RESULTS_XLSX_PATH"`
	JournalPath     string `envconfig:"JOURNAL_PATH"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFile  string `envconfig:"LOG_FILE"`

	// Text extraction page budget
	PageBudgetThreshold int `envconfig:"PAGE_BUDGET_THRESHOLD" default:"20" validate:"min=1"`
	PageBudgetHead      int `envconfig:"PAGE_BUDGET_HEAD" default:"10" validate:"min=1"`
	PageBudgetTail      int `envconfig:"PAGE_BUDGET_TAIL" default:"10" validate:"min=0"`

	// Search index
	WeaviateHost        string        `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme      string        `envconfig:"WEAVIATE_SCHEME" default:"http" validate:"oneof=http https"`
	WeaviateAPIKey      string        `envconfig:"WEAVIATE_API_KEY"`
	IndexClass          string        `envconfig:"INDEX_CLASS" default:"NatjusDocument"`
	IndexRecreate       Flag          `envconfig:"INDEX_RECREATE" default:"false"`
	IndexBatchSize      int           `envconfig:"INDEX_BATCH_SIZE" default:"1" validate:"min=1"`
	IndexBackoff        time.Duration `envconfig:"INDEX_BACKOFF" default:"5s" validate:"min=1ms"`
	IndexMaxRetries     int           `envconfig:"INDEX_MAX_RETRIES" default:"2" validate:"min=0,max=10"`
	IndexRequestTimeout time.Duration `envconfig:"INDEX_REQUEST_TIMEOUT" default:"60s"`
	IndexAttachPDF      Flag          `envconfig:"INDEX_ATTACH_PDF" default:"false"`

	// Failure ledger
	FailureLedgerEnabled Flag   `envconfig:"FAILURE_LEDGER_ENABLED" default:"false"`
	DBHost               string `envconfig:"DB_HOST" default:"localhost"`
	DBPort               int    `envconfig:"DB_PORT" default:"5432"`
	DBUser               string `envconfig:"DB_USER" default:"natjus"`
	DBPass               string `envconfig:"DB_PASS" default:"password"`
	DBName               string `envconfig:"DB_NAME" default:"natjus"`

	// Streaming submissions
	NSQEnabled Flag   `envconfig:"NSQ_ENABLED" default:"false"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"localhost:4150"`
	NSQLookupd string `envconfig:"NSQ_LOOKUPD"`

	// Server
	ServerPort int `envconfig:"SERVER_PORT" default:"8081" validate:"min=1,max=65535"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10" validate:"min=1"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2" validate:"min=0"`
}

func Load() (*Config, error) {
	// Ignore errors, env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.applyOutputDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyOutputDefaults places every unset output file inside OutputDir.
func (c *Config) applyOutputDefaults() {
	set := func(target *string, name string) {
		if *target == "" {
			*target = filepath.Join(c.OutputDir, name)
		}
	}
	set(&c.CheckpointPath, "checkpoint.json")
	set(&c.ResultsJSONPath, "metadados_extraidos.json")
	set(&c.ResultsCSVPath, "metadados_extraidos.csv")
	set(&c.ResultsXLSXPath, "metadados_extraidos.xlsx")
	set(&c.JournalPath, "processamento.jsonl")
}

var validate = validator.New()

func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: INPUT_DIR", ErrMissingRequired)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: OUTPUT_DIR", ErrMissingRequired)
	}
	if c.WeaviateHost == "" {
		return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
	}
	if c.IndexClass == "" {
		return fmt.Errorf("%w: INDEX_CLASS", ErrMissingRequired)
	}
	if c.FailureLedgerEnabled {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.PageBudgetHead+c.PageBudgetTail > c.PageBudgetThreshold {
		return fmt.Errorf("invalid configuration: PAGE_BUDGET_HEAD + PAGE_BUDGET_TAIL must not exceed PAGE_BUDGET_THRESHOLD")
	}
	return nil
}

// DSN returns the Postgres connection string for the failure ledger.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

// EnsureOutputDir creates the directory that holds checkpoint and result files.
func (c *Config) EnsureOutputDir() error {
	for _, p := range []string{c.CheckpointPath, c.ResultsJSONPath, c.ResultsCSVPath, c.ResultsXLSXPath, c.JournalPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}
