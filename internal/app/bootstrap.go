package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	wstore "natjus/internal/adapter/weaviate"
	"natjus/internal/config"
	"natjus/internal/schema"
	"natjus/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
)

// Needs selects which external services a command connects to.
type Needs struct {
	Index     bool
	Recreate  bool
	Ledger    bool
	Publisher bool
}

type Dependencies struct {
	DB          *sql.DB
	Weaviate    *weaviate.Client
	IndexStore  *wstore.Store
	NSQProducer *nsq.Producer
}

// Close releases whatever Bootstrap opened.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close db", "error", err)
		}
	}
}

func Bootstrap(ctx context.Context, cfg *config.Config, needs Needs) (*Dependencies, error) {
	deps := &Dependencies{}
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	if needs.Ledger && bool(cfg.FailureLedgerEnabled) {
		db, err := OpenLedger(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.DB = db
	}

	if needs.Index {
		client, err := NewWeaviateClient(cfg)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("weaviate client error: %w", err)
		}
		ensure := func(ctx context.Context) error {
			return schema.Ensure(ctx, schema.NewWeaviateClientAdapter(client), cfg.IndexClass, needs.Recreate)
		}
		if err := EnsureSchemaWithRetry(ctx, ensure, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
			deps.Close()
			return nil, fmt.Errorf("weaviate schema error: %w", err)
		}
		deps.Weaviate = client
		deps.IndexStore = wstore.NewStore(client, cfg.IndexClass)
	}

	if needs.Publisher && bool(cfg.NSQEnabled) {
		producer, err := NewProducer(cfg)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		deps.NSQProducer = producer
	}

	return deps, nil
}

// OpenLedger connects to Postgres with retries and applies the embedded migrations.
func OpenLedger(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.PingContext(ctx); err == nil {
			break
		}
		slog.WarnContext(ctx, "failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "failure ledger ready")
	return db, nil
}

func migrateUp(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source error: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	return nil
}

func NewWeaviateClient(cfg *config.Config) (*weaviate.Client, error) {
	wCfg := weaviate.Config{
		Host:             cfg.WeaviateHost,
		Scheme:           cfg.WeaviateScheme,
		ConnectionClient: &http.Client{Timeout: cfg.IndexRequestTimeout},
	}
	if cfg.WeaviateAPIKey != "" {
		wCfg.AuthConfig = auth.ApiKey{Value: cfg.WeaviateAPIKey}
	}
	return weaviate.NewClient(wCfg)
}

func NewProducer(cfg *config.Config) (*nsq.Producer, error) {
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	producer.SetLogger(nsqLogger{}, nsq.LogLevelWarning)
	return producer, nil
}

// EnsureSchemaWithRetry calls ensure until it succeeds or attempts run out.
func EnsureSchemaWithRetry(ctx context.Context, ensure func(context.Context) error, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = ensure(ctx); err == nil {
			return nil
		}
		slog.WarnContext(ctx, "failed to ensure index schema, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}

// nsqLogger routes go-nsq's internal logging through slog.
type nsqLogger struct{}

func (nsqLogger) Output(_ int, s string) error {
	slog.Warn("nsq", "message", s)
	return nil
}
