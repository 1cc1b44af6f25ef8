package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"natjus/internal/config"
	"natjus/migrations"
)

// IntegrationSuite starts the external services against real containers.
// Each service is optional so a test only pays for what it uses.
type IntegrationSuite struct {
	T        *testing.T
	DB       *sql.DB
	Weaviate *weaviate.Client
	NSQ      *nsq.Producer
	NSQDAddr string

	WeaviateAddr string

	WithPostgres bool
	WithWeaviate bool
	WithNSQ      bool

	pgContainer       *postgres.PostgresContainer
	weaviateContainer testcontainers.Container
	nsqContainer      testcontainers.Container
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t, WithPostgres: true, WithWeaviate: true, WithNSQ: true}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()
	if s.WithPostgres {
		s.setupPostgres(ctx)
	}
	if s.WithWeaviate {
		s.setupWeaviate(ctx)
	}
	if s.WithNSQ {
		s.setupNSQ(ctx)
	}
}

func (s *IntegrationSuite) setupPostgres(ctx context.Context) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("natjus_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	src, err := iofs.New(migrations.FS, ".")
	require.NoError(s.T, err)
	m, err := migrate.NewWithSourceInstance("iofs", src, connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())
}

func (s *IntegrationSuite) setupWeaviate(ctx context.Context) {
	req := testcontainers.ContainerRequest{
		Image:        "semitechnologies/weaviate:1.33.6",
		ExposedPorts: []string{"8080/tcp", "50051/tcp"},
		Env: map[string]string{
			"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
			"DEFAULT_VECTORIZER_MODULE":               "none",
			"PERSISTENCE_DATA_PATH":                   "/var/lib/weaviate",
		},
		WaitingFor: wait.ForHTTP("/v1/meta").WithPort("8080/tcp").WithStartupTimeout(60 * time.Second),
	}
	weaviateC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.weaviateContainer = weaviateC

	host, err := weaviateC.Host(ctx)
	require.NoError(s.T, err)
	port, err := weaviateC.MappedPort(ctx, "8080")
	require.NoError(s.T, err)

	s.WeaviateAddr = fmt.Sprintf("%s:%s", host, port.Port())
	s.Weaviate, err = weaviate.NewClient(weaviate.Config{
		Host:   s.WeaviateAddr,
		Scheme: "http",
	})
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) setupNSQ(ctx context.Context) {
	nsqReq := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: nsqReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = nsqC

	nsqHost, err := nsqC.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := nsqC.MappedPort(ctx, "4150")
	require.NoError(s.T, err)

	s.NSQDAddr = fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port())
	s.NSQ, err = nsq.NewProducer(s.NSQDAddr, nsq.NewConfig())
	require.NoError(s.T, err)
}

// GetAppConfig returns a configuration pointing at the started containers,
// with outputs under a temporary directory.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	ctx := context.Background()
	out := s.T.TempDir()
	cfg := &config.Config{
		InputDir:                   s.T.TempDir(),
		OutputDir:                  out,
		CheckpointPath:             filepath.Join(out, "checkpoint.json"),
		ResultsJSONPath:            filepath.Join(out, "metadados_extraidos.json"),
		ResultsCSVPath:             filepath.Join(out, "metadados_extraidos.csv"),
		ResultsXLSXPath:            filepath.Join(out, "metadados_extraidos.xlsx"),
		JournalPath:                filepath.Join(out, "processamento.jsonl"),
		LogLevel:                   "info",
		PageBudgetThreshold:        20,
		PageBudgetHead:             10,
		PageBudgetTail:             10,
		WeaviateHost:               s.WeaviateAddr,
		WeaviateScheme:             "http",
		IndexClass:                 "NatjusDocument",
		IndexBatchSize:             1,
		IndexBackoff:               time.Second,
		IndexMaxRetries:            2,
		IndexRequestTimeout:        30 * time.Second,
		NSQDHost:                   s.NSQDAddr,
		ServerPort:                 8081,
		BootstrapRetryAttempts:     5,
		BootstrapRetryDelaySeconds: 1,
	}

	if s.pgContainer != nil {
		host, err := s.pgContainer.Host(ctx)
		require.NoError(s.T, err)
		port, err := s.pgContainer.MappedPort(ctx, "5432/tcp")
		require.NoError(s.T, err)
		cfg.FailureLedgerEnabled = true
		cfg.DBHost = host
		cfg.DBPort = port.Int()
		cfg.DBUser = "test"
		cfg.DBPass = "test"
		cfg.DBName = "natjus_test"
	}
	if s.nsqContainer != nil {
		cfg.NSQEnabled = true
	}
	return cfg
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.NSQ != nil {
		s.NSQ.Stop()
	}
	if s.DB != nil {
		s.DB.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.weaviateContainer != nil {
		s.weaviateContainer.Terminate(ctx)
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}
