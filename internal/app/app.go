package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nsqio/go-nsq"

	"natjus/features/failure"
	"natjus/features/stats"
	"natjus/internal/config"
	"natjus/internal/indexing"
	"natjus/internal/middleware"
	"natjus/internal/results"
	"natjus/internal/worker"
)

type App struct {
	Handler       http.Handler
	Sink          *indexing.Sink
	Failures      *failure.Service
	IndexConsumer *worker.IndexConsumer

	cfg *config.Config
}

// NewSink builds the indexing sink from configuration. rec may be nil.
func NewSink(cfg *config.Config, w indexing.Writer, rec indexing.Recorder) *indexing.Sink {
	sinkCfg := indexing.SinkConfig{
		BatchSize:  cfg.IndexBatchSize,
		MaxRetries: cfg.IndexMaxRetries,
		Backoff:    cfg.IndexBackoff,
		Timeout:    cfg.IndexRequestTimeout,
	}
	if cfg.IndexAttachPDF {
		sinkCfg.AttachDir = cfg.InputDir
	}
	sink := indexing.NewSink(w, sinkCfg)
	if rec != nil {
		sink = sink.WithRecorder(rec)
	}
	return sink
}

// NewFailureService returns nil when the ledger is not connected.
func NewFailureService(deps *Dependencies, logger *slog.Logger) *failure.Service {
	if deps == nil || deps.DB == nil {
		return nil
	}
	var pub failure.EventPublisher
	if deps.NSQProducer != nil {
		pub = deps.NSQProducer
	}
	return failure.NewService(failure.NewPostgresRepo(deps.DB), pub, logger)
}

func New(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps == nil {
		deps = &Dependencies{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{cfg: cfg}

	// Optional collaborators stay nil interfaces when absent.
	var (
		recorder    indexing.Recorder
		failureRepo stats.FailureRepo
		indexStore  stats.IndexStore
	)

	a.Failures = NewFailureService(deps, logger)
	if a.Failures != nil {
		recorder = a.Failures
		failureRepo = a.Failures
	}

	if deps.IndexStore != nil {
		indexStore = deps.IndexStore
		a.Sink = NewSink(cfg, deps.IndexStore, recorder)
		a.IndexConsumer = worker.NewIndexConsumer(a.Sink)
	}

	statsHandler := stats.NewHandler(stats.FileSource{
		InputDir:       cfg.InputDir,
		CheckpointPath: cfg.CheckpointPath,
		Results: results.Paths{
			JSON: cfg.ResultsJSONPath,
		},
	}, failureRepo, indexStore)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	if a.Failures != nil {
		failureHandler := failure.NewHandler(a.Failures)
		mux.Handle("GET /failures", middleware.CorrelationID(enableCORS(failureHandler.List)))
		mux.Handle("POST /failures/{id}/retry", middleware.CorrelationID(enableCORS(failureHandler.Retry)))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	a.Handler = mux
	logger.Info("app initialized", "ledger", a.Failures != nil, "index", a.Sink != nil)
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunConsumer handles index submissions from NSQ, one message at a time,
// until ctx is done.
func (a *App) RunConsumer(ctx context.Context) error {
	if a.IndexConsumer == nil {
		return errors.New("index consumer requires a connected index")
	}

	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = 1
	consumer, err := nsq.NewConsumer(config.TopicIndexSubmit, config.ChannelIndexer, nsqCfg)
	if err != nil {
		return fmt.Errorf("create nsq consumer: %w", err)
	}
	consumer.SetLogger(nsqLogger{}, nsq.LogLevelWarning)
	consumer.AddHandler(a.IndexConsumer)

	if a.cfg.NSQLookupd != "" {
		err = consumer.ConnectToNSQLookupd(a.cfg.NSQLookupd)
	} else {
		err = consumer.ConnectToNSQD(a.cfg.NSQDHost)
	}
	if err != nil {
		consumer.Stop()
		return fmt.Errorf("connect nsq consumer: %w", err)
	}
	slog.Info("index consumer connected", "topic", config.TopicIndexSubmit, "channel", config.ChannelIndexer)

	<-ctx.Done()
	consumer.Stop()
	<-consumer.StopChan
	return nil
}
