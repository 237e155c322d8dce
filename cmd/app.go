package cmd

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	archivegcs "github.com/statstream/papercrawler/internal/archive/gcs"
	archivelocal "github.com/statstream/papercrawler/internal/archive/local"
	archivememory "github.com/statstream/papercrawler/internal/archive/memory"
	"github.com/statstream/papercrawler/internal/config"
	"github.com/statstream/papercrawler/internal/fallback"
	"github.com/statstream/papercrawler/internal/fetch"
	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/logging"
	publisherpubsub "github.com/statstream/papercrawler/internal/publisher/pubsub"
	"github.com/statstream/papercrawler/internal/runner"
	storememory "github.com/statstream/papercrawler/internal/store/memory"
	storepostgres "github.com/statstream/papercrawler/internal/store/postgres"
	"github.com/statstream/papercrawler/internal/syncer"
	"github.com/statstream/papercrawler/internal/topics"
)

// application holds the wired service components shared by the commands.
type application struct {
	cfg    config.Config
	log    *zap.Logger
	store  ingest.PaperStore
	runner *runner.Runner

	closers []func()
}

// Close releases held resources in reverse construction order.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfgPath string) (*application, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &application{cfg: cfg, log: log}
	app.closers = append(app.closers, func() { _ = log.Sync() })

	store, err := buildStore(ctx, cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.store = store

	archive, err := buildArchive(ctx, cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	publisher, err := buildPublisher(ctx, cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	factory := &fallback.Factory{
		HTTP: fetch.Config{
			Timeout:     cfg.HTTP.Timeout(),
			Delay:       cfg.HTTP.Delay(),
			MaxRetries:  cfg.HTTP.MaxRetries,
			BackoffBase: cfg.HTTP.BackoffInitial(),
			BackoffMax:  cfg.HTTP.BackoffMax(),
		},
		Archive: archive,
		Tagger:  topics.NewTagger(cfg.Topics),
		Log:     log.Named("ingest"),
	}

	app.runner = runner.New(
		factory,
		syncer.NewEngine(store, log.Named("syncer")),
		publisher,
		runner.Config{
			Concurrency:   cfg.Ingest.Concurrency,
			SourceTimeout: cfg.Ingest.SourceTimeout(),
			SummaryTopic:  cfg.Ingest.SummaryTopic,
		},
		log.Named("runner"),
	)
	return app, nil
}

func buildStore(ctx context.Context, cfg config.Config, app *application) (ingest.PaperStore, error) {
	if cfg.DB.DSN == "" {
		app.log.Info("no database configured, using in-memory store")
		return storememory.NewPaperStore(), nil
	}
	store, err := storepostgres.NewPaperStore(ctx, storepostgres.PaperStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres store: %w", err)
	}
	app.closers = append(app.closers, store.Close)
	return store, nil
}

func buildArchive(ctx context.Context, cfg config.Config, app *application) (ingest.Archive, error) {
	switch cfg.Archive.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return archivememory.New(), nil
	case "local":
		archive, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return archive, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		archive, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.Bucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return archive, nil
	default:
		return nil, fmt.Errorf("archive backend %q is not supported", cfg.Archive.Backend)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, app *application) (ingest.Publisher, error) {
	if cfg.Ingest.SummaryTopic == "" {
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	app.closers = append(app.closers, func() { _ = client.Close() })
	topic := client.Topic(cfg.PubSub.TopicName)
	app.closers = append(app.closers, topic.Stop)
	return publisherpubsub.New(topic), nil
}
