package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ddrelay/internal/chunk"
	"ddrelay/internal/config"
	"ddrelay/internal/index"
	"ddrelay/internal/publisher"
	"ddrelay/internal/rehost"
	"ddrelay/internal/service"
	"ddrelay/internal/source/forum"
	"ddrelay/internal/storage/jsonfile"
	"ddrelay/internal/storage/postgres"
	"ddrelay/internal/transcode"
)

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// acquireLock takes the single-instance lock guarding the state.
func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another instance holds %s", path)
	}
	return lock, nil
}

// openStores builds the state stores for the configured driver. The
// returned close func releases the database handle, if any.
func openStores(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (service.Stores, func() error, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
		if err != nil {
			return service.Stores{}, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return service.Stores{}, nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

		return service.Stores{
			Checked:   postgres.NewCheckedStore(db),
			Rehosted:  postgres.NewRehostStore(db),
			Archive:   postgres.NewArchiveStore(db),
			TxManager: postgres.NewTransactionManager(db),
		}, db.Close, nil

	default:
		logger.Info("using json state files", "dir", cfg.Dir)
		return service.Stores{
			Checked:   jsonfile.NewCheckedStore(cfg.Dir),
			Rehosted:  jsonfile.NewRehostStore(cfg.Dir),
			Archive:   jsonfile.NewArchiveStore(cfg.Dir),
			TxManager: jsonfile.NewTransactionManager(),
		}, func() error { return nil }, nil
	}
}

func newSource(cfg config.ForumConfig, logger *slog.Logger) *forum.Source {
	return forum.New(forum.Config{
		FrontPageURL:   cfg.FrontPageURL,
		ArticlePrefix:  cfg.ArticlePrefix,
		Timeout:        cfg.Timeout,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}, logger)
}

func newRehostCache(cfg config.ImgurConfig, logger *slog.Logger) *rehost.Cache {
	if cfg.ClientID == "" {
		logger.Warn("imgur client id is empty, image uploads will fail")
	}
	uploader := rehost.NewImgur(rehost.ImgurConfig{
		ClientID: cfg.ClientID,
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout,
	})
	return rehost.NewCache(uploader, cfg.Timeout, logger)
}

func newTranscoder(cfg *config.Config, rehoster transcode.Rehoster, logger *slog.Logger) (*transcode.Transcoder, error) {
	return transcode.New(transcode.Config{
		AssetHostPattern: cfg.Forum.AssetHostPattern,
		SmileyClass:      cfg.Forum.SmileyClass,
		Signature:        cfg.Transcode.Signature,
	}, rehoster, logger)
}

// application owns everything a run or once command needs.
type application struct {
	pipeline *service.Pipeline
	closers  []func() error
}

func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}
	if err := app.init(ctx, cfg, logger); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) init(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lock, err := acquireLock(cfg.Storage.LockFile)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, lock.Unlock)

	stores, closeStores, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeStores)

	var poster service.Poster
	if cfg.Poster.Enabled {
		rmq, err := publisher.NewRabbitMQ(publisher.Config{
			URL:          cfg.Poster.RabbitMQ.URL,
			Exchange:     cfg.Poster.RabbitMQ.Exchange,
			RoutingKey:   cfg.Poster.RabbitMQ.RoutingKey,
			QueueName:    cfg.Poster.RabbitMQ.QueueName,
			ReplyTimeout: cfg.Poster.RabbitMQ.ReplyTimeout,
		}, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rmq.Close)
		poster = rmq
	} else {
		logger.Warn("poster disabled, running dry")
	}

	cache := newRehostCache(cfg.Imgur, logger)
	transcoder, err := newTranscoder(cfg, cache, logger)
	if err != nil {
		return err
	}

	a.pipeline = service.NewPipeline(
		newSource(cfg.Forum, logger),
		transcoder,
		chunk.New(cfg.Transcode.MessageLimit),
		index.New(),
		cache,
		stores,
		poster,
		service.PipelineConfig{
			Targets:    cfg.Subreddits,
			Expiration: cfg.Sync.Expiration,
			Resubmit:   cfg.Poster.Resubmit,
		},
		logger,
	)

	return a.pipeline.Load(ctx)
}
