// Command notifier runs the announcement ingestion and notification service:
// a daily scheduled scrape of the IGNOU announcements page, dedup against
// the record store, and email fan-out to subscribers, plus an HTTP surface
// for manual triggers and recipient management.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
	"github.com/opennotify/autonotifier/internal/api"
	systemclock "github.com/opennotify/autonotifier/internal/clock/system"
	"github.com/opennotify/autonotifier/internal/config"
	"github.com/opennotify/autonotifier/internal/dedup"
	"github.com/opennotify/autonotifier/internal/extract"
	collyfetcher "github.com/opennotify/autonotifier/internal/fetcher/colly"
	"github.com/opennotify/autonotifier/internal/hash/sha256"
	uuidgen "github.com/opennotify/autonotifier/internal/id/uuid"
	"github.com/opennotify/autonotifier/internal/logging"
	"github.com/opennotify/autonotifier/internal/mailer"
	"github.com/opennotify/autonotifier/internal/metrics"
	"github.com/opennotify/autonotifier/internal/notify"
	"github.com/opennotify/autonotifier/internal/pipeline"
	pubsubpub "github.com/opennotify/autonotifier/internal/publisher/pubsub"
	"github.com/opennotify/autonotifier/internal/schedule"
	gcssnap "github.com/opennotify/autonotifier/internal/snapshot/gcs"
	localsnap "github.com/opennotify/autonotifier/internal/snapshot/local"
	"github.com/opennotify/autonotifier/internal/store/memory"
	"github.com/opennotify/autonotifier/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; env vars always apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clock := systemclock.New()
	hasher := sha256.New()
	idGen := uuidgen.New()

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		records    announce.RecordStore
		recipients announce.RecipientStore
		runs       announce.RunStore
		ready      api.ReadyChecker
		pool       *pgxpool.Pool
	)
	if cfg.DB.DSN != "" {
		var err error
		pool, err = postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if records, err = postgres.NewRecordStore(pool, hasher); err != nil {
			return err
		}
		if recipients, err = postgres.NewRecipientStore(pool); err != nil {
			return err
		}
		if runs, err = postgres.NewRunStore(pool); err != nil {
			return err
		}
		ready = func(ctx context.Context) error { return pool.Ping(ctx) }
		logger.Info("using postgres stores")
	} else {
		records = memory.NewRecordStore()
		recipients = memory.NewRecipientStore()
		runs = memory.NewRunStore()
		logger.Warn("db.dsn not set, using in-memory stores; data will not survive restarts")
	}

	snapshots, err := buildSnapshotStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	publisher, pubsubClient, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pubsubClient != nil {
		defer pubsubClient.Close() //nolint:errcheck
	}

	sender, err := buildSender(cfg, logger)
	if err != nil {
		return err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.SourceTimeout(),
	})
	extractor := extract.New(announce.SourceIGNOU, clock, logger.Named("extract"))
	saver := dedup.New(records, 0, logger.Named("dedup"))

	runner := pipeline.New(
		fetcher, extractor, saver, runs, snapshots, publisher, clock, idGen,
		pipeline.Config{
			SourceURL:      cfg.Source.URL,
			SnapshotPrefix: cfg.Snapshot.Prefix,
			EventTopic:     cfg.PubSub.Topic,
		},
		logger.Named("pipeline"),
	)

	notifier := notify.New(sender, clock, notify.Config{
		AdminEmail:  cfg.Mail.AdminEmail,
		MaxAttempts: cfg.Mail.MaxAttempts,
	}, logger.Named("notify"))

	scheduler, err := schedule.New(runner, notifier, recipients, schedule.Config{
		Spec:       cfg.Cron.Spec,
		Timezone:   cfg.Cron.Timezone,
		Enabled:    cfg.Cron.Enabled,
		RunTimeout: cfg.RunTimeout(),
	}, logger.Named("schedule"))
	if err != nil {
		return err
	}

	server := api.New(runner, scheduler, recipients, runs, ready, api.Config{
		Development: cfg.Logging.Development,
		RunTimeout:  cfg.RunTimeout(),
	}, logger.Named("api"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
	logger.Info("shutdown complete")
	return nil
}

// buildSnapshotStore returns nil when no archival backend is configured;
// snapshots are optional.
func buildSnapshotStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (announce.SnapshotStore, error) {
	switch {
	case cfg.Snapshot.GCSBucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		logger.Info("snapshots stored in gcs", zap.String("bucket", cfg.Snapshot.GCSBucket))
		return gcssnap.New(client, gcssnap.Config{Bucket: cfg.Snapshot.GCSBucket})
	case cfg.Snapshot.Dir != "":
		store, err := localsnap.New(localsnap.Config{BaseDir: cfg.Snapshot.Dir})
		if err != nil {
			return nil, fmt.Errorf("local snapshot store: %w", err)
		}
		logger.Info("snapshots stored locally", zap.String("dir", cfg.Snapshot.Dir))
		return store, nil
	default:
		logger.Info("snapshot archival disabled")
		return nil, nil
	}
}

// buildPublisher returns nil when event publishing is not configured.
func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (announce.Publisher, *pubsub.Client, error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
		logger.Info("event publishing disabled")
		return nil, nil, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	logger.Info("publishing new-announcement events",
		zap.String("project", cfg.PubSub.ProjectID), zap.String("topic", cfg.PubSub.Topic))
	return pubsubpub.New(client), client, nil
}

// buildSender picks SMTP when configured, otherwise a log-only sender so
// development environments never need mail credentials.
func buildSender(cfg config.Config, logger *zap.Logger) (announce.Sender, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn("smtp.host not set, emails will be logged instead of sent")
		return mailer.NewLogSender(logger.Named("mailer")), nil
	}
	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		ReplyTo:  cfg.SMTP.ReplyTo,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp sender: %w", err)
	}
	return sender, nil
}
