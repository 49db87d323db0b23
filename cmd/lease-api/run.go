package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/propertyhub/lease-planner/internal/api_server"
	"github.com/propertyhub/lease-planner/internal/config"
	"github.com/propertyhub/lease-planner/internal/events"
	"github.com/propertyhub/lease-planner/internal/scrape/archive"
	"github.com/propertyhub/lease-planner/internal/scrape/backend"
	"github.com/propertyhub/lease-planner/internal/scrape/runner"
	"github.com/propertyhub/lease-planner/internal/service"
	"github.com/propertyhub/lease-planner/internal/store"
	"github.com/propertyhub/lease-planner/pkg/secrets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the lease planner api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		if err := migrateOnStart(ctx, s, cfg.Service.MigrationFolder); err != nil {
			return fmt.Errorf("running initial migration: %w", err)
		}

		producer := events.NewEventProducer(events.NewStdoutWriter())
		defer func() {
			if err := producer.Close(); err != nil {
				zap.S().Errorw("failed to flush events", "error", err)
			}
		}()

		box, err := newSecretBox(cfg)
		if err != nil {
			return fmt.Errorf("creating credentials key: %w", err)
		}

		var scrapeRunner *runner.Runner
		if cfg.Scrape.RunnerEnabled {
			if scrapeRunner, err = newRunner(cfg, service.NewScrapeService(s, producer).WithSecrets(box)); err != nil {
				return fmt.Errorf("creating scrape runner: %w", err)
			}
		}

		apiListener, err := newListener(cfg.Service.Address)
		if err != nil {
			return fmt.Errorf("creating listener: %w", err)
		}
		metricsListener, err := newListener(cfg.Service.MetricsAddress)
		if err != nil {
			_ = apiListener.Close()
			return fmt.Errorf("creating metrics listener: %w", err)
		}

		// the deferred closes of the store and the producer run after every
		// component below has returned
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer cancel()
			server := apiserver.New(cfg, s, producer, apiListener).WithSecrets(box)
			if err := server.Run(gctx); err != nil {
				return fmt.Errorf("running api server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			defer cancel()
			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, metricsListener, s)
			if err := metricsServer.Run(gctx); err != nil {
				return fmt.Errorf("running metrics server: %w", err)
			}
			return nil
		})

		if scrapeRunner != nil {
			g.Go(func() error {
				return scrapeRunner.Run(gctx)
			})
		}

		return g.Wait()
	},
}

func newSecretBox(cfg *config.Config) (*secrets.Box, error) {
	if cfg.Scrape.CredentialsKey == "" {
		zap.S().Warn("no credentials key configured, jobs left pending by this process cannot be resumed after a restart")
		return secrets.NewEphemeralBox(), nil
	}
	return secrets.NewBox(cfg.Scrape.CredentialsKey)
}

func newRunner(cfg *config.Config, source runner.JobSource) (*runner.Runner, error) {
	client := backend.NewClient(
		cfg.Scrape.BackendURL,
		backend.WithToken(cfg.Scrape.BackendToken),
		backend.WithTimeout(cfg.Scrape.BackendTimeout),
		backend.WithHostLimiter(backend.NewHostLimiter(cfg.Scrape.RatePerSecond, cfg.Scrape.RateBurst)),
	)

	opts := []runner.RunnerOpts{
		runner.WithInterval(cfg.Scrape.PollInterval),
		runner.WithWorkers(cfg.Scrape.Workers),
		runner.WithJobTimeout(cfg.Scrape.JobTimeout),
	}

	if cfg.Storage.Endpoint != "" {
		a, err := archive.NewMinioArchive(
			archive.WithEndpoint(cfg.Storage.Endpoint),
			archive.WithBucket(cfg.Storage.Bucket),
			archive.WithAccessKey(cfg.Storage.AccessKey),
			archive.WithSecretKey(cfg.Storage.SecretKey),
			archive.WithRegion(cfg.Storage.Region),
			archive.WithSSL(cfg.Storage.UseSSL),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, runner.WithArchive(a))
	}

	return runner.New(source, client, opts...), nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
