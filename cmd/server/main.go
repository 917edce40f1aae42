package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/brandwacht/internal/alerts"
	"github.com/sudo-init-do/brandwacht/internal/config"
	"github.com/sudo-init-do/brandwacht/internal/logging"
	"github.com/sudo-init-do/brandwacht/internal/marketplace"
	"github.com/sudo-init-do/brandwacht/internal/metrics"
	"github.com/sudo-init-do/brandwacht/internal/server"
	"github.com/sudo-init-do/brandwacht/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var withWorker bool
	serve := func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context(), withWorker)
	}

	root := &cobra.Command{
		Use:          "brandwacht",
		Short:        "Fire-watch request intake and agent claim API",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.Flags().BoolVar(&withWorker, "with-worker", false, "consume the notification queue in-process")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  serve,
	}
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "consume the notification queue in-process")

	root.AddCommand(serveCmd, migrateCmd(), workerCmd())
	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the request schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			_, closeStore, err := store.Open(cmd.Context(), env.cfg, env.logger)
			if err != nil {
				return err
			}
			closeStore()
			env.logger.Info("schema ready", zap.String("driver", env.cfg.StoreDriver))
			return nil
		},
	}
}

func workerCmd() *cobra.Command {
	var (
		concurrency int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume queued notifications from Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			reg, m := newMetrics()
			// The worker delivers directly; it never re-enqueues.
			env.cfg.NotifyMode = config.NotifyInline
			d, _, closeQueue, err := newDispatcher(env.cfg, env.logger, m)
			if err != nil {
				return err
			}
			defer closeQueue()

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return alerts.RunWorker(gctx, redisOpt(env.cfg), d, concurrency) })
			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					return srv.Close()
				})
			}
			err = g.Wait()
			d.Wait()
			return err
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "parallel deliveries")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address, e.g. :9090")
	return cmd
}

type environment struct {
	cfg    config.Config
	logger *zap.Logger
}

func bootstrap() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger}, nil
}

func runServe(ctx context.Context, withWorker bool) error {
	env, err := bootstrap()
	if err != nil {
		return err
	}
	defer env.logger.Sync()
	cfg, logger := env.cfg, env.logger

	st, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg, m := newMetrics()
	d, resolver, closeQueue, err := newDispatcher(cfg, logger, m)
	if err != nil {
		return err
	}
	defer closeQueue()

	e, err := server.New(server.Options{
		Config:   cfg,
		Store:    st,
		Notifier: d,
		Resolver: resolver,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("port", cfg.Port), zap.String("notify_mode", cfg.NotifyMode))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if withWorker {
		if cfg.NotifyMode != config.NotifyQueue {
			logger.Warn("--with-worker ignored, NOTIFY_MODE is not queue")
		} else {
			g.Go(func() error { return alerts.RunWorker(gctx, redisOpt(cfg), d, 0) })
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	// Let in-flight notifications finish before the store and queue close.
	d.Wait()
	return err
}

func newMetrics() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.New(reg)
}

// newDispatcher picks the chat transport, the optional mailer and the
// optional queue from cfg.
func newDispatcher(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*alerts.Dispatcher, marketplace.ActorResolver, func(), error) {
	var (
		transport alerts.Transport
		resolver  marketplace.ActorResolver
	)
	if cfg.SlackToken != "" {
		slack := alerts.NewSlackClient(cfg.SlackToken, cfg.SlackAPIURL, nil)
		transport, resolver = slack, slack
	} else {
		logger.Warn("SLACK_BOT_TOKEN not set, notifications are only logged")
		lt := alerts.NewLogTransport(logger.Named("slack"))
		transport, resolver = lt, lt
	}

	opts := []alerts.Option{alerts.WithMetrics(m)}

	smtpCfg := alerts.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		ReplyTo:  cfg.MailReplyTo,
	}
	if smtpCfg.Enabled() {
		mailer, err := alerts.NewSMTPMailer(smtpCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, alerts.WithMailer(mailer))
	}

	closeQueue := func() {}
	if cfg.NotifyMode == config.NotifyQueue {
		client := asynq.NewClient(redisOpt(cfg))
		opts = append(opts, alerts.WithQueue(client))
		closeQueue = func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing queue client", zap.Error(err))
			}
		}
	}

	d := alerts.NewDispatcher(transport, cfg.SlackChannel, cfg.AppURL, cfg.NotifyTimeout, logger.Named("notify"), opts...)
	return d, resolver, closeQueue, nil
}

func redisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr}
}
