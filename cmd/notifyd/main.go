package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/api"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/ingest"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	redisconn "github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/storage/postgres"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"notifyd"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// StorageDriver selects the record store: "memory" or "postgres".
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	// QueueDriver selects the job store: "memory" or "redis".
	QueueDriver string `env:"QUEUE_DRIVER" envDefault:"memory"`

	// Provider selection per channel. "dev" writes messages to
	// DevOutboxDir instead of calling a real provider.
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"dev"`
	SMSProvider   string `env:"SMS_PROVIDER" envDefault:"dev"`
	PushProvider  string `env:"PUSH_PROVIDER" envDefault:"dev"`
	DevOutboxDir  string `env:"DEV_OUTBOX_DIR" envDefault:"./outbox"`

	WebhookAPIKey string `env:"WEBHOOK_API_KEY"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
	log.Info("service stopped")
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	// SIGTERM must cancel the whole group, not just the HTTP server;
	// the workers block on this context.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var qcfg queue.Config
	config.MustLoad(&qcfg)

	var healthchecks []func(context.Context) error

	// Record stores.
	var (
		records    notification.Storage
		history    notification.HistoryStorage
		prefsStore preference.Storage
		tplStore   template.Storage
	)
	switch cfg.StorageDriver {
	case "postgres":
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)

		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			return err
		}

		if records, err = postgres.NewNotificationStorage(pool); err != nil {
			return err
		}
		if history, err = postgres.NewHistoryStorage(pool); err != nil {
			return err
		}
		if prefsStore, err = postgres.NewPreferenceStorage(pool); err != nil {
			return err
		}
		if tplStore, err = postgres.NewTemplateStorage(pool); err != nil {
			return err
		}
		healthchecks = append(healthchecks, pg.Healthcheck(pool))
	default:
		ms := notification.NewMemoryStorage()
		records = ms
		history = ms
		prefsStore = preference.NewMemoryStorage()
		tplStore = template.NewMemoryStorage()
	}

	// Job store.
	var repo queue.Repository
	switch cfg.QueueDriver {
	case "redis":
		var redisCfg redisconn.Config
		config.MustLoad(&redisCfg)

		client, err := redisconn.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()

		if repo, err = queue.NewRedisStorage(client); err != nil {
			return err
		}
		healthchecks = append(healthchecks, redisconn.Healthcheck(client))
	default:
		ms := queue.NewMemoryStorage(
			queue.WithCompletedRetention(qcfg.CompletedMaxCount, qcfg.CompletedMaxAge),
			queue.WithFailedRetention(qcfg.FailedMaxCount),
		)
		defer ms.Close()
		repo = ms
	}

	gateways, err := buildGateways(ctx, cfg)
	if err != nil {
		return err
	}

	resolver, err := preference.NewResolver(prefsStore)
	if err != nil {
		return err
	}
	renderer, err := template.NewRenderer(tplStore)
	if err != nil {
		return err
	}
	queues, err := dispatch.NewQueueManager(repo)
	if err != nil {
		return err
	}
	failover, err := dispatch.NewFailoverCoordinator(records, queues,
		dispatch.WithFailoverLogger(log))
	if err != nil {
		return err
	}

	backoff := queue.ExponentialBackoff{Base: qcfg.BackoffBase, Max: qcfg.BackoffMax}
	processor, err := dispatch.NewProcessor(records, history, resolver, renderer, gateways, failover,
		dispatch.WithBackoffStrategy(backoff),
		dispatch.WithProcessorLogger(log),
	)
	if err != nil {
		return err
	}
	submitter, err := dispatch.NewSubmitter(records, history, resolver, queues,
		dispatch.WithSubmitterLogger(log))
	if err != nil {
		return err
	}
	normalizer, err := ingest.NewNormalizer(records, history,
		ingest.WithNormalizerLogger(log))
	if err != nil {
		return err
	}

	concurrency := map[notification.Channel]int{
		notification.ChannelEmail: qcfg.EmailConcurrency,
		notification.ChannelSMS:   qcfg.SMSConcurrency,
		notification.ChannelPush:  qcfg.PushConcurrency,
	}
	workers := make([]*queue.Worker, 0, len(concurrency))
	for ch, n := range concurrency {
		w, err := queue.NewWorker(repo, string(ch), processor,
			queue.WithPullInterval(qcfg.PullInterval),
			queue.WithLockTimeout(qcfg.LockTimeout),
			queue.WithMaxConcurrency(n),
			queue.WithBackoff(backoff),
			queue.WithWorkerLogger(log.With(logger.Queue(string(ch)))),
		)
		if err != nil {
			return err
		}
		workers = append(workers, w)
	}

	router := api.NewRouter(api.Deps{
		Submitter:     submitter,
		Records:       records,
		History:       history,
		Normalizer:    normalizer,
		Jobs:          repo,
		WebhookAPIKey: cfg.WebhookAPIKey,
		Healthchecks:  healthchecks,
		Logger:        log,
	})

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)
	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("http server listening", slog.String("addr", httpCfg.Addr))
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(w.Run(gctx))
	}
	g.Go(func() error {
		return srv.Run(gctx, router)
	})
	return g.Wait()
}

// buildGateways assembles the per-channel provider registry. Channels
// configured with "dev" use the file-based outbox gateway, which keeps
// the full pipeline runnable without provider credentials.
func buildGateways(ctx context.Context, cfg appConfig) (provider.Registry, error) {
	reg := provider.Registry{}

	switch cfg.EmailProvider {
	case "postmark":
		var pmCfg provider.PostmarkConfig
		config.MustLoad(&pmCfg)
		gw, err := provider.NewPostmarkGateway(pmCfg)
		if err != nil {
			return nil, err
		}
		reg[notification.ChannelEmail] = gw
	default:
		reg[notification.ChannelEmail] = provider.NewDevGateway("dev", cfg.DevOutboxDir)
	}

	needSNS := cfg.SMSProvider == "sns" || cfg.PushProvider == "sns"
	if needSNS {
		var snsCfg provider.SNSConfig
		config.MustLoad(&snsCfg)
		client, err := provider.NewSNSClient(ctx, snsCfg)
		if err != nil {
			return nil, err
		}
		if cfg.SMSProvider == "sns" {
			gw, err := provider.NewSNSSMSGateway(client)
			if err != nil {
				return nil, err
			}
			reg[notification.ChannelSMS] = gw
		}
		if cfg.PushProvider == "sns" {
			gw, err := provider.NewSNSPushGateway(client)
			if err != nil {
				return nil, err
			}
			reg[notification.ChannelPush] = gw
		}
	}
	if _, ok := reg[notification.ChannelSMS]; !ok {
		reg[notification.ChannelSMS] = provider.NewDevGateway("dev", cfg.DevOutboxDir)
	}
	if _, ok := reg[notification.ChannelPush]; !ok {
		reg[notification.ChannelPush] = provider.NewDevGateway("dev", cfg.DevOutboxDir)
	}
	return reg, nil
}
