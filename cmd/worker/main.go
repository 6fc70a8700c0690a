// Command helmkit-worker analyzes notations received over Kafka.
//
// The worker consumes analysis.requested envelopes, runs the full analysis
// for each, and publishes analysis.completed envelopes. Messages that keep
// failing after the configured retries go to the dead letter topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/helmkit/internal/application/batch"
	"github.com/turtacn/helmkit/internal/bootstrap"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/database/redis"
	"github.com/turtacn/helmkit/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/helmkit/internal/interfaces/http"
	"github.com/turtacn/helmkit/internal/interfaces/http/handlers"
	"github.com/turtacn/helmkit/internal/interfaces/http/middleware"
	"github.com/turtacn/helmkit/internal/version"
)

const defaultHealthAddr = ":8081"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: HELMKIT_* environment)")
	healthAddr := flag.String("health-addr", defaultHealthAddr, "listen address of the health and metrics endpoint")
	concurrency := flag.Int("concurrency", 0, "messages processed in parallel (overrides messaging.kafka.concurrency)")
	ensureTopics := flag.Bool("ensure-topics", true, "create the analysis topics when missing")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmkit-worker: %v\n", err)
		os.Exit(1)
	}
	if *concurrency > 0 {
		cfg.Messaging.Kafka.Concurrency = *concurrency
	}
	if cfg.Log.Service == "" {
		cfg.Log.Service = "helmkit-worker"
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmkit-worker: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *healthAddr, *ensureTopics); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger, healthAddr string, ensureTopics bool) error {
	kc := cfg.Messaging.Kafka
	logger.Info("starting helmkit worker",
		logging.String("version", version.String()),
		logging.Strings("brokers", kc.Brokers),
		logging.String("request_topic", kc.RequestTopic),
		logging.Int("concurrency", kc.Concurrency))

	infra, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Component: "worker", NeedRedis: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Warn("failed to close infrastructure", logging.Err(err))
		}
	}()

	if err := prepareTopics(ctx, kc, ensureTopics, logger); err != nil {
		return err
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: kc.Brokers, Acks: "all"}, logger.Named("producer"))
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warn("failed to close producer", logging.Err(err))
		}
	}()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:     kc.Brokers,
		GroupID:     kc.GroupID,
		Topics:      []string{kc.RequestTopic},
		Concurrency: kc.Concurrency,
		Retry: kafka.RetryConfig{
			MaxRetries:      kc.MaxRetries,
			RetryBackoff:    kc.RetryBackoff,
			DeadLetterTopic: kc.DLQTopic,
		},
	}, logger.Named("consumer"),
		kafka.WithDeadLetter(producer),
		kafka.WithConsumerMetrics(infra.Metrics),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Warn("failed to close consumer", logging.Err(err))
		}
	}()

	worker := batch.NewAnalysisWorker(infra.Notation, producer, logger.Named("analysis"),
		batch.WithJobLock(redis.NewJobLock(infra.Redis, "helmkit:worker"), 0),
		batch.WithResultTopic(kc.ResultTopic),
	)
	consumer.Subscribe(kc.RequestTopic, worker.Handle)

	healthCfg := cfg.Server.HTTP
	healthCfg.Addr = healthAddr
	healthSrv := httpserver.NewServer(healthCfg, healthRouter(cfg, infra, consumer, logger), logger.Named("health"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthSrv.Start(gctx) })
	g.Go(func() error { return consumer.Run(gctx) })
	err = g.Wait()

	cs, ps := consumer.Stats(), producer.Stats()
	logger.Info("worker totals",
		logging.Int64("consumed", cs.Consumed),
		logging.Int64("processed", cs.Processed),
		logging.Int64("failed", cs.Failed),
		logging.Int64("retried", cs.Retried),
		logging.Int64("dead_lettered", cs.DeadLettered),
		logging.Int64("published", ps.MessagesSent))
	return err
}

// prepareTopics creates the analysis topics when ensure is set and fails when
// the request topic is still absent. A missing result or dead letter topic is
// only logged, since brokers may auto-create it on first publish.
func prepareTopics(ctx context.Context, kc config.KafkaConfig, ensure bool, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(kc.Brokers, logger.Named("topics"))
	if err != nil {
		return err
	}
	defer func() { _ = tm.Close() }()
	if ensure {
		if err := tm.EnsureTopics(ctx, kafka.AnalysisTopics(kc.RequestTopic, kc.ResultTopic, kc.DLQTopic)); err != nil {
			return err
		}
	}
	missing, err := tm.MissingTopics(ctx, kc.RequestTopic, kc.ResultTopic, kc.DLQTopic)
	if err != nil {
		return err
	}
	for _, name := range missing {
		if name == kc.RequestTopic {
			return fmt.Errorf("request topic %q does not exist; run with --ensure-topics", name)
		}
		logger.Warn("analysis topic missing", logging.String("topic", name))
	}
	return nil
}

// healthRouter serves only probes and metrics.
func healthRouter(cfg *config.Config, infra *bootstrap.Infrastructure, consumer *kafka.Consumer, logger logging.Logger) http.Handler {
	checks := infra.HealthChecks()
	checkers := make([]handlers.HealthChecker, 0, len(checks)+1)
	for _, c := range checks {
		checkers = append(checkers, c)
	}
	checkers = append(checkers, consumerCheck{consumer})

	return httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version.Version, checkers...),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger.Named("health"),
		Metrics:          infra.Metrics,
		MetricsCollector: infra.Collector,
		MetricsPath:      cfg.Metrics.Path,
	})
}

type consumerCheck struct{ c *kafka.Consumer }

func (consumerCheck) Name() string { return "kafka_consumer" }

func (k consumerCheck) Check(context.Context) error {
	if !k.c.Running() {
		return fmt.Errorf("consumer is not running")
	}
	return nil
}
