package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	saramaadapter "github.com/vmyroslav/ordertrain/adapter/sarama"
	"github.com/vmyroslav/ordertrain/config"
	"github.com/vmyroslav/ordertrain/fault"
	"github.com/vmyroslav/ordertrain/httpapi"
	"github.com/vmyroslav/ordertrain/pipeline"
	"github.com/vmyroslav/ordertrain/pkg/logging"
	"github.com/vmyroslav/ordertrain/resilience"
	"github.com/vmyroslav/ordertrain/stats"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.NewConsumerConfig()
	if err != nil {
		panic(fmt.Errorf("could not load config: %w", err))
	}

	logger := logging.New(logging.Config{Level: cfg.Logger.Level})
	defer func() { _ = logger.Sync() }()

	sarama.Logger = logging.NewSaramaAdapter(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	saramaCfg, err := saramaadapter.NewSaramaConfig(cfg.Kafka)
	if err != nil {
		logger.Fatal("could not build kafka config", zap.Error(err))
	}

	err = saramaadapter.EnsureOrderTopics(ctx, cfg.Kafka, saramaCfg, saramaadapter.DefaultRetryPolicy(), logger)
	if err != nil {
		logger.Fatal("could not create topics", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := resilience.NewMetrics(registry)
	if err != nil {
		logger.Fatal("could not register metrics", zap.Error(err))
	}

	aggregator := stats.NewAggregator()
	registry.MustRegister(pipeline.NewStatsCollector(aggregator))

	injector, err := fault.NewBernoulli(cfg.Consumer.FailureRate, nil)
	if err != nil {
		logger.Fatal("could not create failure injector", zap.Error(err))
	}

	syncProducer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		logger.Fatal("could not create kafka producer", zap.Error(err))
	}

	dlqProducer := saramaadapter.NewProducerAdapter(syncProducer)
	defer func() {
		if cerr := dlqProducer.Close(); cerr != nil {
			logger.Error("could not close kafka producer", zap.Error(cerr))
		}
	}()

	retryCfg := &resilience.Config{
		MaxAttempts: cfg.Retry.Attempts,
		Backoff:     cfg.Retry.Backoff,
		DLQSuffix:   cfg.Kafka.DLQSuffix,
		Workers:     cfg.Consumer.Workers,
		LaneBuffer:  cfg.Consumer.LaneBuffer,
	}

	engineLogger := logger.With(zap.String("component", "retry-engine"))
	sink := resilience.NewTopicSink(dlqProducer, retryCfg, engineLogger)

	engine, err := resilience.NewEngine(retryCfg, pipeline.NewProcessor(injector), sink,
		resilience.WithLogger(engineLogger),
		resilience.WithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("could not create retry engine", zap.Error(err))
	}

	dispatcher, err := resilience.NewDispatcher(engine, pipeline.RecordStats(aggregator, logger),
		resilience.WithLogger(logger.With(zap.String("component", "dispatcher"))),
		resilience.WithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("could not create dispatcher", zap.Error(err))
	}

	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Consumer.GroupID, saramaCfg)
	if err != nil {
		logger.Fatal("could not create consumer group", zap.Error(err))
	}

	consumer := saramaadapter.NewConsumerAdapter(group, logger.With(zap.String("component", "kafka-consumer")))
	handler := resilience.Chain(
		pipeline.NewOrderHandler(dispatcher, sink, logger),
		resilience.NewLoggingMiddleware(logger.With(zap.String("component", "order-handler"))),
	)

	server := httpapi.NewServer(
		cfg.Consumer.HTTPAddr,
		httpapi.NewConsumerHandler(aggregator, registry, logger),
		logger.With(zap.String("component", "http-server")),
	)

	logger.Info("starting order consumer",
		zap.String("topic", cfg.Kafka.OrdersTopic),
		zap.String("dlq_topic", cfg.Kafka.DLQTopic()),
		zap.String("group_id", cfg.Consumer.GroupID),
		zap.Float64("failure_rate", injector.Probability()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(dispatcher.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(consumer.Consume(gctx, []string{cfg.Kafka.OrdersTopic}, handler))
	})
	g.Go(server.Start)
	g.Go(func() error {
		logErrors(gctx, logger, dispatcher.Errors(), consumer.Errors())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down consumer")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Stop(shutdownCtx)
	})

	if err = g.Wait(); err != nil {
		logger.Error("consumer stopped with error", zap.Error(err))
	}

	// marked offsets are committed on close
	if err = consumer.Close(); err != nil {
		logger.Error("could not close consumer group", zap.Error(err))
	}

	snapshot := aggregator.Snapshot()
	logger.Info("stopped all",
		zap.Int64("processed", snapshot.Overall.Count),
		zap.String("overall_average", fmt.Sprintf("%.2f", snapshot.Overall.Average())),
	)
}

// logErrors drains the asynchronous error channels until ctx is done.
func logErrors(ctx context.Context, logger *zap.Logger, dispatchErrs, consumerErrs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-dispatchErrs:
			logger.Error("message left uncommitted", zap.Error(err))
		case err, ok := <-consumerErrs:
			if !ok {
				consumerErrs = nil
				continue
			}

			logger.Error("consumer group error", zap.Error(err))
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
