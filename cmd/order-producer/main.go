package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	saramaadapter "github.com/vmyroslav/ordertrain/adapter/sarama"
	"github.com/vmyroslav/ordertrain/config"
	"github.com/vmyroslav/ordertrain/httpapi"
	"github.com/vmyroslav/ordertrain/order"
	"github.com/vmyroslav/ordertrain/pkg/logging"
	"github.com/vmyroslav/ordertrain/producer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.NewProducerConfig()
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

	syncProducer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		logger.Fatal("could not create kafka producer", zap.Error(err))
	}

	publisher := saramaadapter.NewProducerAdapter(syncProducer)
	service := producer.NewService(publisher, cfg.Kafka.OrdersTopic,
		producer.WithLogger(logger.With(zap.String("component", "order-producer"))))

	server := httpapi.NewServer(
		cfg.Producer.HTTPAddr,
		httpapi.NewProducerHandler(service, order.NewGenerator(), logger),
		logger.With(zap.String("component", "http-server")),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down producer")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Stop(shutdownCtx)
	})

	if err = g.Wait(); err != nil {
		logger.Error("producer stopped with error", zap.Error(err))
	}

	// in-flight dispatches finish before the producer connection goes away
	if err = service.Close(); err != nil {
		logger.Error("could not close order service", zap.Error(err))
	}

	if err = publisher.Close(); err != nil {
		logger.Error("could not close kafka producer", zap.Error(err))
	}

	logger.Info("stopped all")
}
