package sarama

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vmyroslav/ordertrain/config"
	"github.com/vmyroslav/ordertrain/resilience"
)

// TopicSpec describes a topic created on startup.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	Config            map[string]string
}

// RetryPolicy bounds the topic creation retries while the broker is starting up.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Delay: time.Second, MaxDelay: 10 * time.Second}
}

// EnsureTopics creates all topics concurrently, retrying each with exponential backoff.
func EnsureTopics(
	ctx context.Context,
	admin resilience.Admin,
	topics []TopicSpec,
	policy RetryPolicy,
	logger *zap.Logger,
) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, spec := range topics {
		g.Go(func() error {
			err := retry.Do(
				func() error {
					return admin.CreateTopic(gctx, spec.Name, spec.Partitions, spec.ReplicationFactor, spec.Config)
				},
				retry.Attempts(policy.Attempts),
				retry.Delay(policy.Delay),
				retry.MaxDelay(policy.MaxDelay),
				retry.DelayType(retry.BackOffDelay),
				retry.LastErrorOnly(true),
				retry.Context(gctx),
				retry.OnRetry(func(n uint, err error) {
					logger.Warn("retrying topic creation",
						zap.String("topic", spec.Name),
						zap.Uint("attempt", n+1),
						zap.Error(err),
					)
				}),
			)
			if err != nil {
				return errors.Wrapf(err, "ensure topic %s", spec.Name)
			}

			logger.Info("topic ready",
				zap.String("topic", spec.Name),
				zap.Int32("partitions", spec.Partitions),
			)

			return nil
		})
	}

	return g.Wait()
}

// EnsureOrderTopics dials the cluster and creates the orders topic and its dead-letter topic.
func EnsureOrderTopics(
	ctx context.Context,
	cfg config.Kafka,
	saramaCfg *sarama.Config,
	policy RetryPolicy,
	logger *zap.Logger,
) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	admin, err := retry.DoWithData(
		func() (*AdminAdapter, error) {
			return NewAdminAdapter(cfg.Brokers, saramaCfg)
		},
		retry.Attempts(policy.Attempts),
		retry.Delay(policy.Delay),
		retry.MaxDelay(policy.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("waiting for kafka", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := admin.Close(); cerr != nil {
			logger.Warn("could not close cluster admin", zap.Error(cerr))
		}
	}()

	return EnsureTopics(ctx, admin, []TopicSpec{
		{Name: cfg.OrdersTopic, Partitions: cfg.TopicPartitions, ReplicationFactor: cfg.TopicReplication},
		{Name: cfg.DLQTopic(), Partitions: cfg.TopicPartitions, ReplicationFactor: cfg.TopicReplication},
	}, policy, logger)
}
