// Package config loads the settings of the order binaries from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

type Kafka struct {
	// Base configuration.
	Brokers  []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Version  string   `envconfig:"KAFKA_VERSION" default:"3.6.0"`
	ClientID string   `envconfig:"KAFKA_CLIENT_ID" default:"ordertrain"`

	// Security configuration.
	Username string `envconfig:"KAFKA_USERNAME"`
	Password string `envconfig:"KAFKA_PASSWORD"`
	CACert   string `envconfig:"KAFKA_CA_CERT"`

	// Topic configuration.
	OrdersTopic      string `envconfig:"ORDERS_TOPIC" default:"orders"`
	TopicPartitions  int32  `envconfig:"TOPIC_PARTITIONS" default:"3"`
	TopicReplication int16  `envconfig:"TOPIC_REPLICATION" default:"1"`
	DLQSuffix        string `envconfig:"DLQ_SUFFIX" default:"_dlq"`
}

type Retry struct {
	Attempts int           `envconfig:"RETRY_ATTEMPTS" default:"3"` // total attempts, the first delivery included
	Backoff  time.Duration `envconfig:"RETRY_BACKOFF" default:"1s"` // fixed delay between attempts
}

type Consumer struct {
	GroupID     string  `envconfig:"CONSUMER_GROUP_ID" default:"order-consumer"`
	Workers     int     `envconfig:"CONSUMER_WORKERS" default:"4"`
	LaneBuffer  int     `envconfig:"CONSUMER_LANE_BUFFER" default:"64"`
	FailureRate float64 `envconfig:"FAILURE_RATE" default:"0.2"`
	HTTPAddr    string  `envconfig:"HTTP_ADDR" default:":8081"`
}

type Producer struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
}

type Logger struct {
	Level zapcore.Level `envconfig:"LOG_LEVEL" default:"info"`
}

// ConsumerConfig is the configuration of the order consumer.
type ConsumerConfig struct {
	Kafka    Kafka
	Retry    Retry
	Consumer Consumer
	Logger   Logger
}

// ProducerConfig is the configuration of the order producer.
type ProducerConfig struct {
	Kafka    Kafka
	Producer Producer
	Logger   Logger
}

func NewConsumerConfig() (*ConsumerConfig, error) {
	var cfg ConsumerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load consumer config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func NewProducerConfig() (*ProducerConfig, error) {
	var cfg ProducerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load producer config")
	}

	if err := cfg.Kafka.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (k Kafka) Validate() error {
	if len(k.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS cannot be empty")
	}

	if k.OrdersTopic == "" {
		return errors.New("ORDERS_TOPIC cannot be empty")
	}

	if k.TopicPartitions < 1 {
		return errors.Errorf("TOPIC_PARTITIONS must be >= 1, got %d", k.TopicPartitions)
	}

	if k.TopicReplication < 1 {
		return errors.Errorf("TOPIC_REPLICATION must be >= 1, got %d", k.TopicReplication)
	}

	return nil
}

func (c ConsumerConfig) Validate() error {
	if err := c.Kafka.Validate(); err != nil {
		return err
	}

	if c.Consumer.GroupID == "" {
		return errors.New("CONSUMER_GROUP_ID cannot be empty")
	}

	if c.Consumer.FailureRate < 0 || c.Consumer.FailureRate > 1 {
		return errors.Errorf("FAILURE_RATE must be within [0, 1], got %v", c.Consumer.FailureRate)
	}

	return nil
}

// DLQTopic is the dead-letter topic of the orders topic.
func (k Kafka) DLQTopic() string {
	return k.OrdersTopic + k.DLQSuffix
}
