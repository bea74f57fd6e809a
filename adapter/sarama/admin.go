package sarama

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// AdminAdapter wraps sarama.ClusterAdmin to implement resilience.Admin.
type AdminAdapter struct {
	admin sarama.ClusterAdmin
}

// NewAdminAdapter creates a resilience.Admin with its own broker connection.
func NewAdminAdapter(brokers []string, cfg *sarama.Config) (*AdminAdapter, error) {
	admin, err := sarama.NewClusterAdmin(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create cluster admin")
	}

	return &AdminAdapter{admin: admin}, nil
}

// CreateTopic creates a topic. An already existing topic is not an error.
func (a *AdminAdapter) CreateTopic(
	_ context.Context,
	name string,
	partitions int32,
	replicationFactor int16,
	config map[string]string,
) error {
	// convert config map[string]string to map[string]*string (Sarama format)
	saramaConfig := make(map[string]*string, len(config))
	for k, v := range config {
		val := v
		saramaConfig[k] = &val
	}

	topicDetail := &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
		ConfigEntries:     saramaConfig,
	}

	err := a.admin.CreateTopic(name, topicDetail, false)
	if err != nil {
		var topicErr *sarama.TopicError
		if errors.As(err, &topicErr) && errors.Is(topicErr.Err, sarama.ErrTopicAlreadyExists) {
			return nil
		}

		if errors.Is(err, sarama.ErrTopicAlreadyExists) {
			return nil
		}

		return errors.Wrapf(err, "failed to create topic %s", name)
	}

	return nil
}

// Close closes the admin connection.
func (a *AdminAdapter) Close() error {
	return a.admin.Close()
}
