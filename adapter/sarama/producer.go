package sarama

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"

	"github.com/vmyroslav/ordertrain/resilience"
)

// ProducerAdapter wraps sarama.SyncProducer to implement resilience.Producer.
type ProducerAdapter struct {
	producer sarama.SyncProducer
}

// NewProducerAdapter creates a resilience.Producer from a Sarama SyncProducer.
func NewProducerAdapter(producer sarama.SyncProducer) *ProducerAdapter {
	return &ProducerAdapter{producer: producer}
}

// Produce sends msg and waits for the broker acknowledgement.
func (p *ProducerAdapter) Produce(ctx context.Context, msg *resilience.Message) (resilience.Ack, error) {
	if err := ctx.Err(); err != nil {
		return resilience.Ack{}, errors.WithStack(err)
	}

	partition, offset, err := p.producer.SendMessage(NewProducerMessage(msg))
	if err != nil {
		return resilience.Ack{}, errors.Wrapf(err, "send message to %s", msg.Topic)
	}

	return resilience.Ack{Topic: msg.Topic, Partition: partition, Offset: offset}, nil
}

func (p *ProducerAdapter) Close() error {
	return p.producer.Close()
}
