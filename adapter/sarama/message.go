package sarama

import (
	"github.com/IBM/sarama"

	"github.com/vmyroslav/ordertrain/resilience"
)

// NewMessage converts a consumed Sarama message.
func NewMessage(msg *sarama.ConsumerMessage) *resilience.Message {
	return &resilience.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   FromSaramaHeaders(msg.Headers),
		Timestamp: msg.Timestamp,
	}
}

// NewProducerMessage converts a message to be published.
func NewProducerMessage(msg *resilience.Message) *sarama.ProducerMessage {
	pm := &sarama.ProducerMessage{
		Topic:     msg.Topic,
		Value:     sarama.ByteEncoder(msg.Value),
		Headers:   ToSaramaHeaders(msg.Headers),
		Timestamp: msg.Timestamp,
	}

	// a nil key lets the partitioner pick any partition
	if msg.Key != nil {
		pm.Key = sarama.ByteEncoder(msg.Key)
	}

	return pm
}

// FromSaramaHeaders copies consumer record headers.
func FromSaramaHeaders(headers []*sarama.RecordHeader) resilience.HeaderList {
	result := make(resilience.HeaderList, 0, len(headers))
	for _, h := range headers {
		if h == nil {
			continue
		}

		result = append(result, resilience.Header{Key: h.Key, Value: h.Value})
	}

	return result
}

// ToSaramaHeaders converts headers to Sarama producer record headers.
func ToSaramaHeaders(headers resilience.HeaderList) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}

	result := make([]sarama.RecordHeader, len(headers))
	for i, h := range headers {
		result[i] = sarama.RecordHeader{Key: h.Key, Value: h.Value}
	}

	return result
}
