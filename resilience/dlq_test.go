package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTopicSink_SendToDLQ(t *testing.T) {
	t.Parallel()

	producer := &recordingProducer{}
	sink := NewTopicSink(producer, NewDefaultConfig(), zaptest.NewLogger(t))
	sink.now = fixedClock()

	firstSeen := time.Unix(1700000000, 0)
	payload := []byte(`{"orderId":"A2","product":"Phone","price":200}`)

	err := sink.SendToDLQ(context.Background(), DeadLetter{
		Key:           []byte("A2"),
		Payload:       payload,
		OriginalTopic: testTopicOrders,
		Attempts:      3,
		Reason:        "simulated failure",
		FirstSeenAt:   firstSeen,
	})
	require.NoError(t, err)

	messages := producer.Messages()
	require.Len(t, messages, 1)

	msg := messages[0]
	assert.Equal(t, "orders_dlq", msg.Topic)
	assert.Equal(t, []byte("A2"), msg.Key)
	assert.Equal(t, payload, msg.Value)

	reason, _ := GetHeaderValue[string](&msg.Headers, HeaderDLQReason)
	source, _ := GetHeaderValue[string](&msg.Headers, HeaderDLQSourceTopic)
	attempts, _ := GetHeaderValue[int](&msg.Headers, HeaderDLQAttempts)
	seen, _ := GetHeaderValue[time.Time](&msg.Headers, HeaderDLQFirstSeen)
	stamped, _ := GetHeaderValue[time.Time](&msg.Headers, HeaderDLQTimestamp)

	assert.Equal(t, "simulated failure", reason)
	assert.Equal(t, testTopicOrders, source)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, firstSeen, seen)
	assert.Equal(t, fixedClock()().Unix(), stamped.Unix())
}

func TestTopicSink_MalformedPayloadHasNoFirstSeen(t *testing.T) {
	t.Parallel()

	producer := &recordingProducer{}
	sink := NewTopicSink(producer, NewDefaultConfig(), nil)

	require.NoError(t, sink.SendToDLQ(context.Background(), DeadLetter{
		Payload:       []byte("{not json"),
		OriginalTopic: testTopicOrders,
		Reason:        "malformed payload",
	}))

	msg := producer.Messages()[0]
	_, ok := msg.Headers.Get(HeaderDLQFirstSeen)
	assert.False(t, ok)

	attempts, ok := GetHeaderValue[int](&msg.Headers, HeaderDLQAttempts)
	assert.True(t, ok)
	assert.Zero(t, attempts)
}

func TestTopicSink_ProducerError(t *testing.T) {
	t.Parallel()

	produceErr := errors.New("leader not available")
	sink := NewTopicSink(&recordingProducer{err: produceErr}, NewDefaultConfig(), zaptest.NewLogger(t))

	err := sink.SendToDLQ(context.Background(), DeadLetter{OriginalTopic: testTopicOrders, Reason: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, produceErr)
	assert.Contains(t, err.Error(), "orders_dlq")
}
