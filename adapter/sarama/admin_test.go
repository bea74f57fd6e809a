package sarama

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminAdapter_CreateTopic(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		m := new(mockClusterAdmin)
		adapter := &AdminAdapter{admin: m}

		// use a matcher for the TopicDetail because map iteration order is random
		m.On("CreateTopic", "orders_dlq", mock.MatchedBy(func(d *sarama.TopicDetail) bool {
			if d.NumPartitions != 3 || d.ReplicationFactor != 1 {
				return false
			}

			val, ok := d.ConfigEntries["retention.ms"]

			return ok && *val == "-1" && len(d.ConfigEntries) == 1
		}), false).Return(nil)

		err := adapter.CreateTopic(context.Background(), "orders_dlq", 3, 1, map[string]string{
			"retention.ms": "-1",
		})
		require.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("idempotency - topic already exists", func(t *testing.T) {
		t.Parallel()

		m := new(mockClusterAdmin)
		adapter := &AdminAdapter{admin: m}

		m.On("CreateTopic", "orders", mock.Anything, false).Return(&sarama.TopicError{
			Err: sarama.ErrTopicAlreadyExists,
		})

		err := adapter.CreateTopic(context.Background(), "orders", 1, 1, nil)

		assert.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()

		m := new(mockClusterAdmin)
		adapter := &AdminAdapter{admin: m}

		expectedErr := errors.New("network error")
		m.On("CreateTopic", "orders", mock.Anything, false).Return(expectedErr)

		err := adapter.CreateTopic(context.Background(), "orders", 1, 1, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "orders")
		m.AssertExpectations(t)
	})
}

func TestAdminAdapter_Close(t *testing.T) {
	t.Parallel()

	m := new(mockClusterAdmin)
	adapter := &AdminAdapter{admin: m}

	m.On("Close").Return(nil)

	err := adapter.Close()
	assert.NoError(t, err)
	m.AssertExpectations(t)
}

// mockClusterAdmin mocks sarama.ClusterAdmin interface.
// We embed the interface to satisfy all methods, but only implement the ones we need.
type mockClusterAdmin struct {
	mock.Mock
	sarama.ClusterAdmin
}

func (m *mockClusterAdmin) CreateTopic(name string, detail *sarama.TopicDetail, validateOnly bool) error {
	args := m.Called(name, detail, validateOnly)
	return args.Error(0)
}

func (m *mockClusterAdmin) Close() error {
	args := m.Called()
	return args.Error(0)
}
