package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderList(t *testing.T) {
	t.Parallel()

	type args struct {
		key string
		val string
	}

	tests := []args{
		{HeaderDLQReason, "simulated failure"},
		{HeaderDLQSourceTopic, "orders"},
		{"order-id", "A1"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			var hl HeaderList

			err := SetHeader[string](&hl, tt.key, tt.val)
			require.NoError(t, err)

			value, ok := GetHeaderValue[string](&hl, tt.key)
			assert.True(t, ok)
			assert.Equal(t, tt.val, value)
		})
	}
}

func TestHeaderListUpdate(t *testing.T) {
	t.Parallel()

	var hl HeaderList

	require.NoError(t, SetHeader[string](&hl, "key", "value-1"))
	require.NoError(t, SetHeader[string](&hl, "key", "value-2"))

	value, ok := GetHeaderValue[string](&hl, "key")

	assert.True(t, ok, "value should be found")
	assert.Equal(t, "value-2", value, "expected updated value")
	assert.Len(t, hl, 1, "should have only one header, not duplicates")
}

func TestHeaderGet_Typed(t *testing.T) {
	t.Parallel()

	var hl HeaderList

	require.NoError(t, SetHeader[string](&hl, HeaderDLQReason, "boom"))
	require.NoError(t, SetHeader[int](&hl, HeaderDLQAttempts, 3))
	require.NoError(t, SetHeader[time.Time](&hl, HeaderDLQFirstSeen, time.Unix(1234567890, 0)))

	reason, ok := GetHeaderValue[string](&hl, HeaderDLQReason)
	assert.True(t, ok)
	assert.Equal(t, "boom", reason)

	attempts, ok := GetHeaderValue[int](&hl, HeaderDLQAttempts)
	assert.True(t, ok)
	assert.Equal(t, 3, attempts)

	firstSeen, ok := GetHeaderValue[time.Time](&hl, HeaderDLQFirstSeen)
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1234567890, 0), firstSeen)

	_, ok = GetHeaderValue[int](&hl, HeaderDLQReason)
	assert.False(t, ok, "non numeric value must not parse as int")

	_, ok = GetHeaderValue[string](&hl, "missing")
	assert.False(t, ok)
}

func TestSetHeader_UnsupportedType(t *testing.T) {
	t.Parallel()

	var hl HeaderList

	err := SetHeader[float64](&hl, "key", 3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
	assert.Contains(t, err.Error(), "float64")

	err = SetHeader[bool](&hl, "key", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bool")

	assert.Empty(t, hl)
}

func TestHeaderList_DeleteAndClone(t *testing.T) {
	t.Parallel()

	hl := HeaderList{}
	hl.Set("a", []byte("1"))
	hl.Set("b", []byte("2"))

	cloned := hl.Clone()
	cloned[0].Value[0] = 'x'

	v, _ := hl.Get("a")
	assert.Equal(t, []byte("1"), v, "clone must not share memory")

	hl.Delete("a")

	_, ok := hl.Get("a")
	assert.False(t, ok)
	assert.Equal(t, map[string][]byte{"b": []byte("2")}, hl.All())
	assert.Len(t, cloned, 2)
}
