package resilience

import (
	"bytes"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	// HeaderDLQReason error message of the last failed attempt
	HeaderDLQReason = "x-dlq-reason"
	// HeaderDLQTimestamp time the message was dead-lettered (Unix)
	HeaderDLQTimestamp = "x-dlq-timestamp"
	// HeaderDLQSourceTopic topic the message was consumed from
	HeaderDLQSourceTopic = "x-dlq-source-topic"
	// HeaderDLQAttempts number of attempts made before giving up
	HeaderDLQAttempts = "x-dlq-attempts"
	// HeaderDLQFirstSeen time of the first delivery (Unix)
	HeaderDLQFirstSeen = "x-dlq-first-seen"
)

// Message is a broker record, either consumed or about to be produced.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   HeaderList
	Timestamp time.Time
}

type Header struct {
	Key   []byte
	Value []byte
}

type HeaderList []Header

func (h *HeaderList) Get(key string) ([]byte, bool) {
	for _, header := range *h {
		if string(header.Key) == key {
			return header.Value, true
		}
	}

	return nil, false
}

// Set updates an existing header or appends a new one.
func (h *HeaderList) Set(key string, value []byte) {
	for i, header := range *h {
		if string(header.Key) == key {
			(*h)[i].Value = value
			return
		}
	}

	*h = append(*h, Header{Key: []byte(key), Value: value})
}

func (h *HeaderList) Delete(key string) {
	kept := make(HeaderList, 0, len(*h))
	for _, header := range *h {
		if string(header.Key) != key {
			kept = append(kept, header)
		}
	}

	*h = kept
}

func (h *HeaderList) All() map[string][]byte {
	result := make(map[string][]byte, len(*h))
	for _, header := range *h {
		result[string(header.Key)] = header.Value
	}

	return result
}

// Clone returns a deep copy.
func (h *HeaderList) Clone() HeaderList {
	cloned := make(HeaderList, len(*h))
	for i, header := range *h {
		cloned[i] = Header{
			Key:   append([]byte(nil), header.Key...),
			Value: append([]byte(nil), header.Value...),
		}
	}

	return cloned
}

// GetHeaderValue reads a typed header. Supported types: string, int, time.Time.
func GetHeaderValue[T any](h *HeaderList, key string) (T, bool) {
	var zero T

	raw, found := h.findRaw(key)
	if !found {
		return zero, false
	}

	val := string(raw)

	var anyVal any = zero
	switch anyVal.(type) {
	case string:
		v, ok := any(val).(T)

		return v, ok
	case int:
		i, err := strconv.Atoi(val)
		if err != nil {
			return zero, false
		}

		v, ok := any(i).(T)

		return v, ok
	case time.Time:
		unix, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return zero, false
		}

		v, ok := any(time.Unix(unix, 0)).(T)

		return v, ok
	default:
		return zero, false
	}
}

// SetHeader writes a typed header. Supported types: string, int, time.Time.
func SetHeader[T any](h *HeaderList, key string, value T) error {
	var valStr string

	switch v := any(value).(type) {
	case string:
		valStr = v
	case int:
		valStr = strconv.Itoa(v)
	case time.Time:
		valStr = strconv.FormatInt(v.Unix(), 10)
	default:
		return errors.Errorf("SetHeader: unsupported type %T (supported: string, int, time.Time)", value)
	}

	h.Set(key, []byte(valStr))

	return nil
}

func (h *HeaderList) findRaw(key string) ([]byte, bool) {
	keyBytes := []byte(key)
	for _, hdr := range *h {
		if bytes.Equal(hdr.Key, keyBytes) {
			return hdr.Value, true
		}
	}

	return nil, false
}
