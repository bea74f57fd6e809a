package order

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrEmptyID       = errors.New("order id is empty")
	ErrEmptyProduct  = errors.New("product is empty")
	ErrInvalidPrice  = errors.New("price must be positive")
	errNilRawPayload = errors.New("payload is empty")
)

// Order is a single order event exchanged over the broker.
// Orders are values: once built they are never mutated.
type Order struct {
	ID      string  `json:"orderId"`
	Product string  `json:"product"`
	Price   float64 `json:"price"`
}

// New builds an order and validates it.
func New(id, product string, price float64) (Order, error) {
	o := Order{ID: id, Product: product, Price: price}
	if err := o.Validate(); err != nil {
		return Order{}, err
	}

	return o, nil
}

// Validate checks the order invariants.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return ErrEmptyID
	}

	if strings.TrimSpace(o.Product) == "" {
		return errors.Wrapf(ErrEmptyProduct, "order %s", o.ID)
	}

	if !(o.Price > 0) {
		return errors.Wrapf(ErrInvalidPrice, "order %s: got %v", o.ID, o.Price)
	}

	return nil
}

// Equal reports whether both orders carry the same id.
func (o Order) Equal(other Order) bool {
	return o.ID == other.ID
}

// Key returns the broker partitioning key.
func (o Order) Key() []byte {
	return []byte(o.ID)
}

// Marshal encodes the order as a JSON payload.
func Marshal(o Order) ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to encode order %s", o.ID)
	}

	return b, nil
}

// Unmarshal decodes and validates a JSON payload.
func Unmarshal(payload []byte) (Order, error) {
	if len(payload) == 0 {
		return Order{}, errNilRawPayload
	}

	var o Order
	if err := json.Unmarshal(payload, &o); err != nil {
		return Order{}, errors.Wrap(err, "unable to decode order")
	}

	if err := o.Validate(); err != nil {
		return Order{}, err
	}

	return o, nil
}
