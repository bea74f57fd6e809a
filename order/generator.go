package order

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Catalog is the default product list used by the random generator.
var Catalog = []string{"Laptop", "Phone", "Tablet", "Headphones", "Camera"}

const (
	minPrice = 50.0
	maxPrice = 1000.0
)

// RandSource is the subset of *rand.Rand the generator needs.
type RandSource interface {
	Intn(n int) int
	Float64() float64
}

// Request carries optional overrides for a produced order.
type Request struct {
	ID      *string  `json:"orderId,omitempty"`
	Product *string  `json:"product,omitempty"`
	Price   *float64 `json:"price,omitempty"`
}

// Generator produces random orders. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rnd     RandSource
	catalog []string
	newID   func() string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(g *Generator)

// WithRandSource replaces the random source.
func WithRandSource(src RandSource) GeneratorOption {
	return func(g *Generator) {
		g.rnd = src
	}
}

// WithCatalog replaces the product catalog.
func WithCatalog(products ...string) GeneratorOption {
	return func(g *Generator) {
		if len(products) > 0 {
			g.catalog = products
		}
	}
}

// WithIDFunc replaces the order id source.
func WithIDFunc(fn func() string) GeneratorOption {
	return func(g *Generator) {
		g.newID = fn
	}
}

// NewGenerator creates a Generator seeded from the clock unless overridden.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
		catalog: Catalog,
		newID:   func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Random returns a fully randomized order with a price in [50, 1000).
func (g *Generator) Random() Order {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Order{
		ID:      g.newID(),
		Product: g.catalog[g.rnd.Intn(len(g.catalog))],
		Price:   minPrice + g.rnd.Float64()*(maxPrice-minPrice),
	}
}

// FromRequest fills the fields missing in req from a fresh random order.
// A nil request yields a random order.
func (g *Generator) FromRequest(req *Request) Order {
	o := g.Random()
	if req == nil {
		return o
	}

	if req.ID != nil && *req.ID != "" {
		o.ID = *req.ID
	}

	if req.Product != nil && *req.Product != "" {
		o.Product = *req.Product
	}

	if req.Price != nil {
		o.Price = *req.Price
	}

	return o
}
