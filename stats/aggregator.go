// Package stats keeps running price averages for processed orders.
package stats

import "sync"

// ProductStats is a running sum of prices.
type ProductStats struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// Average returns Total/Count, or 0 when nothing was recorded.
func (s ProductStats) Average() float64 {
	if s.Count == 0 {
		return 0
	}

	return s.Total / float64(s.Count)
}

func (s *ProductStats) add(price float64) {
	s.Total += price
	s.Count++
}

// Snapshot is a point-in-time copy of the aggregator state.
type Snapshot struct {
	Products map[string]ProductStats `json:"products"`
	Overall  ProductStats            `json:"overall"`
}

// Aggregator tracks per-product and overall averages.
// Record must be called once per successfully processed order.
type Aggregator struct {
	mu       sync.RWMutex
	products map[string]*ProductStats
	overall  ProductStats
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		products: make(map[string]*ProductStats),
	}
}

// Record adds price to the product entry and to the overall aggregate.
// Both updates happen under one lock so readers never observe one without the other.
func (a *Aggregator) Record(product string, price float64) (ProductStats, ProductStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ps, ok := a.products[product]
	if !ok {
		ps = &ProductStats{}
		a.products[product] = ps
	}

	ps.add(price)
	a.overall.add(price)

	return *ps, a.overall
}

// Average returns the average price of product.
func (a *Aggregator) Average(product string) float64 {
	return a.Product(product).Average()
}

// OverallAverage returns the average price across all products.
func (a *Aggregator) OverallAverage() float64 {
	return a.Overall().Average()
}

// Product returns a copy of the stats for product.
func (a *Aggregator) Product(product string) ProductStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if ps, ok := a.products[product]; ok {
		return *ps
	}

	return ProductStats{}
}

// Overall returns a copy of the overall stats.
func (a *Aggregator) Overall() ProductStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.overall
}

// Snapshot copies the whole state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	products := make(map[string]ProductStats, len(a.products))
	for name, ps := range a.products {
		products[name] = *ps
	}

	return Snapshot{Products: products, Overall: a.overall}
}
