package stats

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_EmptyAverages(t *testing.T) {
	t.Parallel()

	a := NewAggregator()

	assert.Equal(t, 0.0, a.Average("Laptop"))
	assert.Equal(t, 0.0, a.OverallAverage())
	assert.Equal(t, ProductStats{}, a.Product("Laptop"))
	assert.Empty(t, a.Snapshot().Products)
}

func TestAggregator_Record(t *testing.T) {
	t.Parallel()

	a := NewAggregator()

	product, overall := a.Record("Laptop", 1000)
	assert.Equal(t, ProductStats{Total: 1000, Count: 1}, product)
	assert.Equal(t, ProductStats{Total: 1000, Count: 1}, overall)

	a.Record("Laptop", 500)
	a.Record("Phone", 200)

	assert.InDelta(t, 750.0, a.Average("Laptop"), 1e-9)
	assert.InDelta(t, 200.0, a.Average("Phone"), 1e-9)
	assert.InDelta(t, 1700.0/3, a.OverallAverage(), 1e-9)
	assert.Equal(t, 0.0, a.Average("Tablet"))
}

func TestAggregator_SumsMatchOverall(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	prices := map[string][]float64{
		"Laptop":     {1000, 900.5},
		"Phone":      {200, 250, 300},
		"Headphones": {55.25},
	}

	for product, ps := range prices {
		for _, p := range ps {
			a.Record(product, p)
		}
	}

	snap := a.Snapshot()

	var (
		total float64
		count int64
	)

	for _, ps := range snap.Products {
		total += ps.Total
		count += ps.Count
	}

	assert.InDelta(t, snap.Overall.Total, total, 1e-9)
	assert.Equal(t, snap.Overall.Count, count)
	assert.Equal(t, int64(6), count)
}

func TestAggregator_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.Record("Laptop", 10)

	snap := a.Snapshot()
	a.Record("Laptop", 20)

	assert.Equal(t, int64(1), snap.Products["Laptop"].Count)
	assert.Equal(t, int64(2), a.Product("Laptop").Count)
}

func TestAggregator_ConcurrentRecordSameProduct(t *testing.T) {
	t.Parallel()

	const (
		workers   = 10
		perWorker = 100
	)

	a := NewAggregator()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < perWorker; i++ {
				a.Record("Laptop", 1)
				_ = a.Average("Laptop")
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), a.Product("Laptop").Count)
	assert.Equal(t, int64(workers*perWorker), a.Overall().Count)
	assert.InDelta(t, 1.0, a.OverallAverage(), 1e-9)
}

func TestAggregator_ConcurrentManyProducts(t *testing.T) {
	t.Parallel()

	a := NewAggregator()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			for i := 0; i < 250; i++ {
				a.Record(fmt.Sprintf("product-%d", i%5), float64(w+1))
			}
		}(w)
	}

	wg.Wait()

	snap := a.Snapshot()

	var count int64
	for _, ps := range snap.Products {
		count += ps.Count
	}

	assert.Len(t, snap.Products, 5)
	assert.Equal(t, int64(2000), count)
	assert.Equal(t, count, snap.Overall.Count)
}
