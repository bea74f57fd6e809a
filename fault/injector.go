// Package fault simulates transient processing failures.
package fault

import (
	stderrors "errors"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultProbability is the failure rate used when none is configured.
const DefaultProbability = 0.2

// ErrSimulatedFailure is returned by processing code when the injector fires.
var ErrSimulatedFailure = stderrors.New("simulated failure")

// Injector decides whether the current processing attempt should fail.
type Injector interface {
	ShouldFail() bool
}

// Func adapts a plain function to Injector.
type Func func() bool

func (f Func) ShouldFail() bool { return f() }

// RandSource provides uniformly distributed values in [0, 1).
type RandSource interface {
	Float64() float64
}

// Bernoulli fails with a fixed probability.
type Bernoulli struct {
	mu          sync.Mutex
	probability float64
	src         RandSource
}

// NewBernoulli creates an injector failing with the given probability.
// A nil src falls back to a clock-seeded source.
func NewBernoulli(probability float64, src RandSource) (*Bernoulli, error) {
	if probability < 0 || probability > 1 {
		return nil, errors.Errorf("probability must be within [0, 1], got %v", probability)
	}

	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}

	return &Bernoulli{probability: probability, src: src}, nil
}

// ShouldFail runs one Bernoulli trial.
func (b *Bernoulli) ShouldFail() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.src.Float64() < b.probability
}

// Probability returns the configured failure rate.
func (b *Bernoulli) Probability() float64 {
	return b.probability
}

var (
	// Never is an injector that never fails.
	Never Injector = Func(func() bool { return false })
	// Always is an injector that always fails.
	Always Injector = Func(func() bool { return true })
)

// FailTimes fails the first n calls and succeeds afterwards.
type FailTimes struct {
	mu        sync.Mutex
	remaining int
	calls     int
}

func NewFailTimes(n int) *FailTimes {
	return &FailTimes{remaining: n}
}

func (f *FailTimes) ShouldFail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.remaining > 0 {
		f.remaining--
		return true
	}

	return false
}

// Calls returns how many times ShouldFail was invoked.
func (f *FailTimes) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// Sequence replays a scripted list of outcomes; once exhausted it never fails.
type Sequence struct {
	mu       sync.Mutex
	outcomes []bool
}

func NewSequence(outcomes ...bool) *Sequence {
	return &Sequence{outcomes: outcomes}
}

func (s *Sequence) ShouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.outcomes) == 0 {
		return false
	}

	next := s.outcomes[0]
	s.outcomes = s.outcomes[1:]

	return next
}
