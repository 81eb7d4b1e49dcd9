// Package testutil provides shared test doubles for the correction
// pipeline.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
)

// FakeProvider is a scriptable provider double with call-count
// instrumentation. The zero value echoes the input back corrected by
// the Transform func (identity when nil).
type FakeProvider struct {
	mu        sync.Mutex
	calls     atomic.Int64
	Transform func(unit corrections.Unit) corrections.Correction

	// Errs is consumed one per call before Transform applies; a nil
	// slot means that call succeeds.
	Errs []error

	// Delay is applied before each call resolves (for timeout and
	// single-flight tests).
	Delay time.Duration
}

// Correct implements provider.Provider.
func (p *FakeProvider) Correct(ctx context.Context, unit corrections.Unit) (corrections.Correction, error) {
	p.calls.Add(1)

	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return corrections.Correction{}, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	p.mu.Lock()
	var err error
	if len(p.Errs) > 0 {
		err = p.Errs[0]
		p.Errs = p.Errs[1:]
	}
	transform := p.Transform
	p.mu.Unlock()

	if err != nil {
		return corrections.Correction{}, err
	}

	if transform != nil {
		return transform(unit), nil
	}
	return corrections.Correction{
		Original:   unit.Text,
		Corrected:  unit.Text,
		Category:   unit.Category,
		Confidence: 1.0,
	}, nil
}

// Calls returns how many times the provider was invoked.
func (p *FakeProvider) Calls() int64 {
	return p.calls.Load()
}

// MockProvider is a testify mock for expectation-style tests.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Correct(ctx context.Context, unit corrections.Unit) (corrections.Correction, error) {
	args := m.Called(ctx, unit)
	return args.Get(0).(corrections.Correction), args.Error(1)
}
