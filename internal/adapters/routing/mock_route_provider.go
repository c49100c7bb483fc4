package routing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/ports"
)

type MockLeg struct {
	From, To domain.Coordinates
	Mode     domain.TravelMode
	Meters   int
	Seconds  int
}

// MockRouteProvider serves fixed legs. Pairs without a leg are unavailable,
// unless Fallback is set.
type MockRouteProvider struct {
	mu       sync.Mutex
	m        map[string]ports.RouteResult
	errs     map[string]error
	delays   map[string]time.Duration
	perPair  map[string]int
	Fallback ports.RouteProvider
	// Delay is applied to every call without a pair delay, honouring cancellation.
	Delay time.Duration

	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func mockKey(from, to domain.Coordinates, mode domain.TravelMode) string {
	return string(mode) + "|" + from.Key() + "|" + to.Key()
}

func NewMockRouteProvider(legs []MockLeg) *MockRouteProvider {
	m := make(map[string]ports.RouteResult, len(legs))
	for _, l := range legs {
		m[mockKey(l.From, l.To, l.Mode)] = ports.RouteResult{DistanceMeters: l.Meters, DurationSeconds: l.Seconds}
	}
	return &MockRouteProvider{
		m:       m,
		errs:    map[string]error{},
		delays:  map[string]time.Duration{},
		perPair: map[string]int{},
	}
}

// FailWith makes every call for the pair return err.
func (p *MockRouteProvider) FailWith(from, to domain.Coordinates, mode domain.TravelMode, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[mockKey(from, to, mode)] = err
}

// DelayFor makes every call for the pair take d.
func (p *MockRouteProvider) DelayFor(from, to domain.Coordinates, mode domain.TravelMode, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays[mockKey(from, to, mode)] = d
}

func (p *MockRouteProvider) Calls() int64 { return p.calls.Load() }

// CallsFor counts the calls made for one pair and mode.
func (p *MockRouteProvider) CallsFor(from, to domain.Coordinates, mode domain.TravelMode) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perPair[mockKey(from, to, mode)]
}

// PeakInFlight is the highest number of calls that were running at once.
func (p *MockRouteProvider) PeakInFlight() int64 { return p.peak.Load() }

func (p *MockRouteProvider) enter() {
	n := p.inFlight.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			return
		}
	}
}

func (p *MockRouteProvider) Route(
	ctx context.Context,
	origin, destination domain.Coordinates,
	mode domain.TravelMode,
) (ports.RouteResult, error) {
	p.calls.Add(1)
	p.enter()
	defer p.inFlight.Add(-1)

	k := mockKey(origin, destination, mode)
	p.mu.Lock()
	p.perPair[k]++
	delay, slow := p.delays[k]
	err, failing := p.errs[k]
	r, ok := p.m[k]
	p.mu.Unlock()

	if !slow {
		delay = p.Delay
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ports.RouteResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if failing {
		return ports.RouteResult{}, err
	}
	if ok {
		return r, nil
	}
	if p.Fallback != nil {
		return p.Fallback.Route(ctx, origin, destination, mode)
	}
	return ports.RouteResult{}, fmt.Errorf("missing leg %s -> %s (%s): %w",
		origin.Key(), destination.Key(), mode, domain.ErrRouteUnavailable)
}
