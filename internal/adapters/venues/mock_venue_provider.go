package venues

import (
	"beerspots-service/internal/ports"
	"context"
	"sync"
)

type MockVenueProvider struct {
	mu      sync.Mutex
	rows    []ports.VenueRow
	err     error
	queries []ports.NearbyQuery

	// When set, NearbyVenues signals started and blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func NewMockVenueProvider(rows []ports.VenueRow) *MockVenueProvider {
	return &MockVenueProvider{rows: rows}
}

func (p *MockVenueProvider) SetRows(rows []ports.VenueRow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = rows
}

func (p *MockVenueProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Hold makes the next calls block. The returned channel receives once per
// call as it starts; call the release func to let them finish.
func (p *MockVenueProvider) Hold() (<-chan struct{}, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = make(chan struct{}, 8)
	p.release = make(chan struct{})

	var once sync.Once
	release := p.release
	return p.started, func() { once.Do(func() { close(release) }) }
}

func (p *MockVenueProvider) NearbyVenues(ctx context.Context, q ports.NearbyQuery) ([]ports.VenueRow, error) {
	p.mu.Lock()
	p.queries = append(p.queries, q)
	started, release := p.started, p.release
	p.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}
	out := make([]ports.VenueRow, len(p.rows))
	copy(out, p.rows)
	return out, nil
}

func (p *MockVenueProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queries)
}

func (p *MockVenueProvider) Queries() []ports.NearbyQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.NearbyQuery, len(p.queries))
	copy(out, p.queries)
	return out
}
