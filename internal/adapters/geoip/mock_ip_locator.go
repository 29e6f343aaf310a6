package geoip

import (
	"beerspots-service/internal/domain"
	"context"
	"sync/atomic"
)

type MockIPLocator struct {
	name  string
	pos   domain.GeoPosition
	err   error
	calls atomic.Int32
}

func NewMockIPLocator(name string, pos domain.GeoPosition, err error) *MockIPLocator {
	return &MockIPLocator{name: name, pos: pos, err: err}
}

func (m *MockIPLocator) Name() string { return m.name }

func (m *MockIPLocator) Locate(ctx context.Context) (domain.GeoPosition, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.GeoPosition{}, m.err
	}
	return m.pos, nil
}

func (m *MockIPLocator) Calls() int { return int(m.calls.Load()) }
