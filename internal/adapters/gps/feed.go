package gps

import (
	"beerspots-service/internal/domain"
	"beerspots-service/internal/ports"
	"context"
	"fmt"
	"sync"
	"time"
)

// Feed is a PositionSource backed by fixes pushed from the client shell.
// A request waits for a fresh fix until its timeout expires.
type Feed struct {
	mu          sync.Mutex
	last        domain.GeoPosition
	lastAt      time.Time
	hasFix      bool
	denied      bool
	unsupported bool

	// closed and replaced on every state change
	changed chan struct{}
	now     func() time.Time
}

func NewFeed() *Feed {
	return &Feed{
		changed: make(chan struct{}),
		now:     time.Now,
	}
}

// Report records a device fix. Reporting a fix clears an earlier denial.
func (f *Feed) Report(pos domain.GeoPosition) error {
	if !pos.InRange() {
		return fmt.Errorf("report fix: invalid position %v,%v", pos.Latitude, pos.Longitude)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = pos
	f.lastAt = f.now()
	f.hasFix = true
	f.denied = false
	f.unsupported = false
	f.broadcast()
	return nil
}

// Deny records that the user refused location access.
func (f *Feed) Deny() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.denied = true
	f.broadcast()
}

// Unsupported records that the client has no geolocation capability.
func (f *Feed) Unsupported() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unsupported = true
	f.broadcast()
}

func (f *Feed) broadcast() {
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *Feed) Permission(ctx context.Context) (ports.PermissionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.unsupported:
		return "", ports.ErrGeolocationUnsupported
	case f.denied:
		return ports.PermissionDenied, nil
	case f.hasFix:
		return ports.PermissionGranted, nil
	default:
		return ports.PermissionPrompt, nil
	}
}

func (f *Feed) CurrentPosition(ctx context.Context, opts ports.PositionOptions) (domain.GeoPosition, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	for {
		f.mu.Lock()
		pos, done, err := f.answer(opts.MaximumAge)
		wait := f.changed
		f.mu.Unlock()

		if done {
			return pos, err
		}

		select {
		case <-ctx.Done():
			return domain.GeoPosition{}, fmt.Errorf("%w: %w", ports.ErrNoFix, ctx.Err())
		case <-wait:
		}
	}
}

// answer must be called with mu held.
func (f *Feed) answer(maxAge time.Duration) (domain.GeoPosition, bool, error) {
	switch {
	case f.unsupported:
		return domain.GeoPosition{}, true, ports.ErrGeolocationUnsupported
	case f.denied:
		return domain.GeoPosition{}, true, ports.ErrLocationBlocked
	case f.hasFix && f.now().Sub(f.lastAt) <= maxAge:
		return f.last, true, nil
	}
	return domain.GeoPosition{}, false, nil
}

var (
	_ ports.PositionSource    = (*Feed)(nil)
	_ ports.PermissionQuerier = (*Feed)(nil)
)
