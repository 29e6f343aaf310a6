package gps

import (
	"beerspots-service/internal/domain"
	"beerspots-service/internal/ports"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var krakow = domain.GeoPosition{Latitude: 50.0647, Longitude: 19.945}

func opts(timeout, maxAge time.Duration) ports.PositionOptions {
	return ports.PositionOptions{EnableHighAccuracy: true, Timeout: timeout, MaximumAge: maxAge}
}

func TestFeedReturnsFreshFix(t *testing.T) {
	f := NewFeed()
	require.NoError(t, f.Report(krakow))

	pos, err := f.CurrentPosition(context.Background(), opts(time.Second, time.Minute))
	require.NoError(t, err)
	assert.Equal(t, krakow, pos)

	state, err := f.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ports.PermissionGranted, state)
}

func TestFeedWaitsForReport(t *testing.T) {
	f := NewFeed()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = f.Report(krakow)
	}()

	pos, err := f.CurrentPosition(context.Background(), opts(2*time.Second, time.Minute))
	require.NoError(t, err)
	assert.Equal(t, krakow, pos)
}

func TestFeedStaleFixTimesOut(t *testing.T) {
	f := NewFeed()
	base := time.Now()
	f.now = func() time.Time { return base }
	require.NoError(t, f.Report(krakow))

	f.now = func() time.Time { return base.Add(10 * time.Minute) }

	_, err := f.CurrentPosition(context.Background(), opts(30*time.Millisecond, 5*time.Minute))
	require.ErrorIs(t, err, ports.ErrNoFix)
}

func TestFeedDenied(t *testing.T) {
	f := NewFeed()
	f.Deny()

	_, err := f.CurrentPosition(context.Background(), opts(time.Second, time.Minute))
	require.ErrorIs(t, err, ports.ErrLocationBlocked)

	state, err := f.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ports.PermissionDenied, state)
}

func TestFeedDenyWakesWaiter(t *testing.T) {
	f := NewFeed()

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Deny()
	}()

	_, err := f.CurrentPosition(context.Background(), opts(2*time.Second, time.Minute))
	require.ErrorIs(t, err, ports.ErrLocationBlocked)
}

func TestFeedUnsupported(t *testing.T) {
	f := NewFeed()
	f.Unsupported()

	_, err := f.CurrentPosition(context.Background(), opts(time.Second, time.Minute))
	require.ErrorIs(t, err, ports.ErrGeolocationUnsupported)
}

func TestFeedRejectsInvalidFix(t *testing.T) {
	f := NewFeed()
	assert.Error(t, f.Report(domain.GeoPosition{Latitude: 120, Longitude: 21}))

	state, err := f.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ports.PermissionPrompt, state)
}

func TestFeedAcceptsEquatorAndMeridian(t *testing.T) {
	for _, pos := range []domain.GeoPosition{
		{Latitude: 0, Longitude: 32.58},
		{Latitude: 51.48, Longitude: 0},
	} {
		f := NewFeed()
		require.NoError(t, f.Report(pos))

		got, err := f.CurrentPosition(context.Background(), opts(time.Second, time.Minute))
		require.NoError(t, err)
		assert.Equal(t, pos, got)
	}
}
