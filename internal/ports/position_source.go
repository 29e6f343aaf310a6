package ports

import (
	"beerspots-service/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrGeolocationUnsupported = errors.New("geolocation is not supported")
	ErrLocationBlocked        = errors.New("location access is blocked")
	ErrNoFix                  = errors.New("no position fix available")
)

// Options for a single-shot device position request.
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Contract for the device geolocation capability.
type PositionSource interface {
	// Return the current device position honouring opts.
	CurrentPosition(ctx context.Context, opts PositionOptions) (domain.GeoPosition, error)
}

// Optional extension of PositionSource that can report the permission state
// without prompting or waiting for a fix.
type PermissionQuerier interface {
	Permission(ctx context.Context) (PermissionState, error)
}

// Contract for an IP-based geolocation provider.
type IPLocator interface {
	Name() string
	Locate(ctx context.Context) (domain.GeoPosition, error)
}
