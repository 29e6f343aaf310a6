package services

import (
	"beerspots-service/internal/domain"
	"beerspots-service/internal/platform/obs"
	"beerspots-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Key under which the last good fix is persisted.
const LastKnownLocationKey = "lastKnownLocation"

const (
	msgGPSUnavailable = "GPS unavailable"
	msgGPSTimeout     = "location request timed out"
	msgNoLocation     = "could not determine location from GPS or IP"
)

// Options for the single GPS attempt made per resolution.
var GPSOptions = ports.PositionOptions{
	EnableHighAccuracy: true,
	Timeout:            10 * time.Second,
	MaximumAge:         5 * time.Minute,
}

var tracer = otel.Tracer("beerspots-service/services")

// LocationResolver owns the session's LocationState. It is built once by the
// composition root and shared by everything that needs the current position.
//
// Resolution order is strict: GPS first, then the primary IP provider, then
// the secondary one. There are no retries; a failed attempt is final for the
// session and only recorded in the state.
type LocationResolver struct {
	store     ports.KeyValueStore
	gps       ports.PositionSource
	primary   ports.IPLocator
	secondary ports.IPLocator

	// Poll interval for stores without change notifications.
	PollInterval time.Duration

	mu          sync.RWMutex
	state       domain.LocationState
	initialized bool
	done        chan struct{}
	doneOnce    sync.Once
}

// NewLocationResolver wires the resolver. gps and either IP locator may be nil.
func NewLocationResolver(
	store ports.KeyValueStore,
	gps ports.PositionSource,
	primary ports.IPLocator,
	secondary ports.IPLocator,
) (*LocationResolver, error) {
	if store == nil {
		return nil, errors.New("new location resolver: store must not be nil")
	}

	return &LocationResolver{
		store:        store,
		gps:          gps,
		primary:      primary,
		secondary:    secondary,
		PollInterval: time.Second,
		state:        domain.PendingLocation(),
		done:         make(chan struct{}),
	}, nil
}

// Initialize seeds the state from the persisted fix, or from the default
// position while resolution runs in the background. Later calls return the
// current state without side effects.
func (r *LocationResolver) Initialize(ctx context.Context) domain.LocationState {
	r.mu.Lock()
	if r.initialized {
		defer r.mu.Unlock()
		return r.state
	}
	r.initialized = true

	if pos, ok := r.readStored(ctx); ok {
		r.state = domain.StoredLocation(pos)
		state := r.state
		r.mu.Unlock()

		r.finish()
		obs.Logger(ctx).Info().
			Float64("lat", pos.Latitude).
			Float64("lng", pos.Longitude).
			Msg("location seeded from store")
		return state
	}

	r.state = domain.PendingLocation()
	state := r.state
	r.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer r.finish()
		r.Resolve(bg)
	}()

	return state
}

// State returns a snapshot of the current location state.
func (r *LocationResolver) State() domain.LocationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Done is closed once the session's resolution attempt has finished.
func (r *LocationResolver) Done() <-chan struct{} {
	return r.done
}

func (r *LocationResolver) finish() {
	r.doneOnce.Do(func() { close(r.done) })
}

// Resolve runs the GPS then IP fallback chain and records the outcome.
// Every failure ends up in the state's error; nothing is returned.
func (r *LocationResolver) Resolve(ctx context.Context) {
	var err error
	ctx, span := tracer.Start(ctx, "resolve-location")
	defer func() { obs.EndSpan(span, err) }()
	defer obs.Time(ctx, "location.Resolve")(&err)

	log := obs.Logger(ctx)

	r.setLoading()

	pos, gpsErr := r.fromGPS(ctx)
	if gpsErr == nil {
		span.SetAttributes(attribute.String("source", string(domain.SourceGPS)))
		r.persist(ctx, pos)
		r.apply(domain.LocationState{
			Position: pos,
			Source:   domain.SourceGPS,
		})
		return
	}
	log.Warn().Err(gpsErr).Msg("gps location failed")

	pos, ipErr := r.fromIP(ctx)
	if ipErr == nil {
		span.SetAttributes(attribute.String("source", string(domain.SourceIP)))
		r.persist(ctx, pos)
		msg := gpsFailureMessage(gpsErr)
		r.apply(domain.LocationState{
			Position: pos,
			Source:   domain.SourceIP,
			Error:    &msg,
		})
		return
	}

	err = fmt.Errorf("resolve location: %w", errors.Join(gpsErr, ipErr))

	r.mu.Lock()
	defer r.mu.Unlock()
	msg := msgNoLocation
	r.state.IsLoading = false
	r.state.Error = &msg
}

func (r *LocationResolver) fromGPS(ctx context.Context) (domain.GeoPosition, error) {
	if r.gps == nil {
		return domain.GeoPosition{}, ports.ErrGeolocationUnsupported
	}

	if pq, ok := r.gps.(ports.PermissionQuerier); ok {
		perm, err := pq.Permission(ctx)
		if err != nil {
			return domain.GeoPosition{}, err
		}
		if perm == ports.PermissionDenied {
			return domain.GeoPosition{}, ports.ErrLocationBlocked
		}
	}

	ctx, cancel := context.WithTimeout(ctx, GPSOptions.Timeout)
	defer cancel()

	pos, err := r.gps.CurrentPosition(ctx, GPSOptions)
	if err != nil {
		return domain.GeoPosition{}, err
	}
	if !pos.InRange() {
		return domain.GeoPosition{}, fmt.Errorf("gps returned invalid position %v,%v", pos.Latitude, pos.Longitude)
	}
	return pos, nil
}

func (r *LocationResolver) fromIP(ctx context.Context) (domain.GeoPosition, error) {
	var errs []error
	for _, loc := range []ports.IPLocator{r.primary, r.secondary} {
		if loc == nil {
			continue
		}

		pos, err := loc.Locate(ctx)
		if err == nil && pos.Valid() {
			return pos, nil
		}
		if err == nil {
			err = fmt.Errorf("invalid position %v,%v", pos.Latitude, pos.Longitude)
		}

		obs.Logger(ctx).Warn().Str("provider", loc.Name()).Err(err).Msg("ip location failed")
		errs = append(errs, fmt.Errorf("%s: %w", loc.Name(), err))
	}

	if len(errs) == 0 {
		return domain.GeoPosition{}, errors.New("no ip locators configured")
	}
	return domain.GeoPosition{}, errors.Join(errs...)
}

func gpsFailureMessage(err error) string {
	switch {
	case errors.Is(err, ports.ErrLocationBlocked):
		return ports.ErrLocationBlocked.Error()
	case errors.Is(err, ports.ErrGeolocationUnsupported):
		return ports.ErrGeolocationUnsupported.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return msgGPSTimeout
	case err == nil || err.Error() == "":
		return msgGPSUnavailable
	}
	return err.Error()
}

func (r *LocationResolver) setLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.IsLoading = true
}

func (r *LocationResolver) apply(s domain.LocationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

// A failed write is logged only; the resolved state stands.
func (r *LocationResolver) persist(ctx context.Context, pos domain.GeoPosition) {
	b, err := json.Marshal(pos)
	if err == nil {
		err = r.store.Set(ctx, LastKnownLocationKey, string(b))
	}
	if err != nil {
		obs.Logger(ctx).Error().Err(err).Msg("persist last known location")
	}
}

func (r *LocationResolver) readStored(ctx context.Context) (domain.GeoPosition, bool) {
	raw, ok, err := r.store.Get(ctx, LastKnownLocationKey)
	if err != nil {
		obs.Logger(ctx).Warn().Err(err).Msg("read last known location")
		return domain.GeoPosition{}, false
	}
	if !ok {
		return domain.GeoPosition{}, false
	}
	return parseStored(raw)
}

func parseStored(raw string) (domain.GeoPosition, bool) {
	var pos domain.GeoPosition
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		return domain.GeoPosition{}, false
	}
	return pos, pos.Valid()
}

// Sync follows writes to the persisted fix made by other sessions until ctx
// ends. Stores with change notifications are watched; others are polled, as
// are notifying stores whose watch closes while ctx is still live.
func (r *LocationResolver) Sync(ctx context.Context) error {
	if n, ok := r.store.(ports.ChangeNotifier); ok {
		ch, err := n.Watch(ctx, LastKnownLocationKey)
		if err != nil {
			return fmt.Errorf("sync location: watch: %w", err)
		}
		for raw := range ch {
			if pos, ok := parseStored(raw); ok {
				r.adopt(ctx, pos)
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		obs.Logger(ctx).Warn().Msg("location watch closed, falling back to polling")
	}

	return r.poll(ctx)
}

func (r *LocationResolver) poll(ctx context.Context) error {
	interval := r.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if pos, ok := r.readStored(ctx); ok {
				r.adopt(ctx, pos)
			}
		}
	}
}

// adopt switches to a stored fix written elsewhere. Our own writes carry the
// current position and are ignored.
func (r *LocationResolver) adopt(ctx context.Context, pos domain.GeoPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Position == pos && !r.state.IsDefault {
		return
	}

	r.state = domain.LocationState{
		Position:  pos,
		Source:    domain.SourceGPS,
		IsLoading: false,
	}
	obs.Logger(ctx).Info().
		Float64("lat", pos.Latitude).
		Float64("lng", pos.Longitude).
		Msg("location updated by another session")
}
