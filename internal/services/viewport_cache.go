package services

import (
	"beerspots-service/internal/domain"
	"beerspots-service/internal/platform/obs"
	"beerspots-service/internal/ports"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// How long a fetched cell stays trustworthy.
	CacheLifetime = 5 * time.Minute
	// Zoom change that forces a refetch inside the same bucket.
	MinZoomDelta  = 2
	// Size of the distance-sorted list view.
	ListModeLimit = 40

	msgVenuesFailed = "could not load venues"
)

var ErrNoViewport = errors.New("no viewport has been reported yet")

type CacheStatus string

const (
	StatusIdle     CacheStatus = "idle"
	StatusFetching CacheStatus = "fetching"
	StatusReady    CacheStatus = "ready"
	StatusErrored  CacheStatus = "errored"
)

// Decision describes what a viewport change resulted in.
type Decision string

const (
	DecisionFetched Decision = "fetched"
	DecisionCached  Decision = "cached"
	DecisionSkipped Decision = "skipped"
	DecisionDropped Decision = "dropped"
	DecisionFailed  Decision = "failed"
)

type CacheEntry struct {
	Key       string
	Timestamp time.Time
	Venues    []domain.Venue
}

func (e CacheEntry) alive(now time.Time) bool {
	return now.Sub(e.Timestamp) < CacheLifetime
}

// Current result of the cache as seen by the map and list views.
type ViewportSnapshot struct {
	Venues    []domain.Venue `json:"venues"`
	IsLoading bool           `json:"is_loading"`
	Error     *string        `json:"error"`
	Status    CacheStatus    `json:"status"`
	Cell      string         `json:"cell,omitempty"`
}

type viewport struct {
	center domain.GeoPosition
	zoom   float64
}

// ViewportCache turns map viewport changes into venue queries, reusing
// results per grid cell for CacheLifetime. At most one fetch runs at a time;
// viewport changes that arrive meanwhile are dropped. Callers debounce.
//
// A fetch that lands after newer viewport changes is still applied.
type ViewportCache struct {
	provider ports.VenueProvider
	now      func() time.Time

	mu       sync.Mutex
	entries  map[string]CacheEntry
	lastCell *domain.GridCell
	last     *viewport
	inFlight bool

	status CacheStatus
	venues []domain.Venue
	err    *string
	cell   string
}

func NewViewportCache(provider ports.VenueProvider) (*ViewportCache, error) {
	if provider == nil {
		return nil, errors.New("new viewport cache: provider must not be nil")
	}

	return &ViewportCache{
		provider: provider,
		now:      time.Now,
		entries:  map[string]CacheEntry{},
		status:   StatusIdle,
		venues:   []domain.Venue{},
	}, nil
}

// RadiusForZoom maps a zoom level to a query radius in km.
// Closer zoom means a smaller radius.
func RadiusForZoom(zoom int) int {
	switch {
	case zoom >= 16:
		return 2
	case zoom == 15:
		return 5
	case zoom == 14:
		return 10
	case zoom == 13:
		return 15
	case zoom == 12:
		return 25
	case zoom == 11:
		return 40
	case zoom == 10:
		return 60
	default:
		return 100
	}
}

// OnViewportChanged evaluates a settled map viewport.
//
// The call is dropped while a fetch is in flight. It is skipped when the
// current result is ready, the last fetched cell is in the same bucket, the
// zoom moved less than MinZoomDelta and that cell's entry is still alive. A live entry for the
// new cell is served without a network call. Anything else fetches.
func (c *ViewportCache) OnViewportChanged(ctx context.Context, center domain.GeoPosition, zoom float64) Decision {
	log := obs.Logger(ctx)

	c.mu.Lock()

	now := c.now()
	c.evictExpired(now)

	cell := domain.NewGridCell(center, zoom)
	c.last = &viewport{center: center, zoom: zoom}

	if c.inFlight {
		c.mu.Unlock()
		log.Debug().Str("cell", cell.Key()).Msg("viewport change dropped, fetch in flight")
		return DecisionDropped
	}

	if c.lastCell != nil &&
		c.status == StatusReady &&
		c.lastCell.SameBucket(cell) &&
		c.lastCell.ZoomDelta(cell) < MinZoomDelta {
		if _, ok := c.entries[c.lastCell.Key()]; ok {
			c.mu.Unlock()
			log.Debug().Str("cell", cell.Key()).Msg("viewport change within last cell")
			return DecisionSkipped
		}
	}

	if entry, ok := c.entries[cell.Key()]; ok {
		c.venues = entry.Venues
		c.err = nil
		c.status = StatusReady
		c.cell = entry.Key
		c.lastCell = &cell
		c.mu.Unlock()
		log.Debug().Str("cell", cell.Key()).Msg("venues served from cache")
		return DecisionCached
	}

	return c.fetchLocked(ctx, center, cell)
}

// Refresh refetches the last reported viewport, ignoring the skip rule and
// any cached entry.
func (c *ViewportCache) Refresh(ctx context.Context) (Decision, error) {
	c.mu.Lock()

	if c.last == nil {
		c.mu.Unlock()
		return "", fmt.Errorf("refresh venues: %w", ErrNoViewport)
	}
	if c.inFlight {
		c.mu.Unlock()
		return DecisionDropped, nil
	}

	c.evictExpired(c.now())
	cell := domain.NewGridCell(c.last.center, c.last.zoom)
	return c.fetchLocked(ctx, c.last.center, cell), nil
}

// fetchLocked is entered with mu held and returns with it released.
func (c *ViewportCache) fetchLocked(ctx context.Context, center domain.GeoPosition, cell domain.GridCell) Decision {
	c.inFlight = true
	c.status = StatusFetching
	c.mu.Unlock()

	venues, err := c.fetch(ctx, center, cell)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		msg := msgVenuesFailed
		c.venues = []domain.Venue{}
		c.err = &msg
		c.status = StatusErrored
		c.cell = cell.Key()
		c.lastCell = nil
		obs.Logger(ctx).Error().Err(err).Str("cell", cell.Key()).Msg("fetch venues")
		return DecisionFailed
	}

	entry := CacheEntry{Key: cell.Key(), Timestamp: c.now(), Venues: venues}
	c.entries[entry.Key] = entry
	c.venues = venues
	c.err = nil
	c.status = StatusReady
	c.cell = entry.Key
	c.lastCell = &cell
	return DecisionFetched
}

func (c *ViewportCache) fetch(ctx context.Context, center domain.GeoPosition, cell domain.GridCell) (_ []domain.Venue, err error) {
	radius := RadiusForZoom(cell.ZoomBucket)

	ctx, span := tracer.Start(ctx, "fetch-venues")
	defer func() { obs.EndSpan(span, err) }()
	span.SetAttributes(
		attribute.String("cell", cell.Key()),
		attribute.Int("radius_km", radius),
	)
	defer obs.Time(ctx, "venues.fetch")(&err)

	rows, err := c.provider.NearbyVenues(ctx, ports.NearbyQuery{Center: center, RadiusKm: radius})
	if err != nil {
		return nil, fmt.Errorf("fetch venues for %s: %w", cell.Key(), err)
	}

	return TransformRows(rows, center), nil
}

// evictExpired must be called with mu held.
func (c *ViewportCache) evictExpired(now time.Time) {
	for key, entry := range c.entries {
		if !entry.alive(now) {
			delete(c.entries, key)
		}
	}
}

// TransformRows converts API rows into venues. Rows without coordinates are
// dropped. A missing distance is measured from center.
func TransformRows(rows []ports.VenueRow, center domain.GeoPosition) []domain.Venue {
	return lo.FilterMap(rows, func(row ports.VenueRow, _ int) (domain.Venue, bool) {
		if row.Latitude == nil || row.Longitude == nil {
			return domain.Venue{}, false
		}
		pos := domain.GeoPosition{Latitude: *row.Latitude, Longitude: *row.Longitude}
		if !pos.Valid() {
			return domain.Venue{}, false
		}

		v := domain.Venue{
			ID:                row.ID,
			Name:              row.Name,
			Position:          pos,
			CheapestBeerName:  domain.BeerUnknown,
			CheapestBeerPrice: domain.PriceUnknown,
			Address:           row.Address,
		}
		if row.CheapestBeer != nil && strings.TrimSpace(*row.CheapestBeer) != "" {
			v.CheapestBeerName = *row.CheapestBeer
		}
		// a zero price is how the API reports "no price"
		if row.Price != nil && *row.Price > 0 {
			v.CheapestBeerPrice = fmt.Sprintf("%.2f", *row.Price)
		}
		if row.AverageRating != nil {
			v.AverageRating = *row.AverageRating
		}
		if row.ReviewCount != nil {
			v.ReviewCount = *row.ReviewCount
		}
		if row.Distance != nil {
			v.DistanceKm = *row.Distance
		} else {
			v.DistanceKm = center.DistanceKm(pos)
		}
		return v, true
	})
}

// Snapshot returns the current venue list with its loading and error state.
func (c *ViewportCache) Snapshot() ViewportSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ViewportSnapshot{
		Venues:    slices.Clone(c.venues),
		IsLoading: c.inFlight,
		Error:     c.err,
		Status:    c.status,
		Cell:      c.cell,
	}
}

// ListMode returns the current venues sorted by distance, nearest
// ListModeLimit only.
func (c *ViewportCache) ListMode() []domain.Venue {
	c.mu.Lock()
	venues := slices.Clone(c.venues)
	c.mu.Unlock()

	slices.SortStableFunc(venues, func(a, b domain.Venue) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	if len(venues) > ListModeLimit {
		venues = venues[:ListModeLimit]
	}
	return venues
}

// Search filters the current venues by a case-insensitive term matched
// against name, address, beer and price label.
func (c *ViewportCache) Search(term string) []domain.Venue {
	c.mu.Lock()
	venues := slices.Clone(c.venues)
	c.mu.Unlock()

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return venues
	}

	return lo.Filter(venues, func(v domain.Venue, _ int) bool {
		return lo.SomeBy([]string{v.Name, v.Address, v.CheapestBeerName, v.CheapestBeerPrice}, func(s string) bool {
			return strings.Contains(strings.ToLower(s), term)
		})
	})
}
