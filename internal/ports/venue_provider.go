package ports

import (
	"beerspots-service/internal/domain"
	"context"
)

// Query for venues around a center point.
type NearbyQuery struct {
	Center   domain.GeoPosition
	RadiusKm int
}

// Raw venue row as returned by the remote API.
// Optional fields are pointers so a missing value can be told apart from zero.
type VenueRow struct {
	ID            int
	Name          string
	Latitude      *float64
	Longitude     *float64
	Address       string
	CheapestBeer  *string
	Price         *float64
	AverageRating *float64
	ReviewCount   *int
	Distance      *float64
}

// Contract for the remote venues API.
type VenueProvider interface {
	// Return venue rows around q.Center within q.RadiusKm.
	NearbyVenues(ctx context.Context, q NearbyQuery) ([]VenueRow, error)
}
