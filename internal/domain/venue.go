package domain

const (
	// Label used when the remote API has no price for a venue's cheapest beer.
	PriceUnknown = "price unknown"
	// Label used when the remote API has no cheapest beer name.
	BeerUnknown = "unknown"
)

// A beer-serving venue as shown on the map and in the list.
// Venues are owned by the remote API; the service only transforms and caches them.
type Venue struct {
	ID                int         `json:"id"`
	Name              string      `json:"name"`
	Position          GeoPosition `json:"position"`
	CheapestBeerName  string      `json:"cheapest_beer_name"`
	CheapestBeerPrice string      `json:"cheapest_beer_price"`
	AverageRating     float64     `json:"average_rating"`
	ReviewCount       int         `json:"review_count"`
	Address           string      `json:"address"`
	DistanceKm        float64     `json:"distance_km"`
}
