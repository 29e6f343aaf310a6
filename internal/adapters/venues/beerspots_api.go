package venues

import (
	"beerspots-service/internal/platform/httpclient"
	"beerspots-service/internal/platform/obs"
	"beerspots-service/internal/ports"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// flexFloat accepts JSON numbers, numeric strings ("7.50") and null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type nearbyResponse struct {
	Data []struct {
		ID            int        `json:"id"`
		Name          string     `json:"name"`
		Latitude      *flexFloat `json:"latitude"`
		Longitude     *flexFloat `json:"longitude"`
		Address       string     `json:"address"`
		CheapestBeer  *string    `json:"cheapest_beer"`
		Price         *flexFloat `json:"price"`
		AverageRating *flexFloat `json:"average_rating"`
		ReviewCount   *flexFloat `json:"review_count"`
		Distance      *flexFloat `json:"distance"`
	} `json:"data"`
}

// BeerSpotsAPI implements VenueProvider against the BeerSpots REST API.
// The bearer token is optional for read endpoints.
type BeerSpotsAPI struct {
	session *http.Client
	baseURL string
	token   string
}

func NewBeerSpotsAPI(baseURL, token string) (*BeerSpotsAPI, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("venues api base url is empty")
	}

	return &BeerSpotsAPI{
		session: httpclient.New(10 * time.Second),
		baseURL: baseURL,
		token:   token,
	}, nil
}

// NearbyVenues calls GET /beer-spots/nearbywithbeers.
func (a *BeerSpotsAPI) NearbyVenues(
	ctx context.Context,
	q ports.NearbyQuery,
) (_ []ports.VenueRow, err error) {
	defer obs.Time(ctx, "venues.NearbyVenues")(&err)

	if q.RadiusKm <= 0 {
		return nil, fmt.Errorf("nearby venues: radius must be positive, got %d", q.RadiusKm)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Center.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Center.Longitude, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(q.RadiusKm))

	endpoint := a.baseURL + "/beer-spots/nearbywithbeers?" + params.Encode()

	var decoded nearbyResponse
	if err := httpclient.GetJSON(ctx, a.session, endpoint, a.token, &decoded); err != nil {
		return nil, fmt.Errorf("nearby venues: %w", err)
	}

	if decoded.Data == nil {
		return nil, errors.New("nearby venues: response has no data")
	}

	rows := make([]ports.VenueRow, 0, len(decoded.Data))
	for _, d := range decoded.Data {
		rows = append(rows, ports.VenueRow{
			ID:            d.ID,
			Name:          d.Name,
			Latitude:      d.Latitude.ptr(),
			Longitude:     d.Longitude.ptr(),
			Address:       d.Address,
			CheapestBeer:  d.CheapestBeer,
			Price:         d.Price.ptr(),
			AverageRating: d.AverageRating.ptr(),
			ReviewCount:   d.ReviewCount.intPtr(),
			Distance:      d.Distance.ptr(),
		})
	}

	return rows, nil
}

func (f *flexFloat) ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

func (f *flexFloat) intPtr() *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

var _ ports.VenueProvider = (*BeerSpotsAPI)(nil)
