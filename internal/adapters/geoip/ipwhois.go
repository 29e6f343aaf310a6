package geoip

import (
	"beerspots-service/internal/domain"
	"beerspots-service/internal/platform/httpclient"
	"beerspots-service/internal/platform/obs"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ipWhoIsResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// IPWhoIs locates the caller via https://ipwho.is/.
type IPWhoIs struct {
	session *http.Client
	url     string
}

func NewIPWhoIs(url string) *IPWhoIs {
	return &IPWhoIs{
		session: httpclient.New(5 * time.Second),
		url:     url,
	}
}

func (p *IPWhoIs) Name() string { return "ipwho.is" }

func (p *IPWhoIs) Locate(ctx context.Context) (_ domain.GeoPosition, err error) {
	defer obs.Time(ctx, "geoip.ipwhois.Locate")(&err)

	var decoded ipWhoIsResponse
	if err := httpclient.GetJSON(ctx, p.session, p.url, "", &decoded); err != nil {
		return domain.GeoPosition{}, fmt.Errorf("ipwho.is lookup: %w", err)
	}

	if !decoded.Success {
		msg := decoded.Message
		if msg == "" {
			msg = "IP data not available"
		}
		return domain.GeoPosition{}, fmt.Errorf("ipwho.is lookup: %s", msg)
	}

	return toPosition(decoded.Latitude, decoded.Longitude)
}

func toPosition(lat, lng *float64) (domain.GeoPosition, error) {
	if lat == nil || lng == nil {
		return domain.GeoPosition{}, errors.New("malformed geolocation response: missing coordinates")
	}

	pos := domain.GeoPosition{Latitude: *lat, Longitude: *lng}
	if !pos.Valid() {
		return domain.GeoPosition{}, fmt.Errorf("malformed geolocation response: invalid coordinates %v,%v", *lat, *lng)
	}

	return pos, nil
}
