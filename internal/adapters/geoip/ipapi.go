package geoip

import (
	"beerspots-service/internal/domain"
	"beerspots-service/internal/platform/httpclient"
	"beerspots-service/internal/platform/obs"
	"context"
	"fmt"
	"net/http"
	"time"
)

type ipAPIResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// IPAPI locates the caller via ip-api.com (backup provider).
type IPAPI struct {
	session *http.Client
	url     string
}

func NewIPAPI(url string) *IPAPI {
	return &IPAPI{
		session: httpclient.New(5 * time.Second),
		url:     url,
	}
}

func (p *IPAPI) Name() string { return "ip-api.com" }

func (p *IPAPI) Locate(ctx context.Context) (_ domain.GeoPosition, err error) {
	defer obs.Time(ctx, "geoip.ipapi.Locate")(&err)

	var decoded ipAPIResponse
	if err := httpclient.GetJSON(ctx, p.session, p.url, "", &decoded); err != nil {
		return domain.GeoPosition{}, fmt.Errorf("ip-api.com lookup: %w", err)
	}

	if decoded.Status != "success" {
		return domain.GeoPosition{}, fmt.Errorf("ip-api.com lookup: status %q %s", decoded.Status, decoded.Message)
	}

	return toPosition(decoded.Lat, decoded.Lon)
}
