package api

import (
	"beerspots-service/internal/adapters/geoip"
	"beerspots-service/internal/adapters/gps"
	"beerspots-service/internal/adapters/store"
	"beerspots-service/internal/adapters/venues"
	"beerspots-service/internal/api/handlers"
	"beerspots-service/internal/domain"
	"beerspots-service/internal/ports"
	"beerspots-service/internal/services"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler  http.Handler
	feed     *gps.Feed
	provider *venues.MockVenueProvider
	resolver *services.LocationResolver
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newLoggedTestServer(t, zerolog.Nop())
}

func newLoggedTestServer(t *testing.T, logger zerolog.Logger) *testServer {
	t.Helper()

	lat, lng, dist := 52.2301, 21.0119, 0.4
	provider := venues.NewMockVenueProvider([]ports.VenueRow{
		{ID: 7, Name: "Pod Kuflem", Latitude: &lat, Longitude: &lng, Distance: &dist},
	})
	cache, err := services.NewViewportCache(provider)
	require.NoError(t, err)

	feed := gps.NewFeed()
	resolver, err := services.NewLocationResolver(
		store.NewMemoryStore(),
		feed,
		geoip.NewMockIPLocator("primary", domain.GeoPosition{Latitude: 50.06, Longitude: 19.94}, nil),
		nil,
	)
	require.NoError(t, err)

	h := NewRouter(Deps{
		Location: &handlers.LocationHandler{Resolver: resolver, GPS: feed},
		Venues:   &handlers.VenueHandler{Cache: cache},
		Logger:   logger,
	})

	return &testServer{handler: h, feed: feed, provider: provider, resolver: resolver}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRequestLogsCarryRequestID(t *testing.T) {
	var buf bytes.Buffer
	s := newLoggedTestServer(t, zerolog.New(&buf))

	req := httptest.NewRequest(http.MethodPost, "/location/gps", strings.NewReader(`{"latitude":54.352,"longitude":18.6466}`))
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	msgs := make([]string, 0, len(lines))
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "abc-123", entry["req_id"])
		msgs = append(msgs, entry["message"].(string))
	}
	assert.Equal(t, []string{"gps fix reported", "request"}, msgs)
}

func TestLocationFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/location", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state domain.LocationState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, domain.SourceDefault, state.Source)

	rec = s.do(t, http.MethodPost, "/location/gps", `{"latitude":54.352,"longitude":18.6466}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	s.resolver.Initialize(context.Background())
	select {
	case <-s.resolver.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("resolution did not finish")
	}

	rec = s.do(t, http.MethodGet, "/location", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, domain.SourceGPS, state.Source)
	assert.Equal(t, 54.352, state.Position.Latitude)
	assert.False(t, state.IsDefault)
	assert.Nil(t, state.Error)
}

func TestLocationReportValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing longitude", body: `{"latitude":52.2}`},
		{name: "out of range", body: `{"latitude":120,"longitude":21}`},
		{name: "unknown field", body: `{"latitude":52.2,"longitude":21,"alt":3}`},
		{name: "not json", body: `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/location/gps", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLocationDenied(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/location/gps/denied", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	state, err := s.feed.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ports.PermissionDenied, state)
}

func TestViewportAndVenues(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/viewport", `{"latitude":52.2,"longitude":21.0,"zoom":14}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var vr struct {
		Decision string         `json:"decision"`
		Venues   []domain.Venue `json:"venues"`
		Status   string         `json:"status"`
		Cell     string         `json:"cell"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vr))
	assert.Equal(t, "fetched", vr.Decision)
	assert.Equal(t, "ready", vr.Status)
	assert.Equal(t, "52.2:21.0:14", vr.Cell)
	require.Len(t, vr.Venues, 1)
	assert.Equal(t, domain.PriceUnknown, vr.Venues[0].CheapestBeerPrice)

	rec = s.do(t, http.MethodPost, "/viewport", `{"latitude":52.21,"longitude":21.01,"zoom":14}`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vr))
	assert.Equal(t, "skipped", vr.Decision)
	assert.Equal(t, 1, s.provider.Calls())

	rec = s.do(t, http.MethodGet, "/venues?q=kuflem", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(t, http.MethodGet, "/venues?q=nothing", "")
	assert.JSONEq(t, `{"venues":[],"count":0}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/venues/list", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(t, http.MethodPost, "/venues/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, s.provider.Calls())
}

func TestViewportValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/viewport", `{"latitude":52.2,"longitude":21.0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/viewport", `{"latitude":52.2,"longitude":21.0,"zoom":40}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, s.provider.Calls())
}

func TestViewportOnEquatorAndMeridian(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/viewport", `{"latitude":0,"longitude":32.58,"zoom":14}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/viewport", `{"latitude":51.48,"longitude":0,"zoom":14}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, s.provider.Calls())
}

func TestRefreshWithoutViewport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/venues/refresh", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/viewport", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
