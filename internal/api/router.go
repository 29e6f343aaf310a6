package api

import (
	"beerspots-service/internal/api/handlers"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Deps struct {
	Location    *handlers.LocationHandler
	Venues      *handlers.VenueHandler
	CORSOrigins []string
	Logger      zerolog.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", requestIDHeader},
		AllowCredentials: true,
	}).Handler)
	r.Use(requestLogger(d.Logger))

	r.Get("/health", handlers.Health)

	r.Route("/location", func(r chi.Router) {
		r.Get("/", d.Location.Get)
		r.Post("/gps", d.Location.ReportFix)
		r.Post("/gps/denied", d.Location.Denied)
		r.Post("/gps/unsupported", d.Location.Unsupported)
	})

	r.Post("/viewport", d.Venues.Viewport)

	r.Route("/venues", func(r chi.Router) {
		r.Get("/", d.Venues.List)
		r.Get("/list", d.Venues.Nearest)
		r.Post("/refresh", d.Venues.Refresh)
	})

	return otelhttp.NewHandler(r, "beerspots-api")
}
