package dto

import (
	"beerspots-service/internal/domain"
	"beerspots-service/internal/services"
)

// Settled map viewport reported by the map widget.
type ViewportRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Zoom      *float64 `json:"zoom"`
}

type ViewportResponse struct {
	Decision services.Decision `json:"decision"`
	services.ViewportSnapshot
}

type VenueListResponse struct {
	Venues []domain.Venue `json:"venues"`
	Count  int            `json:"count"`
}

func NewVenueList(venues []domain.Venue) VenueListResponse {
	if venues == nil {
		venues = []domain.Venue{}
	}
	return VenueListResponse{Venues: venues, Count: len(venues)}
}
