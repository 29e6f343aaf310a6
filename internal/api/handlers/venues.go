package handlers

import (
	"beerspots-service/internal/api/dto"
	"beerspots-service/internal/domain"
	"beerspots-service/internal/services"
	"context"
	"errors"
	"math"
	"net/http"
)

type VenueHandler struct {
	Cache *services.ViewportCache
}

// Viewport evaluates a settled map viewport and returns the resulting venues.
func (h *VenueHandler) Viewport(w http.ResponseWriter, r *http.Request) {
	var req dto.ViewportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil || req.Zoom == nil {
		writeError(w, r, http.StatusBadRequest, "latitude, longitude and zoom are required")
		return
	}

	center := domain.GeoPosition{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if !center.InRange() {
		writeError(w, r, http.StatusBadRequest, "center is out of range")
		return
	}
	if math.IsNaN(*req.Zoom) || *req.Zoom < 0 || *req.Zoom > 22 {
		writeError(w, r, http.StatusBadRequest, "zoom must be between 0 and 22")
		return
	}

	// A client that disconnects must not abort the shared fetch.
	decision := h.Cache.OnViewportChanged(context.WithoutCancel(r.Context()), center, *req.Zoom)

	writeJSON(w, r, http.StatusOK, dto.ViewportResponse{
		Decision:         decision,
		ViewportSnapshot: h.Cache.Snapshot(),
	})
}

// List returns the current venues, filtered by ?q= when given.
func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.NewVenueList(h.Cache.Search(r.URL.Query().Get("q"))))
}

// Nearest returns the distance-sorted list view.
func (h *VenueHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.NewVenueList(h.Cache.ListMode()))
}

// Refresh forces a refetch of the last viewport.
func (h *VenueHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	decision, err := h.Cache.Refresh(context.WithoutCancel(r.Context()))
	if errors.Is(err, services.ErrNoViewport) {
		writeError(w, r, http.StatusConflict, services.ErrNoViewport.Error())
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "refresh failed")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ViewportResponse{
		Decision:         decision,
		ViewportSnapshot: h.Cache.Snapshot(),
	})
}
