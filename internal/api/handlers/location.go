package handlers

import (
	"beerspots-service/internal/api/dto"
	"beerspots-service/internal/domain"
	"beerspots-service/internal/platform/obs"
	"net/http"
)

// Receives device fixes and permission outcomes from the client shell.
type GPSReporter interface {
	Report(pos domain.GeoPosition) error
	Deny()
	Unsupported()
}

type LocationStater interface {
	State() domain.LocationState
}

type LocationHandler struct {
	Resolver LocationStater
	GPS      GPSReporter
}

// Get returns the session's current location state.
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Resolver.State())
}

// ReportFix accepts a device fix for the pending or next GPS request.
func (h *LocationHandler) ReportFix(w http.ResponseWriter, r *http.Request) {
	var req dto.GPSFixRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, r, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	pos := domain.GeoPosition{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := h.GPS.Report(pos); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	obs.Logger(r.Context()).Debug().Float64("lat", pos.Latitude).Float64("lng", pos.Longitude).Msg("gps fix reported")
	w.WriteHeader(http.StatusAccepted)
}

func (h *LocationHandler) Denied(w http.ResponseWriter, r *http.Request) {
	h.GPS.Deny()
	w.WriteHeader(http.StatusAccepted)
}

func (h *LocationHandler) Unsupported(w http.ResponseWriter, r *http.Request) {
	h.GPS.Unsupported()
	w.WriteHeader(http.StatusAccepted)
}
