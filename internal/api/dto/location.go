package dto

// Device fix reported by the client shell.
type GPSFixRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
