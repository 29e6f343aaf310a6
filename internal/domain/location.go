package domain

// Which method produced the current position estimate.
type LocationSource string

const (
	SourceGPS     LocationSource = "gps"
	SourceIP      LocationSource = "ip"
	SourceDefault LocationSource = "default"
)

// Represents the client session's best-known position.
// IsDefault means the position is the hardcoded fallback and must not be
// trusted for precise recommendations. Error carries a user-facing message,
// nil when the last resolution step succeeded cleanly.
type LocationState struct {
	Position  GeoPosition    `json:"position"`
	Source    LocationSource `json:"source"`
	IsLoading bool           `json:"is_loading"`
	IsDefault bool           `json:"is_default"`
	Error     *string        `json:"error"`
}

// Initial state when nothing is known yet: default position, resolution pending.
func PendingLocation() LocationState {
	return LocationState{
		Position:  DefaultPosition,
		Source:    SourceDefault,
		IsLoading: true,
		IsDefault: true,
	}
}

// State seeded from a persisted fix. Stored fixes count as GPS-equivalent.
func StoredLocation(pos GeoPosition) LocationState {
	return LocationState{
		Position: pos,
		Source:   SourceGPS,
	}
}
