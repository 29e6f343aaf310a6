package domain

import (
	"fmt"
	"math"
)

// Size of a grid bucket in degrees for both latitude and longitude.
const GridStep = 0.1

// Coarse viewport bucket used as a cache key.
// Buckets are stored as integer indices (degrees / GridStep) so that
// comparisons are not affected by floating point drift.
type GridCell struct {
	latIdx     int
	lngIdx     int
	ZoomBucket int
}

// NewGridCell rounds a viewport center to the nearest bucket and zoom to the nearest level.
func NewGridCell(center GeoPosition, zoom float64) GridCell {
	return GridCell{
		latIdx:     int(math.Round(center.Latitude / GridStep)),
		lngIdx:     int(math.Round(center.Longitude / GridStep)),
		ZoomBucket: int(math.Round(zoom)),
	}
}

func (c GridCell) LatBucket() float64 { return float64(c.latIdx) * GridStep }
func (c GridCell) LngBucket() float64 { return float64(c.lngIdx) * GridStep }

// Key renders the cell as "lat:lng:zoom", e.g. "52.2:21.0:14".
func (c GridCell) Key() string {
	return fmt.Sprintf("%.1f:%.1f:%d", c.LatBucket(), c.LngBucket(), c.ZoomBucket)
}

// SameBucket reports whether other is less than one grid step away in both
// latitude and longitude.
func (c GridCell) SameBucket(other GridCell) bool {
	return absInt(c.latIdx-other.latIdx) < 1 && absInt(c.lngIdx-other.lngIdx) < 1
}

// ZoomDelta is the absolute zoom difference between two cells.
func (c GridCell) ZoomDelta(other GridCell) int {
	return absInt(c.ZoomBucket - other.ZoomBucket)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
