package query

import "fmt"

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String returns "lat,lon".
func (p GeoPoint) String() string {
	return fmt.Sprintf("%v,%v", p.Lat, p.Lon)
}

// GeoBox is a bounding box given by its top-left and bottom-right corners.
type GeoBox struct {
	TopLeft     GeoPoint
	BottomRight GeoPoint
}
