package feed

import "encoding/json"

// geoJSON mirrors the USGS summary feed document. Only the fields the
// dashboard uses are mapped; the feed carries many more.
type geoJSON struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string     `json:"type"`
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   *geometry  `json:"geometry"`
}

type properties struct {
	Mag   *float64 `json:"mag"` // null for some automated solutions
	Place string   `json:"place"`
	Time  int64    `json:"time"` // epoch milliseconds
}

// geometry is always a Point in the USGS summary feeds:
// coordinates = [longitude, latitude, depth_km].
type geometry struct {
	Type        string `json:"type"`
	Coordinates coords `json:"coordinates"`
}

// coords tolerates malformed coordinate arrays rather than failing the
// whole document; a feature with unusable coordinates is still counted
// in statistics, it just never becomes a marker.
type coords []float64

func (c *coords) UnmarshalJSON(data []byte) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		*c = nil
		return nil
	}
	*c = vals
	return nil
}
