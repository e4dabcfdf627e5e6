package schema

import (
	"encoding/json"

	"florence-server-go/internal/domain/task"
)

// RawOutput is the untyped structure the model runtime returns: one entry
// keyed by the task token that produced it.
type RawOutput map[string]json.RawMessage

// Detection is one labeled bounding box in pixel coordinates, as returned by
// the model's post-processing.
type Detection struct {
	Box   [4]float64 `json:"box"`
	Label string     `json:"label,omitempty"`
}

// Polygon is one segmentation ring: a flat list of x,y pairs.
type Polygon struct {
	Points []float64 `json:"points"`
	Label  string    `json:"label,omitempty"`
}

// TextRegion pairs a quadrilateral box with the text read inside it.
type TextRegion struct {
	QuadBox []float64 `json:"quad_box"`
	Text    string    `json:"text"`
}

// TaskResponse is the typed result for one request. Exactly one of the
// variant fields is populated, matching the task family. Responses are
// one-shot values: built once per request and never mutated.
type TaskResponse struct {
	Task        task.Task    `json:"task"`
	Text        string       `json:"text,omitempty"`
	Detections  []Detection  `json:"detections,omitempty"`
	Polygons    []Polygon    `json:"polygons,omitempty"`
	TextRegions []TextRegion `json:"text_regions,omitempty"`
}
