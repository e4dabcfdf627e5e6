package composer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/domain/task"
	"florence-server-go/internal/platform/errors"
)

// locTagPattern matches the location tokens the model echoes back in
// region-to-text answers, e.g. "car<loc_52><loc_332><loc_932><loc_774>".
var locTagPattern = regexp.MustCompile(`<loc_\d+>`)

// detectionOutput is the raw shape for the box-list task families.
type detectionOutput struct {
	Bboxes [][]float64 `json:"bboxes"`
	Labels []string    `json:"labels"`
}

// openVocabularyOutput mixes boxes and polygons, each with their own labels.
type openVocabularyOutput struct {
	Bboxes         [][]float64   `json:"bboxes"`
	BboxesLabels   []string      `json:"bboxes_labels"`
	Polygons       [][][]float64 `json:"polygons"`
	PolygonsLabels []string      `json:"polygons_labels"`
}

// segmentationOutput carries one polygon group per instance; each group is a
// list of rings, each ring a flat x,y list.
type segmentationOutput struct {
	Polygons [][][]float64 `json:"polygons"`
	Labels   []string      `json:"labels"`
}

// ocrRegionOutput pairs quadrilateral boxes with the text read inside them.
type ocrRegionOutput struct {
	QuadBoxes [][]float64 `json:"quad_boxes"`
	Labels    []string    `json:"labels"`
}

func shapeError(t task.Task, detail string) error {
	return errors.New(errors.KindModel, "composer.parse",
		fmt.Sprintf("task %s: %s", t, detail))
}

// Parse reshapes the model's raw output for the given task into a typed
// response. Any mismatch between the expected and observed structure is fatal
// for the request: it signals a model/schema version drift, not a transient
// condition.
func Parse(t task.Task, raw schema.RawOutput) (*schema.TaskResponse, error) {
	entry, ok := raw[string(t)]
	if !ok {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		return nil, shapeError(t, fmt.Sprintf("output missing task key, observed keys %v", keys))
	}

	shape, err := t.Shape()
	if err != nil {
		return nil, err
	}

	resp := &schema.TaskResponse{Task: t}

	switch shape {
	case task.ShapeText:
		var text string
		if err := json.Unmarshal(entry, &text); err != nil {
			return nil, shapeError(t, fmt.Sprintf("expected string output: %v", err))
		}
		resp.Text = text

	case task.ShapeRegionText:
		var text string
		if err := json.Unmarshal(entry, &text); err != nil {
			return nil, shapeError(t, fmt.Sprintf("expected string output: %v", err))
		}
		resp.Text = strings.TrimSpace(locTagPattern.ReplaceAllString(text, ""))

	case task.ShapeDetection:
		var out detectionOutput
		if err := json.Unmarshal(entry, &out); err != nil {
			return nil, shapeError(t, fmt.Sprintf("expected bboxes/labels object: %v", err))
		}
		detections, err := pairDetections(t, out.Bboxes, out.Labels)
		if err != nil {
			return nil, err
		}
		resp.Detections = detections

	case task.ShapeOpenVocabulary:
		var out openVocabularyOutput
		if err := json.Unmarshal(entry, &out); err != nil {
			return nil, shapeError(t, fmt.Sprintf("expected open vocabulary object: %v", err))
		}
		detections, err := pairDetections(t, out.Bboxes, out.BboxesLabels)
		if err != nil {
			return nil, err
		}
		resp.Detections = detections
		polygons, err := pairPolygons(t, out.Polygons, out.PolygonsLabels)
		if err != nil {
			return nil, err
		}
		resp.Polygons = polygons

	case task.ShapeSegmentation:
		var out segmentationOutput
		if err := json.Unmarshal(entry, &out); err != nil {
			return nil, shapeError(t, fmt.Sprintf("expected polygons object: %v", err))
		}
		polygons, err := pairPolygons(t, out.Polygons, out.Labels)
		if err != nil {
			return nil, err
		}
		resp.Polygons = polygons

	case task.ShapeOCRRegions:
		var out ocrRegionOutput
		if err := json.Unmarshal(entry, &out); err != nil {
			return nil, shapeError(t, fmt.Sprintf("expected quad_boxes/labels object: %v", err))
		}
		if len(out.Labels) != len(out.QuadBoxes) {
			return nil, shapeError(t, fmt.Sprintf("%d quad boxes but %d labels",
				len(out.QuadBoxes), len(out.Labels)))
		}
		regions := make([]schema.TextRegion, 0, len(out.QuadBoxes))
		for i, quad := range out.QuadBoxes {
			if len(quad) != 8 {
				return nil, shapeError(t, fmt.Sprintf("quad box %d has %d coordinates, expected 8", i, len(quad)))
			}
			regions = append(regions, schema.TextRegion{
				QuadBox: quad,
				Text:    out.Labels[i],
			})
		}
		resp.TextRegions = regions
	}

	return resp, nil
}

// pairDetections zips boxes with labels preserving model order. Labels may be
// absent entirely (region proposal), but a partial label list is a shape error.
func pairDetections(t task.Task, bboxes [][]float64, labels []string) ([]schema.Detection, error) {
	if len(labels) != 0 && len(labels) != len(bboxes) {
		return nil, shapeError(t, fmt.Sprintf("%d boxes but %d labels", len(bboxes), len(labels)))
	}

	detections := make([]schema.Detection, 0, len(bboxes))
	for i, box := range bboxes {
		if len(box) != 4 {
			return nil, shapeError(t, fmt.Sprintf("box %d has %d coordinates, expected 4", i, len(box)))
		}
		d := schema.Detection{Box: [4]float64{box[0], box[1], box[2], box[3]}}
		if len(labels) > 0 {
			d.Label = labels[i]
		}
		detections = append(detections, d)
	}
	return detections, nil
}

// pairPolygons flattens instance polygon groups into one ring per entry,
// tagging every ring with its instance label.
func pairPolygons(t task.Task, groups [][][]float64, labels []string) ([]schema.Polygon, error) {
	if len(labels) != 0 && len(labels) != len(groups) {
		return nil, shapeError(t, fmt.Sprintf("%d polygon groups but %d labels", len(groups), len(labels)))
	}

	var polygons []schema.Polygon
	for i, group := range groups {
		label := ""
		if len(labels) > 0 {
			label = labels[i]
		}
		for j, ring := range group {
			if len(ring) == 0 || len(ring)%2 != 0 {
				return nil, shapeError(t, fmt.Sprintf("polygon %d ring %d has %d coordinates, expected non-empty pairs", i, j, len(ring)))
			}
			polygons = append(polygons, schema.Polygon{
				Points: ring,
				Label:  label,
			})
		}
	}
	return polygons, nil
}
