package composer

import (
	"encoding/json"
	"strings"
	"testing"

	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/domain/task"
	"florence-server-go/internal/platform/errors"
)

func validRequest(t task.Task) *schema.TaskRequest {
	req := &schema.TaskRequest{
		Task:  t,
		Image: schema.ImagePayload{Data: "aGVsbG8="},
	}
	reqs, err := t.Requirements()
	if err != nil {
		panic(err)
	}
	if reqs.Prompt == task.Required {
		req.Prompt = "a green car"
	}
	if reqs.Region == task.Required {
		req.Region = &schema.Region{X1: 52, Y1: 332, X2: 932, Y2: 774}
	}
	return req
}

func TestCompose_ExhaustiveOverVocabulary(t *testing.T) {
	for _, tk := range task.All() {
		prompt, err := Compose(validRequest(tk))
		if err != nil {
			t.Errorf("task %q has no composition rule: %v", tk, err)
			continue
		}
		if prompt == "" {
			t.Errorf("task %q composed an empty prompt", tk)
		}
		if !strings.HasPrefix(prompt, string(tk)) {
			t.Errorf("task %q prompt %q does not start with its token", tk, prompt)
		}
	}
}

func TestCompose_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		req      *schema.TaskRequest
		expected string
	}{
		{
			name: "plain caption",
			req: &schema.TaskRequest{
				Task:  task.Caption,
				Image: schema.ImagePayload{Data: "x"},
			},
			expected: "<CAPTION>",
		},
		{
			name: "region category",
			req: &schema.TaskRequest{
				Task:   task.RegionToCategory,
				Image:  schema.ImagePayload{Data: "x"},
				Region: &schema.Region{X1: 52, Y1: 332, X2: 932, Y2: 774},
			},
			expected: "<REGION_TO_CATEGORY><loc_52><loc_332><loc_932><loc_774>",
		},
		{
			name: "caption grounding",
			req: &schema.TaskRequest{
				Task:   task.CaptionToPhraseGrounding,
				Image:  schema.ImagePayload{Data: "x"},
				Prompt: "A green car parked in front of a yellow building.",
			},
			expected: "<CAPTION_TO_PHRASE_GROUNDING>A green car parked in front of a yellow building.",
		},
		{
			name: "region segmentation",
			req: &schema.TaskRequest{
				Task:   task.RegionToSegmentation,
				Image:  schema.ImagePayload{Data: "x"},
				Region: &schema.Region{X1: 0, Y1: 0, X2: 999, Y2: 999},
			},
			expected: "<REGION_TO_SEGMENTATION><loc_0><loc_0><loc_999><loc_999>",
		},
		{
			name: "ocr with region takes no suffix",
			req: &schema.TaskRequest{
				Task:  task.OCRWithRegion,
				Image: schema.ImagePayload{Data: "x"},
			},
			expected: "<OCR_WITH_REGION>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := Compose(tt.req)
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			if prompt != tt.expected {
				t.Errorf("Compose() = %q, expected %q", prompt, tt.expected)
			}
		})
	}
}

func TestCompose_UnknownTaskIsComposerError(t *testing.T) {
	req := &schema.TaskRequest{
		Task:  task.Task("<POSE_ESTIMATION>"),
		Image: schema.ImagePayload{Data: "x"},
	}
	_, err := Compose(req)
	if err == nil {
		t.Fatal("unknown task accepted")
	}
	if !errors.IsKind(err, errors.KindComposer) {
		t.Errorf("expected composer kind, got %v", errors.KindOf(err))
	}
}

func TestCompose_MissingRegionRejected(t *testing.T) {
	req := &schema.TaskRequest{
		Task:  task.RegionToCategory,
		Image: schema.ImagePayload{Data: "x"},
	}
	_, err := Compose(req)
	if err == nil {
		t.Fatal("region task without a region accepted")
	}
	if !errors.IsKind(err, errors.KindValidation) {
		t.Errorf("expected validation kind, got %v", errors.KindOf(err))
	}
}

func rawOutput(t *testing.T, token string, payload interface{}) schema.RawOutput {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal synthetic output: %v", err)
	}
	return schema.RawOutput{token: data}
}

func TestParse_CaptionText(t *testing.T) {
	raw := rawOutput(t, "<CAPTION>", "a car")

	resp, err := Parse(task.Caption, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if resp.Text != "a car" {
		t.Errorf("text = %q, expected %q", resp.Text, "a car")
	}
	if resp.Task != task.Caption {
		t.Errorf("task = %q, expected %q", resp.Task, task.Caption)
	}
}

func TestParse_RegionCategoryStripsLocTags(t *testing.T) {
	raw := rawOutput(t, "<REGION_TO_CATEGORY>", "car<loc_52><loc_332><loc_932><loc_774>")

	resp, err := Parse(task.RegionToCategory, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if resp.Text != "car" {
		t.Errorf("text = %q, expected %q", resp.Text, "car")
	}
}

func TestParse_DetectionPreservesOrder(t *testing.T) {
	raw := rawOutput(t, "<CAPTION_TO_PHRASE_GROUNDING>", map[string]interface{}{
		"bboxes": [][]float64{
			{34.2, 158.1, 583.9, 374.6},
			{1.6, 4.1, 639.4, 305.0},
		},
		"labels": []string{"A green car", "a yellow building"},
	})

	resp, err := Parse(task.CaptionToPhraseGrounding, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(resp.Detections) != 2 {
		t.Fatalf("detections = %d, expected 2", len(resp.Detections))
	}
	if resp.Detections[0].Label != "A green car" || resp.Detections[1].Label != "a yellow building" {
		t.Errorf("detection order not preserved: %+v", resp.Detections)
	}
	if resp.Detections[0].Box != [4]float64{34.2, 158.1, 583.9, 374.6} {
		t.Errorf("box values lost: %+v", resp.Detections[0].Box)
	}
}

func TestParse_RegionProposalWithoutLabels(t *testing.T) {
	raw := rawOutput(t, "<REGION_PROPOSAL>", map[string]interface{}{
		"bboxes": [][]float64{{0, 0, 10, 10}, {5, 5, 20, 20}},
		"labels": []string{},
	})

	resp, err := Parse(task.RegionProposal, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(resp.Detections) != 2 {
		t.Fatalf("detections = %d, expected 2", len(resp.Detections))
	}
	if resp.Detections[0].Label != "" {
		t.Errorf("expected empty label, got %q", resp.Detections[0].Label)
	}
}

func TestParse_Segmentation(t *testing.T) {
	raw := rawOutput(t, "<REFERRING_EXPRESSION_SEGMENTATION>", map[string]interface{}{
		"polygons": [][][]float64{
			{{10, 10, 100, 10, 100, 100, 10, 100}},
		},
		"labels": []string{""},
	})

	resp, err := Parse(task.ReferringExpressionSegmentation, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(resp.Polygons) != 1 {
		t.Fatalf("polygons = %d, expected 1", len(resp.Polygons))
	}
	if len(resp.Polygons[0].Points) != 8 {
		t.Errorf("points = %d, expected 8", len(resp.Polygons[0].Points))
	}
}

func TestParse_OpenVocabulary(t *testing.T) {
	raw := rawOutput(t, "<OPEN_VOCABULARY_DETECTION>", map[string]interface{}{
		"bboxes":          [][]float64{{10, 10, 50, 50}},
		"bboxes_labels":   []string{"a red hat"},
		"polygons":        [][][]float64{},
		"polygons_labels": []string{},
	})

	resp, err := Parse(task.OpenVocabularyDetection, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(resp.Detections) != 1 || resp.Detections[0].Label != "a red hat" {
		t.Errorf("unexpected detections: %+v", resp.Detections)
	}
}

func TestParse_OCRWithRegion(t *testing.T) {
	raw := rawOutput(t, "<OCR_WITH_REGION>", map[string]interface{}{
		"quad_boxes": [][]float64{
			{167.1, 50.8, 375.6, 50.8, 375.6, 114.3, 167.1, 114.3},
		},
		"labels": []string{"CUDA FOR ENGINEERS"},
	})

	resp, err := Parse(task.OCRWithRegion, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(resp.TextRegions) != 1 {
		t.Fatalf("text regions = %d, expected 1", len(resp.TextRegions))
	}
	if resp.TextRegions[0].Text != "CUDA FOR ENGINEERS" {
		t.Errorf("text = %q", resp.TextRegions[0].Text)
	}
}

func TestParse_ShapeMismatches(t *testing.T) {
	tests := []struct {
		name string
		task task.Task
		raw  schema.RawOutput
	}{
		{
			name: "missing task key",
			task: task.Caption,
			raw:  schema.RawOutput{"<OD>": json.RawMessage(`"nope"`)},
		},
		{
			name: "caption returns object",
			task: task.Caption,
			raw:  schema.RawOutput{"<CAPTION>": json.RawMessage(`{"bboxes": []}`)},
		},
		{
			name: "detection returns string",
			task: task.ObjectDetection,
			raw:  schema.RawOutput{"<OD>": json.RawMessage(`"a car"`)},
		},
		{
			name: "box with three coordinates",
			task: task.ObjectDetection,
			raw:  schema.RawOutput{"<OD>": json.RawMessage(`{"bboxes": [[1,2,3]], "labels": ["car"]}`)},
		},
		{
			name: "labels length mismatch",
			task: task.ObjectDetection,
			raw:  schema.RawOutput{"<OD>": json.RawMessage(`{"bboxes": [[1,2,3,4],[5,6,7,8]], "labels": ["car"]}`)},
		},
		{
			name: "quad box with six coordinates",
			task: task.OCRWithRegion,
			raw:  schema.RawOutput{"<OCR_WITH_REGION>": json.RawMessage(`{"quad_boxes": [[1,2,3,4,5,6]], "labels": ["x"]}`)},
		},
		{
			name: "odd polygon coordinates",
			task: task.RegionToSegmentation,
			raw:  schema.RawOutput{"<REGION_TO_SEGMENTATION>": json.RawMessage(`{"polygons": [[[1,2,3]]], "labels": [""]}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.task, tt.raw)
			if err == nil {
				t.Fatal("shape mismatch accepted")
			}
			if !errors.IsKind(err, errors.KindModel) {
				t.Errorf("expected model kind, got %v", errors.KindOf(err))
			}
			if !strings.Contains(err.Error(), string(tt.task)) {
				t.Errorf("error %q does not identify the task", err.Error())
			}
		})
	}
}

func TestComposeParse_RoundTrip(t *testing.T) {
	// Composing a request and decomposing a well-formed synthetic output for
	// the same task must reproduce the synthetic values exactly.
	req := validRequest(task.ObjectDetection)
	if _, err := Compose(req); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	boxes := [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}
	labels := []string{"cat", "dog", "bird"}
	raw := rawOutput(t, string(task.ObjectDetection), map[string]interface{}{
		"bboxes": boxes,
		"labels": labels,
	})

	resp, err := Parse(task.ObjectDetection, raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for i, d := range resp.Detections {
		if d.Label != labels[i] {
			t.Errorf("detection %d label = %q, expected %q", i, d.Label, labels[i])
		}
		for j := 0; j < 4; j++ {
			if d.Box[j] != boxes[i][j] {
				t.Errorf("detection %d box[%d] = %v, expected %v", i, j, d.Box[j], boxes[i][j])
			}
		}
	}
}
