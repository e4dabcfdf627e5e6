package florence

import "florence-server-go/internal/domain/schema"

// CaptionRequest asks for a whole-image caption.
type CaptionRequest struct {
	Image     schema.ImagePayload `json:"image"`
	Verbosity string              `json:"verbosity,omitempty"`
}

// DetectRequest covers the grounding and detection task variants.
type DetectRequest struct {
	Image  schema.ImagePayload `json:"image"`
	Mode   string              `json:"mode,omitempty"`
	Prompt string              `json:"prompt,omitempty"`
	Region *schema.Region      `json:"region,omitempty"`
}

// SegmentRequest covers the segmentation task variants.
type SegmentRequest struct {
	Image  schema.ImagePayload `json:"image"`
	Mode   string              `json:"mode,omitempty"`
	Prompt string              `json:"prompt,omitempty"`
	Region *schema.Region      `json:"region,omitempty"`
}

// OCRRequest asks for text extraction, optionally with region boxes.
type OCRRequest struct {
	Image schema.ImagePayload `json:"image"`
	Mode  string              `json:"mode,omitempty"`
}

// StatusData reports the service health and active model.
type StatusData struct {
	Model      string   `json:"model"`
	RuntimeURL string   `json:"runtime_url"`
	Tasks      []string `json:"tasks"`
}
