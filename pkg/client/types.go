package client

import (
	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/domain/task"
)

// The request and response types live in internal packages shared with the
// server. External modules cannot import those paths, so the client package
// re-exports everything a caller needs under its own name.

// Task is a Florence-2 task token as echoed in responses.
type Task = task.Task

// Region is a bounding box in quantized [0,999] coordinates.
type Region = schema.Region

// ImagePayload carries the image either inline as base64 or by URL.
type ImagePayload = schema.ImagePayload

// TaskResponse is the typed result of any task request.
type TaskResponse = schema.TaskResponse

// Detection is one labeled bounding box in pixel coordinates.
type Detection = schema.Detection

// Polygon is one segmentation ring: a flat list of x,y pairs.
type Polygon = schema.Polygon

// TextRegion pairs a quadrilateral box with the text read inside it.
type TextRegion = schema.TextRegion

// CaptionVerbosity selects how detailed the generated caption is.
type CaptionVerbosity = task.CaptionVerbosity

const (
	CaptionSimple       = task.CaptionSimple
	CaptionDetailed     = task.CaptionDetailed
	CaptionMoreDetailed = task.CaptionMoreDetailed
)

// DetectionMode selects one of the object detection task variants.
type DetectionMode = task.DetectionMode

const (
	DetectDefault           = task.DetectDefault
	DetectDenseCaption      = task.DetectDenseCaption
	DetectRegionProposal    = task.DetectRegionProposal
	DetectCaptionGrounding  = task.DetectCaptionGrounding
	DetectRegionCategory    = task.DetectRegionCategory
	DetectRegionDescription = task.DetectRegionDescription
	DetectOpenVocabulary    = task.DetectOpenVocabulary
)

// SegmentationMode selects one of the segmentation task variants.
type SegmentationMode = task.SegmentationMode

const (
	SegmentReferringExpression = task.SegmentReferringExpression
	SegmentRegion              = task.SegmentRegion
)

// OCRMode selects plain text extraction or text with region boxes.
type OCRMode = task.OCRMode

const (
	OCRDefault     = task.OCRDefault
	OCRWithRegions = task.OCRWithRegions
)
