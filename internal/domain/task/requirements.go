package task

import (
	"fmt"

	"florence-server-go/internal/platform/errors"
)

// FieldRule states whether an optional request field must or must not be set
// for a given task.
type FieldRule int

const (
	Forbidden FieldRule = iota
	Required
)

// Requirements is the conditional-requirement matrix for one task: which of
// the optional request fields (free-text prompt, quantized region) it takes.
type Requirements struct {
	Prompt FieldRule
	Region FieldRule
}

// Requirements reports the field rules for the task. The matrix is exhaustive
// over the vocabulary; an unlisted task is a programming defect.
func (t Task) Requirements() (Requirements, error) {
	switch t {
	case Caption, DetailedCaption, MoreDetailedCaption,
		ObjectDetection, DenseRegionCaption, RegionProposal,
		OCR, OCRWithRegion:
		return Requirements{Prompt: Forbidden, Region: Forbidden}, nil
	case CaptionToPhraseGrounding, OpenVocabularyDetection,
		ReferringExpressionSegmentation:
		return Requirements{Prompt: Required, Region: Forbidden}, nil
	case RegionToCategory, RegionToDescription, RegionToSegmentation:
		return Requirements{Prompt: Forbidden, Region: Required}, nil
	default:
		return Requirements{}, errors.New(errors.KindComposer, "task.requirements",
			fmt.Sprintf("no requirements registered for task %q", string(t)))
	}
}

// Shape tags the structure the model returns for a task family.
type Shape int

const (
	ShapeText Shape = iota
	ShapeRegionText
	ShapeDetection
	ShapeOpenVocabulary
	ShapeSegmentation
	ShapeOCRRegions
)

// Shape reports the raw output structure the model produces for the task.
func (t Task) Shape() (Shape, error) {
	switch t {
	case Caption, DetailedCaption, MoreDetailedCaption, OCR:
		return ShapeText, nil
	case RegionToCategory, RegionToDescription:
		return ShapeRegionText, nil
	case ObjectDetection, DenseRegionCaption, RegionProposal, CaptionToPhraseGrounding:
		return ShapeDetection, nil
	case OpenVocabularyDetection:
		return ShapeOpenVocabulary, nil
	case ReferringExpressionSegmentation, RegionToSegmentation:
		return ShapeSegmentation, nil
	case OCRWithRegion:
		return ShapeOCRRegions, nil
	default:
		return 0, errors.New(errors.KindComposer, "task.shape",
			fmt.Sprintf("no output shape registered for task %q", string(t)))
	}
}
