// Package task defines the closed vocabulary of Florence-2 task tokens and
// the per-family request modes that select them. The string values here cross
// the wire between client and server and must never drift between the two.
package task

import (
	"fmt"

	"florence-server-go/internal/platform/errors"
)

// Task is a Florence-2 task token, the literal string embedded in the prompt
// that selects the model behaviour. The model's raw output is keyed by the
// same token.
type Task string

const (
	Caption                         Task = "<CAPTION>"
	DetailedCaption                 Task = "<DETAILED_CAPTION>"
	MoreDetailedCaption             Task = "<MORE_DETAILED_CAPTION>"
	ObjectDetection                 Task = "<OD>"
	DenseRegionCaption              Task = "<DENSE_REGION_CAPTION>"
	RegionProposal                  Task = "<REGION_PROPOSAL>"
	CaptionToPhraseGrounding        Task = "<CAPTION_TO_PHRASE_GROUNDING>"
	OpenVocabularyDetection         Task = "<OPEN_VOCABULARY_DETECTION>"
	RegionToCategory                Task = "<REGION_TO_CATEGORY>"
	RegionToDescription             Task = "<REGION_TO_DESCRIPTION>"
	ReferringExpressionSegmentation Task = "<REFERRING_EXPRESSION_SEGMENTATION>"
	RegionToSegmentation            Task = "<REGION_TO_SEGMENTATION>"
	OCR                             Task = "<OCR>"
	OCRWithRegion                   Task = "<OCR_WITH_REGION>"
)

// All returns every task token in the vocabulary. Tests use this to assert
// that the composer covers the vocabulary exhaustively.
func All() []Task {
	return []Task{
		Caption,
		DetailedCaption,
		MoreDetailedCaption,
		ObjectDetection,
		DenseRegionCaption,
		RegionProposal,
		CaptionToPhraseGrounding,
		OpenVocabularyDetection,
		RegionToCategory,
		RegionToDescription,
		ReferringExpressionSegmentation,
		RegionToSegmentation,
		OCR,
		OCRWithRegion,
	}
}

// CaptionVerbosity selects how detailed the generated caption is.
type CaptionVerbosity string

const (
	CaptionSimple       CaptionVerbosity = "simple"
	CaptionDetailed     CaptionVerbosity = "detailed"
	CaptionMoreDetailed CaptionVerbosity = "more_detailed"
)

// Task maps the verbosity level to its task token.
func (v CaptionVerbosity) Task() (Task, error) {
	switch v {
	case CaptionSimple, "":
		return Caption, nil
	case CaptionDetailed:
		return DetailedCaption, nil
	case CaptionMoreDetailed:
		return MoreDetailedCaption, nil
	default:
		return "", errors.New(errors.KindValidation, "task.caption",
			fmt.Sprintf("unknown caption verbosity: %q", string(v)))
	}
}

// DetectionMode selects one of the object detection task variants.
type DetectionMode string

const (
	DetectDefault           DetectionMode = "default"
	DetectDenseCaption      DetectionMode = "dense_caption"
	DetectRegionProposal    DetectionMode = "region_proposal"
	DetectCaptionGrounding  DetectionMode = "caption_grounding"
	DetectRegionCategory    DetectionMode = "region_category"
	DetectRegionDescription DetectionMode = "region_description"
	DetectOpenVocabulary    DetectionMode = "open_vocabulary"
)

func (m DetectionMode) Task() (Task, error) {
	switch m {
	case DetectDefault, "":
		return ObjectDetection, nil
	case DetectDenseCaption:
		return DenseRegionCaption, nil
	case DetectRegionProposal:
		return RegionProposal, nil
	case DetectCaptionGrounding:
		return CaptionToPhraseGrounding, nil
	case DetectRegionCategory:
		return RegionToCategory, nil
	case DetectRegionDescription:
		return RegionToDescription, nil
	case DetectOpenVocabulary:
		return OpenVocabularyDetection, nil
	default:
		return "", errors.New(errors.KindValidation, "task.detect",
			fmt.Sprintf("unknown detection mode: %q", string(m)))
	}
}

// SegmentationMode selects one of the segmentation task variants.
type SegmentationMode string

const (
	SegmentReferringExpression SegmentationMode = "referring_expression"
	SegmentRegion              SegmentationMode = "region"
)

func (m SegmentationMode) Task() (Task, error) {
	switch m {
	case SegmentReferringExpression, "":
		return ReferringExpressionSegmentation, nil
	case SegmentRegion:
		return RegionToSegmentation, nil
	default:
		return "", errors.New(errors.KindValidation, "task.segment",
			fmt.Sprintf("unknown segmentation mode: %q", string(m)))
	}
}

// OCRMode selects plain text extraction or text with region boxes.
type OCRMode string

const (
	OCRDefault     OCRMode = "default"
	OCRWithRegions OCRMode = "with_region"
)

func (m OCRMode) Task() (Task, error) {
	switch m {
	case OCRDefault, "":
		return OCR, nil
	case OCRWithRegions:
		return OCRWithRegion, nil
	default:
		return "", errors.New(errors.KindValidation, "task.ocr",
			fmt.Sprintf("unknown ocr mode: %q", string(m)))
	}
}
