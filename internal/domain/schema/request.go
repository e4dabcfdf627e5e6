package schema

import (
	"fmt"

	"florence-server-go/internal/domain/task"
	"florence-server-go/internal/platform/errors"
)

// ImagePayload carries the image either inline as base64 or by URL. The
// transport layer owns the decoded bytes for the duration of one request;
// nothing retains them afterwards.
type ImagePayload struct {
	URL    string `json:"url,omitempty"`
	Data   string `json:"data,omitempty"`
	Format string `json:"format,omitempty"`
}

// Empty reports whether no image source was supplied.
func (p ImagePayload) Empty() bool {
	return p.URL == "" && p.Data == ""
}

// TaskRequest is the validated unit of work handed to the composer.
type TaskRequest struct {
	Task   task.Task    `json:"task"`
	Image  ImagePayload `json:"image"`
	Prompt string       `json:"prompt,omitempty"`
	Region *Region      `json:"region,omitempty"`
}

// Validate enforces the conditional-requirement matrix: prompt and region are
// each either required or forbidden depending on the task, and a supplied
// region must be a well-formed quantized box. Requests failing here never
// reach the composer or the model.
func (r *TaskRequest) Validate() error {
	if r.Image.Empty() {
		return errors.New(errors.KindValidation, "request.validate", "image payload is required")
	}

	reqs, err := r.Task.Requirements()
	if err != nil {
		return err
	}

	switch reqs.Prompt {
	case task.Required:
		if r.Prompt == "" {
			return errors.New(errors.KindValidation, "request.validate",
				fmt.Sprintf("task %s requires a prompt", r.Task))
		}
	case task.Forbidden:
		if r.Prompt != "" {
			return errors.New(errors.KindValidation, "request.validate",
				fmt.Sprintf("task %s does not take a prompt", r.Task))
		}
	}

	switch reqs.Region {
	case task.Required:
		if r.Region == nil {
			return errors.New(errors.KindValidation, "request.validate",
				fmt.Sprintf("task %s requires a region", r.Task))
		}
	case task.Forbidden:
		if r.Region != nil {
			return errors.New(errors.KindValidation, "request.validate",
				fmt.Sprintf("task %s does not take a region", r.Task))
		}
	}

	if r.Region != nil {
		if err := r.Region.Validate(); err != nil {
			return err
		}
	}

	return nil
}
