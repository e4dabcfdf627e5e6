// Package composer translates validated task requests into the literal prompt
// strings Florence-2 understands, and reshapes the model's raw token-keyed
// output into typed responses. It is pure: the only side effects live in the
// runtime client that actually performs inference.
package composer

import (
	"fmt"

	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/domain/task"
	"florence-server-go/internal/platform/errors"
)

// EncodeRegion serializes a quantized region in the model's literal location
// token format: <loc_x1><loc_y1><loc_x2><loc_y2>.
func EncodeRegion(r schema.Region) string {
	return fmt.Sprintf("<loc_%d><loc_%d><loc_%d><loc_%d>", r.X1, r.Y1, r.X2, r.Y2)
}

// Compose maps a validated request to the exact prompt string the model
// expects: the task token, followed by the free-text prompt or the encoded
// region for tasks that take one. The mapping is exhaustive over the task
// vocabulary; a task without a rule is a defect, not a user error.
func Compose(req *schema.TaskRequest) (string, error) {
	reqs, err := req.Task.Requirements()
	if err != nil {
		return "", err
	}

	prompt := string(req.Task)
	switch {
	case reqs.Prompt == task.Required:
		prompt += req.Prompt
	case reqs.Region == task.Required:
		if req.Region == nil {
			return "", errors.New(errors.KindValidation, "composer.compose",
				fmt.Sprintf("task %s requires a region", req.Task))
		}
		prompt += EncodeRegion(*req.Region)
	}
	return prompt, nil
}
