package schema

import (
	"fmt"

	"florence-server-go/internal/platform/errors"
)

// LocBins is the number of quantized location bins per axis. Florence-2 has
// exactly 1000 location tokens, <loc_0> through <loc_999>, so coordinates are
// bounded inclusively by LocBins-1 regardless of source image resolution.
const LocBins = 1000

// Region is a rectangular area of interest in the quantized coordinate space.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Validate enforces range and ordering. Out-of-range or degenerate boxes are
// rejected, never clamped.
func (r Region) Validate() error {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"x1", r.X1}, {"y1", r.Y1}, {"x2", r.X2}, {"y2", r.Y2},
	} {
		if c.value < 0 || c.value > LocBins-1 {
			return errors.New(errors.KindValidation, "region.validate",
				fmt.Sprintf("coordinate %s=%d outside quantized range [0,%d]", c.name, c.value, LocBins-1))
		}
	}
	if r.X1 >= r.X2 {
		return errors.New(errors.KindValidation, "region.validate",
			fmt.Sprintf("degenerate box: x1=%d must be less than x2=%d", r.X1, r.X2))
	}
	if r.Y1 >= r.Y2 {
		return errors.New(errors.KindValidation, "region.validate",
			fmt.Sprintf("degenerate box: y1=%d must be less than y2=%d", r.Y1, r.Y2))
	}
	return nil
}
