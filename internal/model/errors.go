package model

import (
	"errors"
	"fmt"
)

// ErrModelFit matches every fit failure with errors.Is.
var ErrModelFit = errors.New("model fit failed")

// ModelFitError explains why a regression could not be fit.
type ModelFitError struct {
	Reason string
	Err    error
}

func (e *ModelFitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model fit: %s: %v", e.Reason, e.Err)
	}
	return "model fit: " + e.Reason
}

func (e *ModelFitError) Unwrap() error { return e.Err }

func (e *ModelFitError) Is(target error) bool { return target == ErrModelFit }
