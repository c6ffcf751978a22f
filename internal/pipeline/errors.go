package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult matches any EmptyResultError.
	ErrEmptyResult = errors.New("empty result")
	// ErrJoinIntegrity matches any JoinIntegrityError.
	ErrJoinIntegrity = errors.New("join integrity")
)

// EmptyResultError indicates the outlier filter removed every row; the bounds are too strict
// for this input.
type EmptyResultError struct {
	Stats FilterStats
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("outlier filter removed all %d rows (price %d, mileage %d, excluded %d): check bounds",
		e.Stats.In, e.Stats.PriceDropped, e.Stats.MileageDropped, e.Stats.Excluded)
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

// JoinIntegrityError indicates the CarSpecs/Pricing round trip did not reproduce Cars.
type JoinIntegrityError struct {
	Reason string
}

func (e *JoinIntegrityError) Error() string {
	return fmt.Sprintf("split/join round trip failed: %s", e.Reason)
}

func (e *JoinIntegrityError) Is(target error) bool { return target == ErrJoinIntegrity }
