package sigma

import (
	"fmt"

	"github.com/grailbio/edusigma/bintable"
)

// DegenerateInputError reports input from which a statistic cannot be
// computed, such as a zero control-read total.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return "degenerate input: " + e.Reason
}

// InsufficientDataError reports a statistic that has too few values to be
// estimated.
type InsufficientDataError struct {
	// Stage names the failing estimator.
	Stage string
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d value(s), need at least %d", e.Stage, e.Have, e.Need)
}

// DegenerateRangeError reports a zero-width background noise range.
type DegenerateRangeError struct {
	Low, High float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("background noise range [%v, %v] has zero width", e.Low, e.High)
}

// NonPositiveValueError reports a value whose logarithm is needed but
// undefined.
type NonPositiveValueError struct {
	Key   bintable.Key
	Field string
	Value float64
}

func (e *NonPositiveValueError) Error() string {
	return fmt.Sprintf("bin %v: %s = %v is not positive, cannot take its logarithm", e.Key, e.Field, e.Value)
}

// Warning is a non-fatal condition attached to one bin.  The affected value
// is written as missing.
type Warning struct {
	Key     bintable.Key
	Field   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%v %s: %s", w.Key, w.Field, w.Message)
}
