// Package engagement computes normalized engagement rates and ranks posts by them.
package engagement

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// DivisionError reports a zero denominator. It unwraps to
// internalerr.ErrZeroDenominator.
type DivisionError struct {
	Interactions int
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("cannot compute engagement rate for %d interactions: denominator is zero", e.Interactions)
}

func (e *DivisionError) Unwrap() error { return internalerr.ErrZeroDenominator }

// RawRate returns (reactions+comments+shares)/denominator*100 without rounding.
func RawRate(reactions, comments, shares int, denominator float64) (float64, error) {
	interactions := reactions + comments + shares
	switch {
	case denominator == 0:
		return 0, &DivisionError{Interactions: interactions}
	case denominator < 0 || math.IsNaN(denominator) || math.IsInf(denominator, 0):
		return 0, fmt.Errorf("%w: got %v", internalerr.ErrInvalidDenominator, denominator)
	}
	return float64(interactions) / denominator * 100, nil
}

// Rate is RawRate rounded to 3 decimals, half away from zero.
func Rate(reactions, comments, shares int, denominator float64) (float64, error) {
	raw, err := RawRate(reactions, comments, shares, denominator)
	if err != nil {
		return 0, err
	}
	return Round3(raw), nil
}

// Round3 rounds to 3 decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// FormatRate renders a rate the way the archive shows it, e.g. "25.103%".
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 3, 64) + "%"
}
