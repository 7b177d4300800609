// Package pi computes the Participation Index from survey counts.
//
// The index weights each level of the participation ladder and divides by the
// total number of participants counted:
//
//	PI = (0.2*fa + 0.4*fc + 0.6*fi + 0.8*fcol + 1.0*femp) / N
//	N  = fa + fc + fi + fcol + femp
//
// The result lies in [0, 1]. A zero N means there is no data, which is
// distinct from an index of zero.
package pi

import (
	"errors"
	"fmt"
	"math"
)

// Ladder weights, lowest to highest participation level.
const (
	WeightAttend      = 0.2
	WeightConsult     = 0.4
	WeightInvolve     = 0.6
	WeightCollaborate = 0.8
	WeightEmpower     = 1.0
)

var (
	ErrNegativeCount  = errors.New("participation count must not be negative")
	ErrNonFiniteCount = errors.New("participation count must be a finite number")
)

// Counts holds the five participation counts of a survey. A nil field means
// the count was not recorded and is treated as zero.
type Counts struct {
	Attend      *float64
	Consult     *float64
	Involve     *float64
	Collaborate *float64
	Empower     *float64
}

// value returns the usable value of a count. Absent, negative and
// non-finite counts contribute nothing.
func value(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0
	}
	return *v
}

// Total returns N, the sum of the five counts. ok is false when every count
// is absent.
func Total(c Counts) (float64, bool) {
	if c.Attend == nil && c.Consult == nil && c.Involve == nil &&
		c.Collaborate == nil && c.Empower == nil {
		return 0, false
	}
	return value(c.Attend) + value(c.Consult) + value(c.Involve) +
		value(c.Collaborate) + value(c.Empower), true
}

// Compute returns the Participation Index for c. ok is false when the counts
// sum to zero, meaning no participation data was recorded.
func Compute(c Counts) (float64, bool) {
	fa := value(c.Attend)
	fc := value(c.Consult)
	fi := value(c.Involve)
	fcol := value(c.Collaborate)
	femp := value(c.Empower)

	n := fa + fc + fi + fcol + femp
	if n == 0 {
		return 0, false
	}

	weighted := fa*WeightAttend + fc*WeightConsult + fi*WeightInvolve +
		fcol*WeightCollaborate + femp*WeightEmpower
	return weighted / n, true
}

// Ptr is Compute in its storage form: nil when there is no data.
func Ptr(c Counts) *float64 {
	v, ok := Compute(c)
	if !ok {
		return nil
	}
	return &v
}

// Validate reports the first count that cannot be used as survey data.
func Validate(c Counts) error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"attend_fa", c.Attend},
		{"consult_fc", c.Consult},
		{"involve_fi", c.Involve},
		{"collaborate_fcol", c.Collaborate},
		{"empower_femp", c.Empower},
	}
	for _, f := range fields {
		if err := ValidateCount(f.v); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

// ValidateCount checks a single count. A nil count is valid.
func ValidateCount(v *float64) error {
	switch {
	case v == nil:
		return nil
	case math.IsNaN(*v) || math.IsInf(*v, 0):
		return ErrNonFiniteCount
	case *v < 0:
		return ErrNegativeCount
	}
	return nil
}

// Percent converts an index in [0, 1] to a percentage.
func Percent(pi float64) float64 {
	return pi * 100
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Format renders an index for display, e.g. "46.67%" or "no data".
func Format(pi *float64) string {
	if pi == nil {
		return "no data"
	}
	return fmt.Sprintf("%.2f%%", Percent(*pi))
}
