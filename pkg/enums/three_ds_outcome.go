package enums

import "fmt"

// ThreeDSOutcome is the result reported back from a 3-D Secure challenge.
type ThreeDSOutcome string

const (
	ThreeDSOutcomeSuccess ThreeDSOutcome = "success"
	ThreeDSOutcomeFailed  ThreeDSOutcome = "failed"
)

// String implements fmt.Stringer.
func (t ThreeDSOutcome) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ThreeDSOutcome.
func (t ThreeDSOutcome) IsValid() bool {
	return t == ThreeDSOutcomeSuccess || t == ThreeDSOutcomeFailed
}

// ParseThreeDSOutcome converts raw input into a ThreeDSOutcome.
func ParseThreeDSOutcome(value string) (ThreeDSOutcome, error) {
	switch ThreeDSOutcome(value) {
	case ThreeDSOutcomeSuccess:
		return ThreeDSOutcomeSuccess, nil
	case ThreeDSOutcomeFailed:
		return ThreeDSOutcomeFailed, nil
	}
	return "", fmt.Errorf("invalid 3ds outcome %q", value)
}
