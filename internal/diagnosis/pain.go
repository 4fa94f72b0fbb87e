package diagnosis

import (
	"errors"
	"fmt"
)

const (
	MinPainLevel     = 0
	MaxPainLevel     = 5
	DefaultPainLevel = 2
)

var (
	PainAreas = []string{"Head", "Chest", "Abdomen", "Back", "Leg", "Arm", "Neck", "Shoulder", "Eye", "Ear", "Throat"}
	PainTimes = []string{"Morning", "Afternoon", "Evening", "Night", "Always"}

	ErrInvalidPain = errors.New("invalid pain details")
)

// Pain describes where and when it hurts. It is shown with the result and is
// not part of the model input.
type Pain struct {
	Area  string `json:"area"`
	Level int    `json:"level"`
	Time  string `json:"time"`
}

func (p Pain) Validate() error {
	if !contains(PainAreas, p.Area) {
		return fmt.Errorf("%w: unknown area %q", ErrInvalidPain, p.Area)
	}
	if p.Level < MinPainLevel || p.Level > MaxPainLevel {
		return fmt.Errorf("%w: level %d outside %d-%d", ErrInvalidPain, p.Level, MinPainLevel, MaxPainLevel)
	}
	if !contains(PainTimes, p.Time) {
		return fmt.Errorf("%w: unknown time %q", ErrInvalidPain, p.Time)
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
