package simulation

import (
	"fmt"
	"strings"
)

// WeatherCondition is the simulated weather state selected on the dashboard.
// The zero value is not a valid condition.
type WeatherCondition uint8

const (
	// Sunny means full solar input and normal operation.
	Sunny WeatherCondition = iota + 1
	// Cloudy means reduced solar input; edge devices conserve energy.
	Cloudy
	// Storm means almost no solar input; edge devices go to deep sleep.
	Storm
)

var conditionNames = map[WeatherCondition]string{
	Sunny:  "Sunny",
	Cloudy: "Cloudy",
	Storm:  "Storm",
}

// Conditions returns the selectable conditions in selection-control order.
func Conditions() []WeatherCondition {
	return []WeatherCondition{Sunny, Cloudy, Storm}
}

func (c WeatherCondition) Valid() bool {
	_, ok := conditionNames[c]
	return ok
}

func (c WeatherCondition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("WeatherCondition(%d)", uint8(c))
}

func (c WeatherCondition) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, &InvalidConditionError{Condition: c}
	}
	return []byte(c.String()), nil
}

func (c *WeatherCondition) UnmarshalText(text []byte) error {
	parsed, err := ParseCondition(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCondition maps one of the literal option values ("Sunny", "Cloudy",
// "Storm") to its condition. Matching ignores case and surrounding spaces.
func ParseCondition(value string) (WeatherCondition, error) {
	normalized := strings.TrimSpace(value)
	for _, c := range Conditions() {
		if strings.EqualFold(normalized, conditionNames[c]) {
			return c, nil
		}
	}
	return 0, &InvalidConditionError{Raw: value}
}

// OperatingMode is the power-management label implied by the weather.
type OperatingMode string

const (
	ModeNormal       OperatingMode = "Normal"
	ModeConservation OperatingMode = "Conservation Mode"
	ModeDeepSleep    OperatingMode = "Deep Sleep"
)

// InvalidConditionError is returned for any value outside the three
// enumerated conditions. Retrying with the same input cannot succeed.
type InvalidConditionError struct {
	Condition WeatherCondition
	Raw       string
}

func (e *InvalidConditionError) Error() string {
	if e.Raw != "" || e.Condition == 0 {
		return fmt.Sprintf("invalid weather condition %q: expected one of Sunny, Cloudy, Storm", e.Raw)
	}
	return fmt.Sprintf("invalid weather condition %d: expected one of Sunny, Cloudy, Storm", uint8(e.Condition))
}
