package enums

import "fmt"

// DeltaType selects how a price adjustment is applied.
type DeltaType string

const (
	DeltaTypeAbs     DeltaType = "abs"
	DeltaTypePercent DeltaType = "percent"
)

var validDeltaTypes = []DeltaType{DeltaTypeAbs, DeltaTypePercent}

func (d DeltaType) String() string {
	return string(d)
}

func (d DeltaType) IsValid() bool {
	for _, candidate := range validDeltaTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDeltaType(value string) (DeltaType, error) {
	for _, candidate := range validDeltaTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delta type %q", value)
}

// BreakdownType labels the origin of a price breakdown line.
type BreakdownType string

const (
	BreakdownBase        BreakdownType = "base"
	BreakdownQuestion    BreakdownType = "question"
	BreakdownDefect      BreakdownType = "defect"
	BreakdownAccessory   BreakdownType = "accessory"
	BreakdownNegotiation BreakdownType = "negotiation"
	BreakdownAdjustment  BreakdownType = "adjustment"
)

var validBreakdownTypes = []BreakdownType{
	BreakdownBase,
	BreakdownQuestion,
	BreakdownDefect,
	BreakdownAccessory,
	BreakdownNegotiation,
	BreakdownAdjustment,
}

func (b BreakdownType) String() string {
	return string(b)
}

func (b BreakdownType) IsValid() bool {
	for _, candidate := range validBreakdownTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

func ParseBreakdownType(value string) (BreakdownType, error) {
	for _, candidate := range validBreakdownTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid breakdown type %q", value)
}

// DefectSeverity grades catalog defects for display.
type DefectSeverity string

const (
	DefectSeverityMinor    DefectSeverity = "minor"
	DefectSeverityModerate DefectSeverity = "moderate"
	DefectSeverityMajor    DefectSeverity = "major"
)

var validDefectSeverities = []DefectSeverity{
	DefectSeverityMinor,
	DefectSeverityModerate,
	DefectSeverityMajor,
}

func (d DefectSeverity) IsValid() bool {
	for _, candidate := range validDefectSeverities {
		if candidate == d {
			return true
		}
	}
	return false
}
