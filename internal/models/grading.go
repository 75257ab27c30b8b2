package models

// GradeBand maps a minimum percentage to a letter grade.
type GradeBand struct {
	MinPercentage float64 `json:"min_percentage"`
	Grade         string  `json:"grade"`
	Label         string  `json:"label,omitempty"`
}

// GradeBands are ordered highest threshold first.
type GradeBands []GradeBand

// DefaultGradeBands is the WAEC-style scale used when none is configured.
func DefaultGradeBands() GradeBands {
	return GradeBands{
		{MinPercentage: 70, Grade: "A", Label: "Excellent"},
		{MinPercentage: 60, Grade: "B", Label: "Very Good"},
		{MinPercentage: 50, Grade: "C", Label: "Credit"},
		{MinPercentage: 45, Grade: "D", Label: "Pass"},
		{MinPercentage: 40, Grade: "E", Label: "Fair"},
		{MinPercentage: 0, Grade: "F", Label: "Fail"},
	}
}

// Letter returns the grade for percentage, or "F" when no band matches.
func (b GradeBands) Letter(percentage float64) string {
	for _, band := range b {
		if percentage >= band.MinPercentage {
			return band.Grade
		}
	}
	return "F"
}
