package domain

// Direction tells whether an entry adds to or removes from an account.
type Direction string

const (
	Inflow  Direction = "INFLOW"
	Outflow Direction = "OUTFLOW"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == Inflow || d == Outflow
}

// Frequency is the cadence of a recurrence template.
// FrequencyNone marks a template that fires exactly once, at its start date.
type Frequency string

const (
	FrequencyNone      Frequency = "NONE"
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// IsValid reports whether f is a known frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyNone, FrequencyDaily, FrequencyWeekly,
		FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Recurring reports whether f produces a series rather than a single occurrence.
func (f Frequency) Recurring() bool {
	return f.IsValid() && f != FrequencyNone
}
