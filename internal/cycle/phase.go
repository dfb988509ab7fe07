package cycle

import "strings"

// Phase is a coarse label for a range of cycle days.
type Phase string

// Known phases.
const (
	Menstruation Phase = "Menstruation"
	Follicular   Phase = "Follicular"
	Ovulation    Phase = "Ovulation"
	Luteal       Phase = "Luteal"
	Unknown      Phase = "Unknown"
)

// Phases lists every phase in cycle order, Unknown last.
var Phases = []Phase{Menstruation, Follicular, Ovulation, Luteal, Unknown}

// Fixed window boundaries, in cycle days.
const (
	lastFollicularDay = 13
	firstOvulationDay = 14
	lastOvulationDay  = 16
	firstLutealDay    = 17
)

// PhaseFor classifies a cycle day given the user's period duration.
//
// Rules are checked in order:
//   - days 1..periodDuration are Menstruation
//   - days after the period up to day 13 are Follicular
//   - days 14..16 are Ovulation
//   - day 17 onwards is Luteal
//
// A period of 14 days or more covers the Ovulation and Luteal windows for its
// whole length. Days below 1 are Unknown.
func PhaseFor(cycleDay, periodDuration int) Phase {
	switch {
	case cycleDay >= 1 && cycleDay <= periodDuration:
		return Menstruation
	case cycleDay > periodDuration && cycleDay <= lastFollicularDay:
		return Follicular
	case cycleDay >= firstOvulationDay && cycleDay <= lastOvulationDay:
		return Ovulation
	case cycleDay >= firstLutealDay:
		return Luteal
	default:
		return Unknown
	}
}

// ParsePhase maps a phase name to a Phase, ignoring case and surrounding space.
func ParsePhase(s string) (Phase, bool) {
	name := strings.TrimSpace(s)
	for _, p := range Phases {
		if strings.EqualFold(string(p), name) {
			return p, true
		}
	}
	return Unknown, false
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}
