// Package mood maps cycle phases to mood labels used to seed playlist searches.
package mood

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/justestif/siren/internal/cycle"
)

// General is the only mood of the Unknown phase.
const General = "General"

// Table maps each phase to its ordered candidate moods.
type Table map[cycle.Phase][]string

// DefaultTable returns the built-in mood vocabulary.
func DefaultTable() Table {
	return Table{
		cycle.Menstruation: {"Blue", "Cranky", "Depressed", "Emotional", "Irritated", "Lazy", "Sad", "Sleepy", "Stressed"},
		cycle.Follicular:   {"Calm", "Confident", "Excited", "Happy", "Naughty", "Peaceful", "Romantic", "Sexy", "Unfocused"},
		cycle.Ovulation:    {"Confident", "Excited", "Happy", "Naughty", "Romantic", "Sexy"},
		cycle.Luteal:       {"Angry", "Anxious", "Confused", "Craving", "Frustrated", "Forgetful", "Irritated", "Jealous", "Stressed", "Emotional"},
		cycle.Unknown:      {General},
	}
}

// TableFrom builds a table from the defaults with per-phase overrides keyed by
// phase name. Empty override lists are ignored.
func TableFrom(overrides map[string][]string) (Table, error) {
	t := DefaultTable()
	for name, moods := range overrides {
		phase, ok := cycle.ParsePhase(name)
		if !ok {
			return nil, fmt.Errorf("unknown phase %q in mood table", name)
		}
		if len(moods) == 0 {
			continue
		}
		t[phase] = append([]string(nil), moods...)
	}
	return t, nil
}

// Moods returns the candidate moods for a phase. Phases missing from the table,
// or with no moods, fall back to the Unknown list.
func (t Table) Moods(phase cycle.Phase) []string {
	if moods := t[phase]; len(moods) > 0 {
		return moods
	}
	if moods := t[cycle.Unknown]; len(moods) > 0 {
		return moods
	}
	return []string{General}
}

// Sampler picks a mood for a phase uniformly at random.
// It is safe for concurrent use.
type Sampler struct {
	table Table

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a Sampler drawing from src.
// A nil table uses DefaultTable; a nil src uses an unseeded generator.
func NewSampler(table Table, src rand.Source) *Sampler {
	if table == nil {
		table = DefaultTable()
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{
		table: table,
		rng:   rand.New(src),
	}
}

// NewSeededSampler creates a Sampler whose picks are reproducible for a seed.
func NewSeededSampler(table Table, seed uint64) *Sampler {
	return NewSampler(table, rand.NewPCG(seed, seed))
}

// Sample returns one mood for the phase.
func (s *Sampler) Sample(phase cycle.Phase) string {
	moods := s.table.Moods(phase)

	s.mu.Lock()
	i := s.rng.IntN(len(moods))
	s.mu.Unlock()

	return moods[i]
}

// Table returns the sampler's mood table.
func (s *Sampler) Table() Table {
	return s.table
}
