package db

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation is one completed pass from cycle answers to a playlist.
type Recommendation struct {
	ID             uuid.UUID
	SessionID      string
	StartDate      time.Time
	PeriodDuration int
	CycleDay       int
	Phase          string
	Mood           string
	PlaylistURL    string
	PlaylistName   string
	Fallback       bool // PlaylistURL is the fallback link
	CreatedAt      time.Time
}
