package recommend

import (
	"context"
	"sync"

	"github.com/justestif/siren/internal/db"
)

// DefaultHistorySize is how many recommendations MemoryHistory keeps.
const DefaultHistorySize = 500

// History stores past recommendations.
// *db.RecommendationRepository satisfies it for PostgreSQL storage.
type History interface {
	Save(ctx context.Context, rec *db.Recommendation) error
	Recent(ctx context.Context, sessionID string, limit int) ([]db.Recommendation, error)
}

// MemoryHistory keeps the most recent recommendations in memory.
type MemoryHistory struct {
	mu   sync.RWMutex
	recs []db.Recommendation
	max  int
}

// NewMemoryHistory creates a history holding at most max entries (oldest dropped first).
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &MemoryHistory{max: max}
}

// Save appends rec.
func (h *MemoryHistory) Save(_ context.Context, rec *db.Recommendation) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recs = append(h.recs, *rec)
	if over := len(h.recs) - h.max; over > 0 {
		h.recs = append([]db.Recommendation(nil), h.recs[over:]...)
	}
	return nil
}

// Recent returns up to limit entries for sessionID, newest first.
func (h *MemoryHistory) Recent(_ context.Context, sessionID string, limit int) ([]db.Recommendation, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []db.Recommendation
	for i := len(h.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if h.recs[i].SessionID == sessionID {
			out = append(out, h.recs[i])
		}
	}
	return out, nil
}

var (
	_ History = (*MemoryHistory)(nil)
	_ History = (*db.RecommendationRepository)(nil)
)
