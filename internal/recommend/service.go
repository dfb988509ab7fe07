// Package recommend runs the cycle -> phase -> mood -> playlist pipeline.
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/siren/internal/chat"
	"github.com/justestif/siren/internal/cycle"
	"github.com/justestif/siren/internal/db"
	"github.com/justestif/siren/internal/mood"
	"github.com/justestif/siren/internal/playlist"
)

// Recommendation is the outcome of one pass through the pipeline.
type Recommendation struct {
	ID        uuid.UUID
	SessionID string
	Input     cycle.Input
	CycleDay  int
	Phase     cycle.Phase
	Mood      string
	Playlist  playlist.Result
	CreatedAt time.Time
}

// Summary is the sentence shown to the user about their phase and mood.
func (r Recommendation) Summary() string {
	return chat.Summary(string(r.Phase), r.Mood)
}

// Service produces recommendations.
type Service struct {
	calc     cycle.Calculator
	sampler  *mood.Sampler
	resolver *playlist.Resolver
	history  History
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every recommendation in h.
func WithHistory(h History) Option {
	return func(s *Service) {
		s.history = h
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithCalculator overrides the system-clock calculator.
func WithCalculator(c cycle.Calculator) Option {
	return func(s *Service) {
		s.calc = c
	}
}

// New creates a recommendation service. History defaults to an in-memory store.
func New(sampler *mood.Sampler, resolver *playlist.Resolver, opts ...Option) *Service {
	s := &Service{
		calc:     cycle.NewCalculator(),
		sampler:  sampler,
		resolver: resolver,
		history:  NewMemoryHistory(DefaultHistorySize),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the service's current calendar date.
func (s *Service) Today() time.Time {
	return s.calc.Today()
}

// NewInput validates user answers against the service's clock.
func (s *Service) NewInput(startDate time.Time, periodDuration int) (cycle.Input, error) {
	return cycle.NewInput(startDate, periodDuration, s.Today())
}

// Recommend computes a recommendation for in. It always produces a result;
// search problems surface as a fallback playlist.
func (s *Service) Recommend(ctx context.Context, sessionID string, in cycle.Input) Recommendation {
	return s.RecommendWith(ctx, nil, sessionID, in)
}

// RecommendWith is Recommend using searcher for the playlist lookup.
func (s *Service) RecommendWith(ctx context.Context, searcher playlist.Searcher, sessionID string, in cycle.Input) Recommendation {
	day := s.calc.CycleDay(in.StartDate)
	phase := cycle.PhaseFor(day, in.PeriodDuration)
	m := s.sampler.Sample(phase)
	result := s.resolver.RecommendWith(ctx, searcher, m)

	rec := Recommendation{
		ID:        uuid.New(),
		SessionID: sessionID,
		Input:     in,
		CycleDay:  day,
		Phase:     phase,
		Mood:      m,
		Playlist:  result,
		CreatedAt: time.Now().UTC(),
	}

	s.logger.Info("recommendation",
		zap.String("id", rec.ID.String()),
		zap.Int("cycle_day", day),
		zap.String("phase", string(phase)),
		zap.String("mood", m),
		zap.String("source", string(result.Source)),
	)

	if err := s.history.Save(ctx, toRecord(rec)); err != nil {
		s.logger.Warn("failed to record recommendation", zap.String("id", rec.ID.String()), zap.Error(err))
	}

	return rec
}

// Recent returns up to limit recorded recommendations for a session, newest first.
func (s *Service) Recent(ctx context.Context, sessionID string, limit int) ([]db.Recommendation, error) {
	recs, err := s.history.Recent(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return recs, nil
}

// FallbackURL returns the link shown when no playlist is found.
func (s *Service) FallbackURL() string {
	return s.resolver.FallbackURL()
}

// toRecord converts a Recommendation to its stored form.
func toRecord(r Recommendation) *db.Recommendation {
	return &db.Recommendation{
		ID:             r.ID,
		SessionID:      r.SessionID,
		StartDate:      r.Input.StartDate,
		PeriodDuration: r.Input.PeriodDuration,
		CycleDay:       r.CycleDay,
		Phase:          string(r.Phase),
		Mood:           r.Mood,
		PlaylistURL:    r.Playlist.URL,
		PlaylistName:   r.Playlist.Name,
		Fallback:       r.Playlist.Fallback(),
		CreatedAt:      r.CreatedAt,
	}
}
