// Package playlist resolves a mood to a Spotify playlist link.
//
// Resolution never fails the caller: when search cannot produce a shareable
// link the Resolver returns the fallback URL and says why in the Result.
package playlist

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/siren/internal/spotify"
)

// DefaultFallbackURL is shown whenever no specific playlist can be found.
const DefaultFallbackURL = "https://open.spotify.com/"

// DefaultTimeout bounds a single playlist search.
const DefaultTimeout = 10 * time.Second

// Searcher finds the top playlist for a free-text query.
type Searcher interface {
	SearchPlaylist(ctx context.Context, query string) (spotify.Playlist, error)
}

// Source says where a Result's URL came from.
type Source string

const (
	SourceSearch   Source = "search"
	SourceFallback Source = "fallback"
)

// Reason explains why the fallback URL was used.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoResults  Reason = "no_results"
	ReasonMissingURL Reason = "missing_url"
	ReasonError      Reason = "error"
)

// Result is the outcome of resolving one mood.
type Result struct {
	URL      string
	Name     string // Playlist name, empty on fallback
	Query    string
	Source   Source
	Reason   Reason
	Err      error // Underlying search error when Reason is ReasonError
	Duration time.Duration
}

// Fallback reports whether the fallback URL was used.
func (r Result) Fallback() bool {
	return r.Source == SourceFallback
}

// Config configures a Resolver.
type Config struct {
	FallbackURL string        // Defaults to DefaultFallbackURL
	Timeout     time.Duration // Per search; 0 means no limit
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		FallbackURL: DefaultFallbackURL,
		Timeout:     DefaultTimeout,
	}
}

// Resolver turns moods into playlist links.
type Resolver struct {
	searcher Searcher
	cfg      Config
	logger   *zap.Logger
}

// NewResolver creates a Resolver that searches with searcher.
// searcher may be nil, in which case every resolution falls back.
func NewResolver(searcher Searcher, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = DefaultFallbackURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// FallbackURL returns the URL used when resolution fails.
func (r *Resolver) FallbackURL() string {
	return r.cfg.FallbackURL
}

// Query returns the search text used for mood.
func Query(mood string) string {
	return mood + " playlist"
}

// Recommend resolves mood with the Resolver's own searcher.
func (r *Resolver) Recommend(ctx context.Context, mood string) Result {
	return r.RecommendWith(ctx, r.searcher, mood)
}

// RecommendWith resolves mood using searcher, for example one authorized as
// the signed-in user. A nil searcher falls back to the Resolver's own.
func (r *Resolver) RecommendWith(ctx context.Context, searcher Searcher, mood string) Result {
	if searcher == nil {
		searcher = r.searcher
	}

	query := Query(mood)
	start := time.Now()

	if searcher == nil {
		return r.fallback(query, ReasonError, errors.New("no playlist searcher configured"), start)
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	pl, err := searcher.SearchPlaylist(ctx, query)
	switch {
	case errors.Is(err, spotify.ErrNoPlaylists):
		return r.fallback(query, ReasonNoResults, nil, start)
	case errors.Is(err, spotify.ErrMissingURL):
		return r.fallback(query, ReasonMissingURL, nil, start)
	case err != nil:
		return r.fallback(query, ReasonError, err, start)
	}

	res := Result{
		URL:      pl.URL,
		Name:     pl.Name,
		Query:    query,
		Source:   SourceSearch,
		Duration: time.Since(start),
	}
	r.logger.Debug("playlist resolved",
		zap.String("query", query),
		zap.String("playlist", pl.Name),
		zap.String("url", pl.URL),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// fallback builds a fallback Result and logs the reason.
func (r *Resolver) fallback(query string, reason Reason, err error, start time.Time) Result {
	res := Result{
		URL:      r.cfg.FallbackURL,
		Query:    query,
		Source:   SourceFallback,
		Reason:   reason,
		Err:      err,
		Duration: time.Since(start),
	}

	fields := []zap.Field{
		zap.String("query", query),
		zap.String("reason", string(reason)),
		zap.Duration("duration", res.Duration),
	}
	switch reason {
	case ReasonNoResults:
		r.logger.Warn("no playlists found for mood", fields...)
	case ReasonMissingURL:
		r.logger.Warn("could not extract spotify url for mood", fields...)
	default:
		r.logger.Error("playlist search failed", append(fields, zap.Error(err))...)
	}
	return res
}
