package playlist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/justestif/siren/internal/spotify"
)

// stubSearcher returns a canned playlist or error and records queries.
type stubSearcher struct {
	playlist spotify.Playlist
	err      error
	queries  []string
}

func (s *stubSearcher) SearchPlaylist(_ context.Context, query string) (spotify.Playlist, error) {
	s.queries = append(s.queries, query)
	return s.playlist, s.err
}

// blockingSearcher waits for the context to end.
type blockingSearcher struct{}

func (blockingSearcher) SearchPlaylist(ctx context.Context, _ string) (spotify.Playlist, error) {
	<-ctx.Done()
	return spotify.Playlist{}, ctx.Err()
}

func newObservedResolver(s Searcher, cfg Config) (*Resolver, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewResolver(s, cfg, zap.New(core)), logs
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name       string
		searcher   *stubSearcher
		wantURL    string
		wantSource Source
		wantReason Reason
		wantLog    string
		wantLevel  zapcore.Level
	}{
		{
			name: "playlist found",
			searcher: &stubSearcher{playlist: spotify.Playlist{
				Name: "Happy Hits",
				URL:  "https://open.spotify.com/playlist/happy",
			}},
			wantURL:    "https://open.spotify.com/playlist/happy",
			wantSource: SourceSearch,
			wantReason: ReasonNone,
			wantLog:    "playlist resolved",
			wantLevel:  zapcore.DebugLevel,
		},
		{
			name:       "empty result",
			searcher:   &stubSearcher{err: spotify.ErrNoPlaylists},
			wantURL:    DefaultFallbackURL,
			wantSource: SourceFallback,
			wantReason: ReasonNoResults,
			wantLog:    "no playlists found for mood",
			wantLevel:  zapcore.WarnLevel,
		},
		{
			name:       "playlist without url",
			searcher:   &stubSearcher{err: spotify.ErrMissingURL},
			wantURL:    DefaultFallbackURL,
			wantSource: SourceFallback,
			wantReason: ReasonMissingURL,
			wantLog:    "could not extract spotify url for mood",
			wantLevel:  zapcore.WarnLevel,
		},
		{
			name:       "search error",
			searcher:   &stubSearcher{err: fmt.Errorf("searching playlists: %w", errors.New("401 invalid token"))},
			wantURL:    DefaultFallbackURL,
			wantSource: SourceFallback,
			wantReason: ReasonError,
			wantLog:    "playlist search failed",
			wantLevel:  zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, logs := newObservedResolver(tt.searcher, DefaultConfig())

			got := r.Recommend(context.Background(), "Happy")

			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, "Happy playlist", got.Query)
			assert.Equal(t, []string{"Happy playlist"}, tt.searcher.queries)

			entries := logs.FilterMessage(tt.wantLog).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)
		})
	}
}

func TestRecommend_ErrorKeptOnResult(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&stubSearcher{err: boom}, DefaultConfig(), nil)

	got := r.Recommend(context.Background(), "Sad")

	assert.True(t, got.Fallback())
	assert.ErrorIs(t, got.Err, boom)
}

func TestRecommend_CustomFallbackURL(t *testing.T) {
	r := NewResolver(&stubSearcher{err: spotify.ErrNoPlaylists}, Config{FallbackURL: "https://example.com/music"}, nil)

	got := r.Recommend(context.Background(), "Calm")

	assert.Equal(t, "https://example.com/music", got.URL)
	assert.Equal(t, "https://example.com/music", r.FallbackURL())
}

func TestRecommend_TimeoutFallsBack(t *testing.T) {
	r := NewResolver(blockingSearcher{}, Config{Timeout: 20 * time.Millisecond}, nil)

	got := r.Recommend(context.Background(), "Lazy")

	assert.Equal(t, DefaultFallbackURL, got.URL)
	assert.Equal(t, ReasonError, got.Reason)
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestRecommend_NilSearcher(t *testing.T) {
	r := NewResolver(nil, DefaultConfig(), nil)

	got := r.Recommend(context.Background(), "General")

	assert.Equal(t, DefaultFallbackURL, got.URL)
	assert.Equal(t, ReasonError, got.Reason)
	assert.Error(t, got.Err)
}

func TestRecommendWith_PrefersGivenSearcher(t *testing.T) {
	app := &stubSearcher{playlist: spotify.Playlist{URL: "https://open.spotify.com/playlist/app"}}
	user := &stubSearcher{playlist: spotify.Playlist{URL: "https://open.spotify.com/playlist/user"}}
	r := NewResolver(app, DefaultConfig(), nil)

	got := r.RecommendWith(context.Background(), user, "Romantic")
	assert.Equal(t, "https://open.spotify.com/playlist/user", got.URL)
	assert.Empty(t, app.queries)

	got = r.RecommendWith(context.Background(), nil, "Romantic")
	assert.Equal(t, "https://open.spotify.com/playlist/app", got.URL)
}
