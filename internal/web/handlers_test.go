package web

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/siren/internal/chat"
	"github.com/justestif/siren/internal/cycle"
	"github.com/justestif/siren/internal/mood"
	"github.com/justestif/siren/internal/playlist"
	"github.com/justestif/siren/internal/recommend"
	"github.com/justestif/siren/internal/spotify"
	webfs "github.com/justestif/siren/web"
)

var fixedNow = time.Date(2025, 4, 17, 9, 30, 0, 0, time.UTC)

type stubSearcher struct {
	err error
}

func (s stubSearcher) SearchPlaylist(_ context.Context, query string) (spotify.Playlist, error) {
	if s.err != nil {
		return spotify.Playlist{}, s.err
	}
	return spotify.Playlist{
		ID:   "found",
		Name: query,
		URL:  "https://open.spotify.com/playlist/found",
	}, nil
}

func newTestServer(t *testing.T, searcher playlist.Searcher) *httptest.Server {
	t.Helper()

	templatesFS, err := fs.Sub(webfs.TemplatesFS, "templates")
	require.NoError(t, err)
	staticFS, err := fs.Sub(webfs.StaticFS, "static")
	require.NoError(t, err)

	service := recommend.New(
		mood.NewSeededSampler(nil, 7),
		playlist.NewResolver(searcher, playlist.DefaultConfig(), nil),
		recommend.WithCalculator(cycle.Calculator{Now: func() time.Time { return fixedNow }}),
	)

	srv, err := NewServer(ServerConfig{
		Addr:        "127.0.0.1:0",
		Service:     service,
		TemplatesFS: templatesFS,
		StaticFS:    staticFS,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})
	client := newBrowser(t)

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, chat.PromptDate)
	assert.Contains(t, body, `max="2025-04-17"`)
	assert.Contains(t, body, `action="/chat/date"`)

	resp, err = client.PostForm(ts.URL+"/chat/date", url.Values{"start_date": {"2025-04-10"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "2025-04-10")
	assert.Contains(t, body, chat.PromptDuration)
	assert.Contains(t, body, `action="/chat/duration"`)

	resp, err = client.PostForm(ts.URL+"/chat/duration", url.Values{"period_duration": {"5"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>Follicular</strong>")
	assert.Contains(t, body, "https://open.spotify.com/playlist/found")
	assert.Contains(t, body, chat.LinkText)
	assert.NotContains(t, body, `action="/chat/duration"`)
	assert.Contains(t, body, "Earlier recommendations")

	resp, err = client.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	var history []recommendationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	require.Len(t, history, 1)
	assert.Equal(t, 8, history[0].CycleDay)
	assert.Equal(t, "Follicular", history[0].Phase)

	resp, err = client.PostForm(ts.URL+"/chat/reset", nil)
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Contains(t, body, `action="/chat/date"`)
	assert.NotContains(t, body, chat.PromptDuration)
}

func TestChatFlow_Rejections(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})
	client := newBrowser(t)

	resp, err := client.PostForm(ts.URL+"/chat/date", url.Values{"start_date": {"2025-04-18"}})
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Contains(t, body, "that date seems to be in the future")
	assert.Contains(t, body, `action="/chat/date"`)

	resp, err = client.PostForm(ts.URL+"/chat/date", url.Values{"start_date": {"yesterday"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Contains(t, body, "Please use the format YYYY-MM-DD.")

	resp, err = client.PostForm(ts.URL+"/chat/date", url.Values{"start_date": {"2025-04-01"}})
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = client.PostForm(ts.URL+"/chat/duration", url.Values{"period_duration": {"0"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Contains(t, body, chat.ReplyNotPositive)

	resp, err = client.PostForm(ts.URL+"/chat/duration", url.Values{"period_duration": {"five"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Contains(t, body, chat.ReplyNotNumber)
	assert.Contains(t, body, `action="/chat/duration"`)
}

func TestChatFlow_FallbackLink(t *testing.T) {
	ts := newTestServer(t, stubSearcher{err: spotify.ErrNoPlaylists})
	client := newBrowser(t)

	_, err := client.PostForm(ts.URL+"/chat/date", url.Values{"start_date": {"2025-04-17"}})
	require.NoError(t, err)
	resp, err := client.PostForm(ts.URL+"/chat/duration", url.Values{"period_duration": {"5"}})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Contains(t, body, "<strong>Menstruation</strong>")
	assert.Contains(t, body, `href="`+playlist.DefaultFallbackURL+`"`)
}

func TestAPIRecommendation(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})

	resp, err := http.Get(ts.URL + "/api/recommendation?start_date=2025-04-10&period_duration=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got recommendationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "2025-04-10", got.StartDate)
	assert.Equal(t, 5, got.Duration)
	assert.Equal(t, 8, got.CycleDay)
	assert.Equal(t, "Follicular", got.Phase)
	assert.Contains(t, mood.DefaultTable().Moods(cycle.Follicular), got.Mood)
	assert.True(t, strings.HasPrefix(got.Summary, "Based on your cycle, you are in the Follicular phase"))
	assert.Equal(t, "https://open.spotify.com/playlist/found", got.Playlist.URL)
	assert.Equal(t, string(playlist.SourceSearch), got.Playlist.Source)
}

func TestAPIRecommendation_BadInput(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"future date", "start_date=2025-04-18&period_duration=5", chat.ReplyFutureDate},
		{"bad date", "start_date=04/10/2025&period_duration=5", chat.ReplyBadDate},
		{"zero duration", "start_date=2025-04-10&period_duration=0", chat.ReplyNotPositive},
		{"text duration", "start_date=2025-04-10&period_duration=abc", chat.ReplyNotNumber},
		{"missing duration", "start_date=2025-04-10", chat.ReplyNotNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/recommendation?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var got errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.want, got.Error)
		})
	}
}

func TestAPIHistory(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})

	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]\n", readBody(t, resp))

	resp, err = http.Get(ts.URL + "/api/history?limit=0")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndStatic(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", readBody(t, resp))

	resp, err = http.Get(ts.URL + "/static/style.css")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginDisabledWithoutAuthenticator(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})

	resp, err := http.Get(ts.URL + "/auth/login")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/callback?state=x&code=y")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogoutClearsSession(t *testing.T) {
	ts := newTestServer(t, stubSearcher{})
	client := newBrowser(t)

	_, err := client.PostForm(ts.URL+"/chat/date", url.Values{"start_date": {"2025-04-10"}})
	require.NoError(t, err)

	resp, err := client.PostForm(ts.URL+"/auth/logout", nil)
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Contains(t, body, `action="/chat/date"`)
	assert.NotContains(t, body, chat.PromptDuration)
}
