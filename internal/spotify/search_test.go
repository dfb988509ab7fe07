package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zmb3/spotify/v2"
)

// newTestClient returns a Client whose API calls hit handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api := spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/"))
	return New(api)
}

func TestSearchPlaylist(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Playlist
		wantErr error
		anyErr  bool
	}{
		{
			name:   "top playlist with url",
			status: http.StatusOK,
			body: `{"playlists":{"items":[{
				"id":"37i9dQZF1DX3rxVfibe1L0",
				"name":"Mood Booster",
				"owner":{"display_name":"Spotify","id":"spotify"},
				"external_urls":{"spotify":"https://open.spotify.com/playlist/37i9dQZF1DX3rxVfibe1L0"}
			}],"total":1,"limit":1}}`,
			want: Playlist{
				ID:    "37i9dQZF1DX3rxVfibe1L0",
				Name:  "Mood Booster",
				Owner: "Spotify",
				URL:   "https://open.spotify.com/playlist/37i9dQZF1DX3rxVfibe1L0",
			},
		},
		{
			name:    "no items",
			status:  http.StatusOK,
			body:    `{"playlists":{"items":[],"total":0,"limit":1}}`,
			wantErr: ErrNoPlaylists,
		},
		{
			name:    "no playlists object",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: ErrNoPlaylists,
		},
		{
			name:    "null item",
			status:  http.StatusOK,
			body:    `{"playlists":{"items":[null],"total":1,"limit":1}}`,
			wantErr: ErrMissingURL,
		},
		{
			name:    "item without spotify url",
			status:  http.StatusOK,
			body:    `{"playlists":{"items":[{"id":"abc","name":"Sad Songs","external_urls":{}}]}}`,
			wantErr: ErrMissingURL,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"status":401,"message":"Invalid access token"}}`,
			anyErr: true,
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"playlists":`,
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.SearchPlaylist(context.Background(), "Happy playlist")

			if tt.anyErr {
				if err == nil {
					t.Fatal("SearchPlaylist() error = nil, want error")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SearchPlaylist() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got != tt.want {
				t.Errorf("SearchPlaylist() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSearchPlaylist_Request(t *testing.T) {
	var gotPath, gotQuery, gotType, gotLimit string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotType = r.URL.Query().Get("type")
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"playlists":{"items":[]}}`))
	})

	_, _ = client.SearchPlaylist(context.Background(), "Sleepy playlist")

	if gotPath != "/search" {
		t.Errorf("path = %q, want /search", gotPath)
	}
	if gotQuery != "Sleepy playlist" {
		t.Errorf("q = %q, want %q", gotQuery, "Sleepy playlist")
	}
	if gotType != "playlist" {
		t.Errorf("type = %q, want playlist", gotType)
	}
	if gotLimit != "1" {
		t.Errorf("limit = %q, want 1", gotLimit)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"display name", `{"id":"siren-user","display_name":"Siren User"}`, "Siren User"},
		{"falls back to id", `{"id":"siren-user","display_name":""}`, "siren-user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/me" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.DisplayName(context.Background())
			if err != nil {
				t.Fatalf("DisplayName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
