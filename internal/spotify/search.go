package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// Search errors.
var (
	// ErrNoPlaylists is returned when a search matches no playlists.
	ErrNoPlaylists = errors.New("no playlists found")

	// ErrMissingURL is returned when the matched playlist has no shareable Spotify URL.
	ErrMissingURL = errors.New("playlist has no spotify url")
)

// Playlist is a playlist found by search.
type Playlist struct {
	ID    string
	Name  string
	Owner string
	URL   string // open.spotify.com link
}

// SearchPlaylist returns the top playlist matching query.
// Returns ErrNoPlaylists if nothing matched and ErrMissingURL if the top
// match cannot be shared.
func (c *Client) SearchPlaylist(ctx context.Context, query string) (Playlist, error) {
	result, err := c.api.Search(ctx, query, spotify.SearchTypePlaylist, spotify.Limit(1))
	if err != nil {
		return Playlist{}, fmt.Errorf("searching playlists: %w", err)
	}

	if result == nil || result.Playlists == nil || len(result.Playlists.Playlists) == 0 {
		return Playlist{}, ErrNoPlaylists
	}

	return convertPlaylist(result.Playlists.Playlists[0])
}

// convertPlaylist extracts the fields we show from a search hit.
func convertPlaylist(p spotify.SimplePlaylist) (Playlist, error) {
	pl := Playlist{
		ID:    p.ID.String(),
		Name:  p.Name,
		Owner: p.Owner.DisplayName,
		URL:   p.ExternalURLs["spotify"],
	}
	if pl.URL == "" {
		return pl, ErrMissingURL
	}
	return pl, nil
}
