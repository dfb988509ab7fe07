// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated, either with a
// user token or with client credentials.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// DisplayName returns the current user's display name, or their Spotify ID
// if no display name is set.
// Fails for clients authenticated with client credentials.
func (c *Client) DisplayName(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("getting current user: %w", err)
	}
	if user.DisplayName == "" {
		return user.ID, nil
	}
	return user.DisplayName, nil
}
