// Package auth builds Spotify clients: app-only client credentials for search
// and the user OAuth flow with an on-disk token cache.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

const (
	configDirName = "siren"
	tokenFileName = "token.json"
)

// cachedToken is the on-disk form. Tokens are tied to the client ID that
// issued them so switching Spotify apps forces a fresh login.
type cachedToken struct {
	ClientID string        `json:"client_id"`
	SavedAt  time.Time     `json:"saved_at"`
	Token    *oauth2.Token `json:"token"`
}

// TokenCache stores one user's OAuth token on disk.
type TokenCache struct {
	path     string
	clientID string
}

// DefaultTokenCache returns a TokenCache for clientID at
// ~/.config/siren/token.json
func DefaultTokenCache(clientID string) (*TokenCache, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}
	return NewTokenCache(filepath.Join(configDir, configDirName, tokenFileName), clientID), nil
}

// NewTokenCache creates a TokenCache at path for clientID.
func NewTokenCache(path, clientID string) *TokenCache {
	return &TokenCache{path: path, clientID: clientID}
}

// Path returns the file path where tokens are stored.
func (c *TokenCache) Path() string {
	return c.path
}

// Load reads the cached token.
// Returns (nil, nil) if there is no file, or the file belongs to another client ID.
func (c *TokenCache) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var cached cachedToken
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}

	if cached.ClientID != c.clientID || cached.Token == nil {
		return nil, nil
	}
	return cached.Token, nil
}

// Save writes the token with owner-only permissions, creating the directory if needed.
func (c *TokenCache) Save(token *oauth2.Token) error {
	if token == nil {
		return errors.New("cannot save nil token")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cachedToken{
		ClientID: c.clientID,
		SavedAt:  time.Now().UTC(),
		Token:    token,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Delete removes the cached token file. Missing files are not an error.
func (c *TokenCache) Delete() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
