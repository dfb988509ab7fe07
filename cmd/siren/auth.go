package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/siren/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect your Spotify account for terminal searches",
	Long: `Opens Spotify's consent page and waits for it to redirect back to
SPOTIFY_REDIRECT_URI (default ` + auth.DefaultRedirectURL + `).
The token is cached under your user config directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cache, err := newAuthenticator()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, err = a.Login(cmd.Context(), func(authURL string) {
			fmt.Fprintf(out, "Open this URL in your browser to connect Spotify:\n\n  %s\n\n", authURL)
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Fprintf(out, "Connected. Token saved to %s\n", cache.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the cached Spotify login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cache, err := newAuthenticator()
		if err != nil {
			return err
		}
		if err := a.Logout(); err != nil {
			return err
		}
		logger.Debug("removed token", zap.String("path", cache.Path()))
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func newAuthenticator() (*auth.Authenticator, *auth.TokenCache, error) {
	if err := cfg.RequireSpotify(); err != nil {
		return nil, nil, err
	}
	cache, err := auth.DefaultTokenCache(cfg.Spotify.ClientID)
	if err != nil {
		return nil, nil, err
	}
	a, err := auth.New(cfg.Auth(), cache, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, cache, nil
}
