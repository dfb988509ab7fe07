package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultRedirectURL uses explicit IPv4 loopback as required by Spotify for local development.
	// See: https://developer.spotify.com/documentation/web-api/concepts/redirect-uri
	DefaultRedirectURL = "http://127.0.0.1:8080/callback"

	callbackTimeout = 2 * time.Minute
)

var (
	// ErrMissingCredentials is returned when the client ID or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrAuthTimeout is returned when the OAuth callback is not received in time.
	ErrAuthTimeout = errors.New("authentication timed out waiting for callback")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")

	// ErrNotLoggedIn is returned when no cached user token exists.
	ErrNotLoggedIn = errors.New("not logged in to Spotify")
)

// Scopes requested when a user connects their Spotify account.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
}

// Config holds Spotify application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Validate reports ErrMissingCredentials if the ID or secret is empty.
func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (c Config) redirectURL() string {
	if c.RedirectURL == "" {
		return DefaultRedirectURL
	}
	return c.RedirectURL
}

// NewAuthenticator builds the Spotify authorization-code authenticator for cfg.
func NewAuthenticator(cfg Config) (*spotifyauth.Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.redirectURL()),
		spotifyauth.WithScopes(Scopes...),
	), nil
}

// ClientCredentials returns a Spotify client authorized as the application
// itself. It can search the catalog but has no user context.
// Tokens are fetched lazily and refreshed for the lifetime of ctx.
func ClientCredentials(ctx context.Context, cfg Config) (*spotify.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return spotify.New(cc.Client(ctx)), nil
}

// Authenticator runs the user OAuth flow for the CLI and caches the token.
type Authenticator struct {
	cfg    Config
	auth   *spotifyauth.Authenticator
	cache  *TokenCache
	logger *zap.Logger
}

// New creates an Authenticator for cfg, storing tokens in cache.
// Returns ErrMissingCredentials if the ID or secret is empty.
func New(cfg Config, cache *TokenCache, logger *zap.Logger) (*Authenticator, error) {
	auth, err := NewAuthenticator(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		cfg:    cfg,
		auth:   auth,
		cache:  cache,
		logger: logger,
	}, nil
}

// Cached returns a user client built from the cached token.
// Returns ErrNotLoggedIn if there is no cached token.
func (a *Authenticator) Cached(ctx context.Context) (*spotify.Client, error) {
	token, err := a.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("loading cached token: %w", err)
	}
	if token == nil {
		return nil, ErrNotLoggedIn
	}

	// oauth2 refreshes expired tokens on demand
	client := spotify.New(a.auth.Client(ctx, token))

	// Persist a refreshed token so the next run starts from it
	if newToken, err := client.Token(); err == nil && newToken.AccessToken != token.AccessToken {
		if err := a.cache.Save(newToken); err != nil {
			a.logger.Warn("failed to cache refreshed token", zap.Error(err))
		}
	}
	return client, nil
}

// Login performs the authorization code flow: it prints the consent URL via
// prompt, waits for Spotify to redirect back to the local callback server,
// and caches the resulting token.
func (a *Authenticator) Login(ctx context.Context, prompt func(authURL string)) (*oauth2.Token, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	redirect, err := url.Parse(a.cfg.redirectURL())
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URL: %w", err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		a.handleCallback(w, r, state, tokenCh, errCh)
	})

	server := &http.Server{
		Addr:              redirect.Host,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	defer shutdown()

	prompt(a.auth.AuthURL(state))

	var token *oauth2.Token
	select {
	case token = <-tokenCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(callbackTimeout):
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := a.cache.Save(token); err != nil {
		// Auth succeeded; the user just has to log in again next time
		a.logger.Warn("failed to cache token", zap.Error(err))
	}

	return token, nil
}

// handleCallback processes the OAuth callback from Spotify.
func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	if r.URL.Query().Get("state") != expectedState {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		sendErr(errCh, ErrStateMismatch)
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, "Authentication failed: "+errMsg, http.StatusBadRequest)
		sendErr(errCh, fmt.Errorf("spotify auth error: %s", errMsg))
		return
	}

	token, err := a.auth.Token(r.Context(), expectedState, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		sendErr(errCh, fmt.Errorf("exchanging code for token: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Siren is connected</title></head>
<body>
<h1>Connected to Spotify</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

	select {
	case tokenCh <- token:
	default:
	}
}

// sendErr reports err to Login without blocking; only the first outcome of a
// login is used, so later callbacks are dropped.
func sendErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	return generateState()
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
