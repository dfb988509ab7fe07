package main

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/siren/internal/auth"
	"github.com/justestif/siren/internal/db"
	"github.com/justestif/siren/internal/recommend"
	"github.com/justestif/siren/internal/spotify"
	"github.com/justestif/siren/internal/web"
	webfs "github.com/justestif/siren/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat web application",
	Long: `Starts the web chat. Playlists are searched with the application's own
Spotify credentials; visitors may also connect their Spotify account.

History is kept in memory unless DATABASE_URL points at PostgreSQL.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireSpotify(); err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := auth.ClientCredentials(ctx, cfg.Auth())
	if err != nil {
		return fmt.Errorf("creating spotify client: %w", err)
	}

	authenticator, err := auth.NewAuthenticator(cfg.Auth())
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	var opts []recommend.Option
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, recommend.WithHistory(database.Recommendations()))
		logger.Info("storing history in postgres")
	}

	service, err := newService(spotify.New(api), opts...)
	if err != nil {
		return err
	}

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:          cfg.Addr,
		Service:       service,
		Authenticator: authenticator,
		Logger:        logger,
		TemplatesFS:   templates,
		StaticFS:      static,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("siren ready", zap.String("addr", cfg.Addr), zap.String("redirect_url", cfg.Spotify.RedirectURL))
	return server.Run(ctx)
}
