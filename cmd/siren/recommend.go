package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/siren/internal/auth"
	"github.com/justestif/siren/internal/chat"
	"github.com/justestif/siren/internal/cycle"
	"github.com/justestif/siren/internal/mood"
	"github.com/justestif/siren/internal/playlist"
	"github.com/justestif/siren/internal/recommend"
	"github.com/justestif/siren/internal/spotify"
)

// cliSessionID groups history written from the terminal.
const cliSessionID = "cli"

var (
	startDate string
	duration  int
	todayFlag string
	seed      uint64
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the phase, mood and playlist for one cycle",
	Example: `  siren recommend --start 2025-04-10 --duration 5
  siren recommend --start 2025-03-20 --duration 5 --today 2025-04-17 --seed 42`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Answer Siren's questions in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newService(cliSearcher(cmd.Context()))
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), service, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	recommendCmd.Flags().StringVar(&startDate, "start", "", "first day of the last period (YYYY-MM-DD)")
	recommendCmd.Flags().IntVar(&duration, "duration", 0, "typical period length in days")
	recommendCmd.Flags().StringVar(&todayFlag, "today", "", "evaluate as of this date instead of today (YYYY-MM-DD)")
	recommendCmd.Flags().Uint64Var(&seed, "seed", 0, "seed the mood choice for reproducible output")
	_ = recommendCmd.MarkFlagRequired("start")
	_ = recommendCmd.MarkFlagRequired("duration")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	start, err := cycle.ParseDate(startDate)
	if err != nil {
		return err
	}

	var opts []recommend.Option
	if todayFlag != "" {
		today, err := cycle.ParseDate(todayFlag)
		if err != nil {
			return fmt.Errorf("--today: %w", err)
		}
		opts = append(opts, recommend.WithCalculator(cycle.Calculator{
			Now: func() time.Time { return today },
		}))
	}

	var sampler *mood.Sampler
	if cmd.Flags().Changed("seed") {
		table, err := cfg.MoodTable()
		if err != nil {
			return err
		}
		sampler = mood.NewSeededSampler(table, seed)
	}

	service, err := newServiceWithSampler(sampler, cliSearcher(cmd.Context()), opts...)
	if err != nil {
		return err
	}

	in, err := service.NewInput(start, duration)
	if err != nil {
		return err
	}

	rec := service.Recommend(cmd.Context(), cliSessionID, in)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rec.Summary())
	fmt.Fprintln(out, chat.ReplyPlaylist)
	fmt.Fprintf(out, "%s: %s\n", chat.LinkText, rec.Playlist.URL)
	return nil
}

// runChat runs the two-question conversation over in and out.
// It returns nil if in ends before the conversation is done.
func runChat(ctx context.Context, service *recommend.Service, in io.Reader, out io.Writer) error {
	conv := chat.New()
	printed := 0
	flush := func() {
		for _, m := range conv.Messages[printed:] {
			if m.Role != chat.RoleAssistant {
				continue
			}
			if m.Link != "" {
				fmt.Fprintf(out, "%s\n  %s: %s\n", m.Text, chat.LinkText, m.Link)
				continue
			}
			fmt.Fprintln(out, m.Text)
		}
		printed = len(conv.Messages)
	}

	scanner := bufio.NewScanner(in)
	for !conv.Done() {
		flush()
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		answer := scanner.Text()
		switch conv.Stage {
		case chat.StageAskDate:
			conv.SubmitDate(answer, service.Today())
		case chat.StageAskDuration:
			input, turn, ok := conv.SubmitDuration(answer, service.Today())
			if !ok {
				continue
			}
			rec := service.Recommend(ctx, cliSessionID, input)
			conv.Complete(chat.Result{
				Phase:       string(rec.Phase),
				Mood:        rec.Mood,
				Summary:     rec.Summary(),
				PlaylistURL: rec.Playlist.URL,
			}, turn)
		}
	}
	flush()
	return nil
}

// newService builds the recommendation service from the loaded config.
func newService(searcher playlist.Searcher, opts ...recommend.Option) (*recommend.Service, error) {
	return newServiceWithSampler(nil, searcher, opts...)
}

// newServiceWithSampler is newService with a caller-supplied sampler.
// A nil sampler draws from the configured mood table at random.
func newServiceWithSampler(sampler *mood.Sampler, searcher playlist.Searcher, opts ...recommend.Option) (*recommend.Service, error) {
	if sampler == nil {
		table, err := cfg.MoodTable()
		if err != nil {
			return nil, err
		}
		sampler = mood.NewSampler(table, nil)
	}

	resolver := playlist.NewResolver(searcher, cfg.PlaylistConfig(), logger)
	opts = append([]recommend.Option{recommend.WithLogger(logger)}, opts...)
	return recommend.New(sampler, resolver, opts...), nil
}

// cliSearcher picks the best available Spotify client: the cached user login,
// then the application's credentials. Without credentials it returns nil and
// every playlist is the fallback link.
func cliSearcher(ctx context.Context) playlist.Searcher {
	if err := cfg.RequireSpotify(); err != nil {
		logger.Warn("spotify is not configured, using the fallback link", zap.Error(err))
		return nil
	}

	if cache, err := auth.DefaultTokenCache(cfg.Spotify.ClientID); err == nil {
		if a, err := auth.New(cfg.Auth(), cache, logger); err == nil {
			api, err := a.Cached(ctx)
			switch {
			case err == nil:
				logger.Debug("searching as the logged-in user")
				return spotify.New(api)
			case !errors.Is(err, auth.ErrNotLoggedIn):
				logger.Warn("ignoring cached login", zap.Error(err))
			}
		}
	}

	api, err := auth.ClientCredentials(ctx, cfg.Auth())
	if err != nil {
		logger.Warn("creating spotify client", zap.Error(err))
		return nil
	}
	return spotify.New(api)
}
