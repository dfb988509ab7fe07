package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/justestif/siren/internal/auth"
	"github.com/justestif/siren/internal/chat"
	"github.com/justestif/siren/internal/cycle"
	"github.com/justestif/siren/internal/playlist"
	"github.com/justestif/siren/internal/recommend"
	"github.com/justestif/siren/internal/spotify"
)

const historyLimit = 5

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      *spotifyauth.Authenticator // nil when Spotify login is disabled
	sessions  *SessionStore
	templates *Templates
	service   *recommend.Service
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(auth *spotifyauth.Authenticator, sessions *SessionStore, templates *Templates, service *recommend.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		auth:      auth,
		sessions:  sessions,
		templates: templates,
		service:   service,
		logger:    logger,
	}
}

// ensureSession returns the visitor's session ID, starting a session and
// setting the cookie if there is none.
func (h *Handlers) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if id := FromRequest(r); id != "" {
		if h.sessions.Update(id, func(*Session) {}) {
			return id, nil
		}
	}

	session, err := h.sessions.Create()
	if err != nil {
		return "", err
	}
	setCookie(w, session)
	return session.ID, nil
}

// Home renders the chat page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	id, err := h.ensureSession(w, r)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	session, ok := h.sessions.Snapshot(id)
	if !ok {
		http.Error(w, "Session expired", http.StatusInternalServerError)
		return
	}

	data := HomePageData{
		PageData: PageData{
			Title:       "Siren - Music That Understands Your Flow.",
			CurrentPath: r.URL.Path,
		},
		Messages:    session.Conversation.Messages,
		Stage:       session.Conversation.Stage.String(),
		MaxDate:     h.service.Today().Format(cycle.DateLayout),
		LinkText:    chat.LinkText,
		LoginOn:     h.auth != nil,
		Connected:   session.Token != nil,
		UserName:    session.UserName,
		FallbackURL: h.service.FallbackURL(),
	}

	recent, err := h.service.Recent(r.Context(), id, historyLimit)
	if err != nil {
		h.logger.Warn("loading history", zap.Error(err))
	}
	for _, rec := range recent {
		data.History = append(data.History, HistoryItem{
			CreatedAt:   rec.CreatedAt,
			CycleDay:    rec.CycleDay,
			Phase:       rec.Phase,
			Mood:        rec.Mood,
			PlaylistURL: rec.PlaylistURL,
			Fallback:    rec.Fallback,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		h.logger.Error("rendering home", zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// SubmitDate handles the first answer (POST /chat/date).
func (h *Handlers) SubmitDate(w http.ResponseWriter, r *http.Request) {
	id, err := h.ensureSession(w, r)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	answer := r.PostFormValue("start_date")
	today := h.service.Today()
	h.sessions.Update(id, func(s *Session) {
		s.Conversation.SubmitDate(answer, today)
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SubmitDuration handles the second answer and, once both are valid,
// resolves the recommendation (POST /chat/duration).
func (h *Handlers) SubmitDuration(w http.ResponseWriter, r *http.Request) {
	id, err := h.ensureSession(w, r)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	answer := r.PostFormValue("period_duration")
	today := h.service.Today()

	var (
		in    cycle.Input
		turn  int
		ready bool
		token *oauth2.Token
	)
	h.sessions.Update(id, func(s *Session) {
		in, turn, ready = s.Conversation.SubmitDuration(answer, today)
		token = s.Token
	})

	if ready {
		// The search runs outside the session lock.
		rec := h.recommend(r.Context(), id, in, token)
		h.sessions.Update(id, func(s *Session) {
			s.Conversation.Complete(chat.Result{
				Phase:       string(rec.Phase),
				Mood:        rec.Mood,
				Summary:     rec.Summary(),
				PlaylistURL: rec.Playlist.URL,
			}, turn)
		})
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// recommend runs the pipeline, searching as the visitor when they have
// connected Spotify. A refreshed token is written back to the session.
func (h *Handlers) recommend(ctx context.Context, sessionID string, in cycle.Input, token *oauth2.Token) recommend.Recommendation {
	if token == nil || h.auth == nil {
		return h.service.Recommend(ctx, sessionID, in)
	}

	api := spotifyapi.New(h.auth.Client(ctx, token))
	var searcher playlist.Searcher = spotify.New(api)
	rec := h.service.RecommendWith(ctx, searcher, sessionID, in)

	if fresh, err := api.Token(); err == nil && fresh.AccessToken != token.AccessToken {
		h.sessions.Update(sessionID, func(s *Session) {
			s.Token = fresh
		})
	}
	return rec
}

// Reset starts the conversation over (POST /chat/reset).
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if id := FromRequest(r); id != "" {
		h.sessions.Update(id, func(s *Session) {
			s.Conversation.Reset()
		})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// recommendationResponse is the JSON form of a recommendation.
type recommendationResponse struct {
	ID        string           `json:"id"`
	StartDate string           `json:"start_date"`
	Duration  int              `json:"period_duration"`
	CycleDay  int              `json:"cycle_day"`
	Phase     string           `json:"phase"`
	Mood      string           `json:"mood"`
	Summary   string           `json:"summary"`
	Playlist  playlistResponse `json:"playlist"`
}

type playlistResponse struct {
	URL    string `json:"url"`
	Name   string `json:"name,omitempty"`
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// APIRecommendation answers GET /api/recommendation?start_date=&period_duration=.
func (h *Handlers) APIRecommendation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := cycle.ParseDate(q.Get("start_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: chat.ReplyBadDate})
		return
	}

	duration, err := cycle.ParseDuration(q.Get("period_duration"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: inputErrorMessage(err)})
		return
	}

	in, err := h.service.NewInput(start, duration)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: inputErrorMessage(err)})
		return
	}

	sessionID := FromRequest(r)
	var token *oauth2.Token
	if session, ok := h.sessions.Snapshot(sessionID); ok {
		token = session.Token
	}

	rec := h.recommend(r.Context(), sessionID, in, token)

	writeJSON(w, http.StatusOK, recommendationResponse{
		ID:        rec.ID.String(),
		StartDate: rec.Input.StartDate.Format(cycle.DateLayout),
		Duration:  rec.Input.PeriodDuration,
		CycleDay:  rec.CycleDay,
		Phase:     string(rec.Phase),
		Mood:      rec.Mood,
		Summary:   rec.Summary(),
		Playlist: playlistResponse{
			URL:    rec.Playlist.URL,
			Name:   rec.Playlist.Name,
			Source: string(rec.Playlist.Source),
			Reason: string(rec.Playlist.Reason),
		},
	})
}

// APIHistory answers GET /api/history?limit= for the caller's session.
func (h *Handlers) APIHistory(w http.ResponseWriter, r *http.Request) {
	limit := historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	sessionID := FromRequest(r)
	if sessionID == "" {
		writeJSON(w, http.StatusOK, []recommendationResponse{})
		return
	}

	recs, err := h.service.Recent(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("loading history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}

	out := make([]recommendationResponse, 0, len(recs))
	for _, rec := range recs {
		source := playlist.SourceSearch
		if rec.Fallback {
			source = playlist.SourceFallback
		}
		out = append(out, recommendationResponse{
			ID:        rec.ID.String(),
			StartDate: rec.StartDate.Format(cycle.DateLayout),
			Duration:  rec.PeriodDuration,
			CycleDay:  rec.CycleDay,
			Phase:     rec.Phase,
			Mood:      rec.Mood,
			Playlist: playlistResponse{
				URL:    rec.PlaylistURL,
				Name:   rec.PlaylistName,
				Source: string(source),
			},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Health answers GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.NotFound(w, r)
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.NotFound(w, r)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		h.logger.Warn("exchanging oauth code", zap.Error(err))
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	// Display name only; a failure here still leaves the visitor connected.
	client := spotify.New(spotifyapi.New(h.auth.Client(r.Context(), token)))
	userName, err := client.DisplayName(r.Context())
	if err != nil {
		h.logger.Warn("fetching spotify user", zap.Error(err))
	}

	id, err := h.ensureSession(w, r)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.sessions.Update(id, func(s *Session) {
		s.Token = token
		s.UserName = userName
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout disconnects Spotify and ends the session (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := FromRequest(r); id != "" {
		h.sessions.Delete(id)
	}
	clearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// inputErrorMessage maps validation errors to the chat's wording.
func inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, cycle.ErrFutureStartDate):
		return chat.ReplyFutureDate
	case errors.Is(err, cycle.ErrNonPositiveDuration):
		return chat.ReplyNotPositive
	case errors.Is(err, cycle.ErrInvalidDuration):
		return chat.ReplyNotNumber
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
