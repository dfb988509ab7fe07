// Package web provides the HTTP server and chat UI for Siren.
package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/siren/internal/chat"
)

const (
	sessionCookieName = "siren_session"
	sessionTTL        = 24 * time.Hour
)

// Session is one visitor's chat state and optional Spotify connection.
type Session struct {
	ID           string
	Conversation *chat.Conversation
	Token        *oauth2.Token // set once the visitor connects Spotify
	UserName     string
	CreatedAt    time.Time
}

// SessionStore keeps sessions in memory.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a new session with a fresh conversation.
func (s *SessionStore) Create() (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:           id,
		Conversation: chat.New(),
		CreatedAt:    s.now(),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Update runs fn on the session with the store locked, so concurrent requests
// from the same visitor see each other's changes in order.
// Returns false if the session does not exist or has expired.
func (s *SessionStore) Update(id string, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	if s.now().Sub(session.CreatedAt) > sessionTTL {
		delete(s.sessions, id)
		return false
	}
	fn(session)
	return true
}

// Snapshot returns a copy of the session safe to read without the lock.
func (s *SessionStore) Snapshot(id string) (Session, bool) {
	var snap Session
	ok := s.Update(id, func(sess *Session) {
		snap = *sess
		conv := *sess.Conversation
		conv.Messages = append([]chat.Message(nil), sess.Conversation.Messages...)
		snap.Conversation = &conv
	})
	return snap, ok
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.now().Sub(session.CreatedAt) > sessionTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// FromRequest returns the session ID from the request cookie, or "" if absent.
func FromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// setCookie sets the session cookie on the response.
func setCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

// clearCookie removes the session cookie from the response.
func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
