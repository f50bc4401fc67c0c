package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// SessionTTL is how long an idle-or-not session lives.
const SessionTTL = 24 * time.Hour

// Session is the per-visitor state of the access gate. The zero value is
// an anonymous visitor.
type Session struct {
	IsAdmin               bool
	NotificationDismissed bool
	CreatedAt             time.Time
}

// Login moves the session to the admin state and re-arms reminders.
func (s Session) Login() Session {
	s.IsAdmin = true
	s.NotificationDismissed = false
	return s
}

// Logout moves the session back to visitor and re-arms reminders.
func (s Session) Logout() Session {
	s.IsAdmin = false
	s.NotificationDismissed = false
	return s
}

// Dismiss hides reminders until the next login or logout.
func (s Session) Dismiss() Session {
	s.NotificationDismissed = true
	return s
}

type contextKey string

const sessionContextKey contextKey = "session"

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFrom returns the session carried by ctx, or a visitor session.
func SessionFrom(ctx context.Context) Session {
	sess, _ := ctx.Value(sessionContextKey).(Session)
	return sess
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create stores sess under a new random token.
func (ss *SessionStore) Create(sess Session) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := ss.now()
	sess.CreatedAt = now

	ss.mu.Lock()
	defer ss.mu.Unlock()
	for t, s := range ss.sessions {
		if now.Sub(s.CreatedAt) > SessionTTL {
			delete(ss.sessions, t)
		}
	}
	ss.sessions[token] = sess
	return token, nil
}

// Get retrieves a live session by token.
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	sess, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(sess.CreatedAt) > SessionTTL {
		ss.Delete(token)
		return Session{}, false
	}
	return sess, true
}

// Update replaces the session stored under token, keeping its creation
// time. It reports false when the token is unknown.
func (ss *SessionStore) Update(token string, sess Session) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	old, ok := ss.sessions[token]
	if !ok {
		return false
	}
	sess.CreatedAt = old.CreatedAt
	ss.sessions[token] = sess
	return true
}

// Len reports how many sessions are stored, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
