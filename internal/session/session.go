// Package session holds the signed-in user's token. It persists the token
// through a TokenStore and tells subscribers whenever it changes, which is
// how the notification center learns to start, restart or stop polling.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/credential"
	"github.com/nhle/campushub/internal/model"
)

// TokenKey is the key the session token is stored under.
const TokenKey = "session-token"

var (
	// ErrNotLoggedIn is returned when no usable token is stored.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrMissingCredentials is returned by Login when either field is empty.
	ErrMissingCredentials = errors.New("username/email and password are required")
)

// TokenStore persists the session token. *credential.Keyring implements it.
type TokenStore interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Delete(key string) error
}

// Authenticator talks to the user endpoints. *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, identifier string, password string) (*api.LoginResult, error)
	CheckUser(ctx context.Context, token string) (*model.User, error)
}

// Session is the current sign-in state.
type Session struct {
	store TokenStore
	log   *logrus.Entry
	now   func() time.Time

	mu      sync.Mutex
	token   string
	user    *model.User
	subs    map[int]func(token string)
	nextSub int
}

// New creates a signed-out session backed by store.
func New(store TokenStore) *Session {
	return &Session{
		store: store,
		log:   logrus.WithField("component", "session"),
		now:   time.Now,
		subs:  make(map[int]func(string)),
	}
}

// Token returns the current token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Subscribe registers fn to be called with the new token after every
// change. Callbacks run on the goroutine that made the change, after the
// session's lock is released.
func (s *Session) Subscribe(fn func(token string)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Set stores token and user and notifies subscribers if the token changed.
func (s *Session) Set(token string, user *model.User) error {
	if token == "" {
		return s.Clear()
	}
	if err := s.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	s.mu.Lock()
	changed := s.token != token
	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, token)
	}
	return nil
}

// Clear forgets the token, deletes it from the store and notifies
// subscribers with "". The in-memory state is cleared even when the
// store fails.
func (s *Session) Clear() error {
	s.mu.Lock()
	changed := s.token != ""
	s.token = ""
	s.user = nil
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, "")
	}

	if err := s.store.Delete(TokenKey); err != nil {
		return fmt.Errorf("deleting stored session: %w", err)
	}
	return nil
}

// Logout ends the session.
func (s *Session) Logout() error {
	return s.Clear()
}

// Login signs in with a username or email and a password.
func (s *Session) Login(
	ctx context.Context,
	auth Authenticator,
	identifier string,
	password string,
) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	res, err := auth.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	if err := s.Set(res.Token, &res.User); err != nil {
		return nil, err
	}

	s.log.WithField("username", res.User.Username).Info("logged in")
	return s.User(), nil
}

// Restore resumes the stored session. An expired token is discarded
// without a request; otherwise the server must accept it. A token the
// server rejects is deleted. A network failure keeps the stored token
// for the next attempt but leaves the session signed out.
func (s *Session) Restore(ctx context.Context, auth Authenticator) (*model.User, error) {
	token, err := s.store.Get(TokenKey)
	if errors.Is(err, credential.ErrNotFound) || (err == nil && token == "") {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("loading stored session: %w", err)
	}

	if expired(token, s.now()) {
		s.log.Info("stored session expired")
		if err := s.store.Delete(TokenKey); err != nil {
			s.log.WithError(err).Warn("deleting expired session")
		}
		return nil, ErrNotLoggedIn
	}

	user, err := auth.CheckUser(ctx, token)
	if err != nil {
		if api.StatusCode(err) != 0 {
			s.log.WithError(err).Info("stored session rejected")
			if delErr := s.store.Delete(TokenKey); delErr != nil {
				s.log.WithError(delErr).Warn("deleting rejected session")
			}
			return nil, fmt.Errorf("%w: %s", ErrNotLoggedIn, api.ErrorMessage(err))
		}
		return nil, fmt.Errorf("checking stored session: %w", err)
	}

	if err := s.Set(token, user); err != nil {
		return nil, err
	}
	return s.User(), nil
}

// ExpiresAt returns the exp claim of the current token, if it has one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	return expiry(s.Token())
}

func (s *Session) subscribersLocked() []func(string) {
	subs := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(string), token string) {
	for _, fn := range subs {
		fn(token)
	}
}

// expiry reads the exp claim without verifying the signature; the server
// remains the authority on validity.
func expiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// expired reports whether token carries an exp claim in the past. Tokens
// that are not JWTs never count as expired.
func expired(token string, now time.Time) bool {
	exp, ok := expiry(token)
	return ok && !now.Before(exp)
}
