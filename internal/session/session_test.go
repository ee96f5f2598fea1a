package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhle/campushub/internal/api"
	"github.com/nhle/campushub/internal/model"
)

// --- mocks ---

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, identifier, password string) (*api.LoginResult, error) {
	args := m.Called(ctx, identifier, password)
	if r, _ := args.Get(0).(*api.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) CheckUser(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	if u, _ := args.Get(0).(*model.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type recorder struct{ tokens []string }

func (r *recorder) fn(token string) { r.tokens = append(r.tokens, token) }

// --- tests ---

func TestSetNotifiesOnlyOnChange(t *testing.T) {
	s := New(NewMemoryStore())
	rec := &recorder{}
	s.Subscribe(rec.fn)

	require.NoError(t, s.Set("a", &model.User{Username: "alice"}))
	require.NoError(t, s.Set("a", &model.User{Username: "alice"}))
	require.NoError(t, s.Set("b", nil))
	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())

	assert.Equal(t, []string{"a", "b", ""}, rec.tokens)
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
}

func TestSetPersistsToken(t *testing.T) {
	store := NewMemoryStore()
	s := New(store)

	require.NoError(t, s.Set("tok", &model.User{Username: "alice"}))
	got, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, s.Logout())
	_, err = store.Get(TokenKey)
	assert.Error(t, err)
}

func TestUnsubscribe(t *testing.T) {
	s := New(NewMemoryStore())
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.fn)

	require.NoError(t, s.Set("a", nil))
	unsubscribe()
	require.NoError(t, s.Set("b", nil))

	assert.Equal(t, []string{"a"}, rec.tokens)
}

func TestLogin(t *testing.T) {
	auth := &mockAuth{}
	user := model.User{ID: "7", Username: "alice", Role: "student"}
	auth.On("Login", mock.Anything, "alice@example.com", "pw").
		Return(&api.LoginResult{Token: "tok", User: user}, nil)

	s := New(NewMemoryStore())
	rec := &recorder{}
	s.Subscribe(rec.fn)

	got, err := s.Login(context.Background(), auth, "  alice@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "tok", s.Token())
	assert.Equal(t, []string{"tok"}, rec.tokens)
	auth.AssertExpectations(t)
}

func TestLoginRequiresBothFields(t *testing.T) {
	auth := &mockAuth{}
	s := New(NewMemoryStore())

	_, err := s.Login(context.Background(), auth, " ", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = s.Login(context.Background(), auth, "alice", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginRejected(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, "alice", "bad").
		Return(nil, &api.AuthError{Method: "POST", Path: "/users/login", Message: "Invalid credentials"})

	s := New(NewMemoryStore())
	_, err := s.Login(context.Background(), auth, "alice", "bad")

	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", api.ErrorMessage(err))
	assert.Empty(t, s.Token())
}

func TestRestoreNothingStored(t *testing.T) {
	auth := &mockAuth{}
	s := New(NewMemoryStore())

	_, err := s.Restore(context.Background(), auth)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	auth.AssertNotCalled(t, "CheckUser", mock.Anything, mock.Anything)
}

func TestRestoreValidToken(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	store := NewMemoryStore()
	require.NoError(t, store.Set(TokenKey, token))

	auth := &mockAuth{}
	auth.On("CheckUser", mock.Anything, token).
		Return(&model.User{ID: "42", Username: "alice", Role: "admin"}, nil)

	s := New(store)
	rec := &recorder{}
	s.Subscribe(rec.fn)

	user, err := s.Restore(context.Background(), auth)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.Equal(t, token, s.Token())
	assert.Equal(t, []string{token}, rec.tokens)

	exp, ok := s.ExpiresAt()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)
}

func TestRestoreExpiredTokenSkipsServer(t *testing.T) {
	token := signedToken(t, time.Now().Add(-time.Minute))
	store := NewMemoryStore()
	require.NoError(t, store.Set(TokenKey, token))
	auth := &mockAuth{}

	s := New(store)
	_, err := s.Restore(context.Background(), auth)

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	auth.AssertNotCalled(t, "CheckUser", mock.Anything, mock.Anything)
	_, err = store.Get(TokenKey)
	assert.Error(t, err, "expired token is deleted")
}

func TestRestoreOpaqueTokenAsksServer(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(TokenKey, "not-a-jwt"))
	auth := &mockAuth{}
	auth.On("CheckUser", mock.Anything, "not-a-jwt").
		Return(&model.User{Username: "bob"}, nil)

	s := New(store)
	user, err := s.Restore(context.Background(), auth)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
}

func TestRestoreRejectedTokenIsDeleted(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(TokenKey, "tok"))
	auth := &mockAuth{}
	auth.On("CheckUser", mock.Anything, "tok").
		Return(nil, &api.AuthError{Method: "GET", Path: "/users/check-user", Message: "invalid token"})

	s := New(store)
	_, err := s.Restore(context.Background(), auth)

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Empty(t, s.Token())
	_, err = store.Get(TokenKey)
	assert.Error(t, err)
}

func TestRestoreNetworkFailureKeepsStoredToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(TokenKey, "tok"))
	auth := &mockAuth{}
	auth.On("CheckUser", mock.Anything, "tok").Return(nil, errors.New("dial tcp: connection refused"))

	s := New(store)
	_, err := s.Restore(context.Background(), auth)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotLoggedIn)
	assert.Empty(t, s.Token())
	got, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "future", token: signedToken(t, now.Add(time.Hour)), want: false},
		{name: "past", token: signedToken(t, now.Add(-time.Second)), want: true},
		{name: "opaque", token: "abc", want: false},
		{name: "empty", token: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expired(tt.token, now))
		})
	}
}
